package core

// The planner turns a Problem into per-site instruction programs by symbolic
// execution: computes are sequenced by asset availability, then each one is
// placed on an eligible site and its missing inputs are routed there with
// matching send/acquire pairs. The dependency domain can be cyclic but the
// execution never traverses a cycle; a cycle shows up as "no compute is
// selectable" and is reported as such.

import "fmt"

// CyclicCausalityError reports a set of computes whose inputs transitively
// depend on each other's outputs. Compute points into the problem's
// DoCompute list and names one member of the stuck set.
type CyclicCausalityError struct {
	Compute *ComputeArgs
}

func (e *CyclicCausalityError) Error() string {
	return fmt.Sprintf("cyclic causality: %s can never run", e.Compute)
}

// NoSiteForComputeError reports a compute for which no site satisfies both
// the compute policy and access to every needed asset.
type NoSiteForComputeError struct {
	Compute *ComputeArgs
}

func (e *NoSiteForComputeError) Error() string {
	return fmt.Sprintf("no eligible site for %s", e.Compute)
}

//---------------------------------------------------------------------
// Symbolic state
//---------------------------------------------------------------------

type symbolicStore struct {
	siteHasAsset    map[SiteAsset]struct{}
	someoneHasAsset map[AssetID]struct{}
}

func newSymbolicStore(p *Problem) *symbolicStore {
	st := &symbolicStore{
		siteHasAsset:    make(map[SiteAsset]struct{}, len(p.SiteHasAsset)),
		someoneHasAsset: make(map[AssetID]struct{}),
	}
	for sa := range p.SiteHasAsset {
		st.siteHasAsset[sa] = struct{}{}
		st.someoneHasAsset[sa.Asset] = struct{}{}
	}
	return st
}

func (st *symbolicStore) insert(site SiteID, asset AssetID) {
	st.siteHasAsset[SiteAsset{Site: site, Asset: asset}] = struct{}{}
	st.someoneHasAsset[asset] = struct{}{}
}

func (st *symbolicStore) has(site SiteID, asset AssetID) bool {
	_, ok := st.siteHasAsset[SiteAsset{Site: site, Asset: asset}]
	return ok
}

// holder returns the first site in sorted order that symbolically holds
// asset.
func (st *symbolicStore) holder(asset AssetID, sites []SiteID) (SiteID, bool) {
	for _, s := range sites {
		if st.has(s, asset) {
			return s, true
		}
	}
	return SiteID{}, false
}

// siteForCompute picks the compute site: the first site in sorted order that
// may execute the program and may access every needed asset.
func siteForCompute(p *Problem, sites []SiteID, c *ComputeArgs) (SiteID, bool) {
	needed := c.NeededAssets()
	for _, s := range sites {
		if !p.mayCompute(s, c.ComputeAsset) {
			continue
		}
		eligible := true
		for _, a := range needed {
			if !p.mayAccess(s, a) {
				eligible = false
				break
			}
		}
		if eligible {
			return s, true
		}
	}
	return SiteID{}, false
}

//---------------------------------------------------------------------
// Planning
//---------------------------------------------------------------------

// Plan computes per-site instruction programs realising every computation in
// the problem, or a diagnostic naming the offending compute. Whether the
// chosen site is permitted to access a compute's outputs is deliberately not
// checked; see Problem.Validate.
func Plan(p *Problem) (map[SiteID][]Instruction, error) {
	instructions := make(map[SiteID][]Instruction)
	push := func(site SiteID, ins Instruction) {
		instructions[site] = append(instructions[site], ins)
	}

	sites := p.sortedSites()
	store := newSymbolicStore(p)

	// Remaining computes, in declaration order. Pointers double as the
	// back-references carried by plan errors.
	todo := make([]*ComputeArgs, len(p.DoCompute))
	for i := range p.DoCompute {
		todo[i] = &p.DoCompute[i]
	}

	for len(todo) > 0 {
		// Select the next compute whose needed assets all exist somewhere.
		selected := -1
		for i, c := range todo {
			feasible := true
			for _, a := range c.NeededAssets() {
				if _, ok := store.someoneHasAsset[a]; !ok {
					feasible = false
					break
				}
			}
			if feasible {
				selected = i
				break
			}
		}
		if selected < 0 {
			return nil, &CyclicCausalityError{Compute: todo[0]}
		}
		next := todo[selected]
		todo = append(todo[:selected], todo[selected+1:]...)

		computeSite, ok := siteForCompute(p, sites, next)
		if !ok {
			return nil, &NoSiteForComputeError{Compute: next}
		}
		push(computeSite, Instruction{Op: OpComputeAssetData, Compute: next})

		// Route each missing needed asset to the compute site.
		for _, needed := range next.NeededAssets() {
			if store.has(computeSite, needed) {
				continue
			}
			src, ok := store.holder(needed, sites)
			if !ok {
				// Selection above guarantees some site holds it.
				panic(fmt.Sprintf("planner: no holder for %s", needed))
			}
			store.insert(computeSite, needed)
			push(src, Instruction{Op: OpSendAssetTo, Asset: needed, Peer: computeSite})
			push(computeSite, Instruction{Op: OpAcquireAssetFrom, Asset: needed, Peer: src})
		}

		for _, out := range next.Outputs {
			store.insert(computeSite, out)
		}
	}
	return instructions, nil
}
