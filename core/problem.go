package core

// Problem construction, indexing helpers and the on-disk YAML document form.
//
// Inside a Problem the policy and placement relations are plain sets of
// (site, asset) pairs for symmetry. The directional lookups the planner needs
// are answered by the helpers below; iteration over sites is always in sorted
// identity order so plans are reproducible.

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// NewProblem returns an empty problem with all relation sets allocated.
func NewProblem() *Problem {
	return &Problem{
		MayAccess:    make(map[SiteAsset]struct{}),
		MayCompute:   make(map[SiteAsset]struct{}),
		SiteHasAsset: make(map[SiteAsset]struct{}),
	}
}

// AllowAccess permits site to hold or pass through asset.
func (p *Problem) AllowAccess(site SiteID, asset AssetID) {
	p.MayAccess[SiteAsset{Site: site, Asset: asset}] = struct{}{}
}

// AllowCompute permits site to execute asset as a program.
func (p *Problem) AllowCompute(site SiteID, asset AssetID) {
	p.MayCompute[SiteAsset{Site: site, Asset: asset}] = struct{}{}
}

// PlaceAsset records that site initially holds asset.
func (p *Problem) PlaceAsset(site SiteID, asset AssetID) {
	p.SiteHasAsset[SiteAsset{Site: site, Asset: asset}] = struct{}{}
}

// AddCompute appends a computation to the goal list.
func (p *Problem) AddCompute(c ComputeArgs) {
	p.DoCompute = append(p.DoCompute, c)
}

func (p *Problem) mayAccess(site SiteID, asset AssetID) bool {
	_, ok := p.MayAccess[SiteAsset{Site: site, Asset: asset}]
	return ok
}

func (p *Problem) mayCompute(site SiteID, asset AssetID) bool {
	_, ok := p.MayCompute[SiteAsset{Site: site, Asset: asset}]
	return ok
}

// sortedSites returns every site mentioned anywhere in the problem, ordered
// by identity bytes.
func (p *Problem) sortedSites() []SiteID {
	seen := make(map[SiteID]struct{})
	for sa := range p.MayAccess {
		seen[sa.Site] = struct{}{}
	}
	for sa := range p.MayCompute {
		seen[sa.Site] = struct{}{}
	}
	for sa := range p.SiteHasAsset {
		seen[sa.Site] = struct{}{}
	}
	out := make([]SiteID, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return SiteIDLess(out[i], out[j]) })
	return out
}

// NeededAssets returns the inputs plus the compute asset: everything that
// must be present before the computation can run.
func (c *ComputeArgs) NeededAssets() []AssetID {
	out := make([]AssetID, 0, len(c.Inputs)+1)
	out = append(out, c.Inputs...)
	return append(out, c.ComputeAsset)
}

// Validate reports advisory findings on a problem. The planner itself does
// not require may_access to cover compute outputs at the chosen site; the
// returned warnings surface outputs that no site at all is permitted to
// hold, which usually indicates an authoring mistake.
func (p *Problem) Validate() []string {
	var warnings []string
	accessible := make(map[AssetID]struct{})
	for sa := range p.MayAccess {
		accessible[sa.Asset] = struct{}{}
	}
	for i := range p.DoCompute {
		for _, out := range p.DoCompute[i].Outputs {
			if _, ok := accessible[out]; !ok {
				warnings = append(warnings,
					fmt.Sprintf("compute %d: no site is permitted to access output %s", i, out))
			}
		}
	}
	return warnings
}

//---------------------------------------------------------------------
// On-disk problem documents
//---------------------------------------------------------------------

// ProblemDoc is the YAML form of a problem: sites and assets are referred to
// by symbolic names which Resolve maps onto keys and minted ids.
type ProblemDoc struct {
	Sites      []SiteDoc    `yaml:"sites"`
	Assets     []AssetDoc   `yaml:"assets"`
	MayAccess  []GrantDoc   `yaml:"may_access"`
	MayCompute []GrantDoc   `yaml:"may_compute"`
	DoCompute  []ComputeDoc `yaml:"do_compute"`
}

// SiteDoc names one participant. PubKey (full hex) pins the identity; when
// absent Resolve generates a keypair for the site.
type SiteDoc struct {
	Name   string `yaml:"name"`
	PubKey string `yaml:"pubkey,omitempty"`
}

// AssetDoc declares one asset. Holder is the site that initially has it and
// may be empty for assets that only exist as compute outputs; Origin selects
// whose allocator mints the id and defaults to the holder.
type AssetDoc struct {
	Name   string `yaml:"name"`
	Holder string `yaml:"holder,omitempty"`
	Origin string `yaml:"origin,omitempty"`
}

// GrantDoc is one (site, asset) policy pair.
type GrantDoc struct {
	Site  string `yaml:"site"`
	Asset string `yaml:"asset"`
}

// ComputeDoc is one requested computation over named assets.
type ComputeDoc struct {
	Inputs  []string `yaml:"inputs"`
	Outputs []string `yaml:"outputs"`
	Compute string   `yaml:"compute"`
}

// LoadProblemDoc reads and strictly parses a problem file.
func LoadProblemDoc(path string) (*ProblemDoc, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load problem: %w", err)
	}
	return ParseProblemDoc(raw)
}

// ParseProblemDoc parses YAML bytes, rejecting unknown fields.
func ParseProblemDoc(raw []byte) (*ProblemDoc, error) {
	var doc ProblemDoc
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse problem: %w", err)
	}
	return &doc, nil
}

// ResolvedProblem carries a Problem alongside the name mappings and any
// keypairs generated for sites the document did not pin.
type ResolvedProblem struct {
	Problem     *Problem
	SiteByName  map[string]SiteID
	AssetByName map[string]AssetID
	Keypairs    map[SiteID]Keypair

	siteNames  map[SiteID]string
	assetNames map[AssetID]string
}

// Resolve maps the document's symbolic names onto concrete identities and
// minted asset ids, validating every cross-reference.
func (d *ProblemDoc) Resolve() (*ResolvedProblem, error) {
	r := &ResolvedProblem{
		Problem:     NewProblem(),
		SiteByName:  make(map[string]SiteID),
		AssetByName: make(map[string]AssetID),
		Keypairs:    make(map[SiteID]Keypair),
		siteNames:   make(map[SiteID]string),
		assetNames:  make(map[AssetID]string),
	}
	if len(d.Sites) == 0 {
		return nil, fmt.Errorf("resolve problem: no sites declared")
	}
	managers := make(map[SiteID]*AssetIDManager)
	for _, sd := range d.Sites {
		if sd.Name == "" {
			return nil, fmt.Errorf("resolve problem: site with empty name")
		}
		if _, dup := r.SiteByName[sd.Name]; dup {
			return nil, fmt.Errorf("resolve problem: duplicate site %q", sd.Name)
		}
		var id SiteID
		if sd.PubKey != "" {
			parsed, err := ParseSiteID(sd.PubKey)
			if err != nil {
				return nil, fmt.Errorf("resolve problem: site %q: %w", sd.Name, err)
			}
			id = parsed
		} else {
			kp, err := GenerateKeypair()
			if err != nil {
				return nil, fmt.Errorf("resolve problem: site %q: %w", sd.Name, err)
			}
			id = kp.SiteID()
			r.Keypairs[id] = kp
		}
		r.SiteByName[sd.Name] = id
		r.siteNames[id] = sd.Name
		managers[id] = NewAssetIDManager(id)
	}
	for _, ad := range d.Assets {
		if ad.Name == "" {
			return nil, fmt.Errorf("resolve problem: asset with empty name")
		}
		if _, dup := r.AssetByName[ad.Name]; dup {
			return nil, fmt.Errorf("resolve problem: duplicate asset %q", ad.Name)
		}
		originName := ad.Origin
		if originName == "" {
			originName = ad.Holder
		}
		if originName == "" {
			originName = d.Sites[0].Name
		}
		origin, ok := r.SiteByName[originName]
		if !ok {
			return nil, fmt.Errorf("resolve problem: asset %q: unknown site %q", ad.Name, originName)
		}
		id, err := managers[origin].Alloc()
		if err != nil {
			return nil, fmt.Errorf("resolve problem: asset %q: %w", ad.Name, err)
		}
		r.AssetByName[ad.Name] = id
		r.assetNames[id] = ad.Name
		if ad.Holder != "" {
			holder, ok := r.SiteByName[ad.Holder]
			if !ok {
				return nil, fmt.Errorf("resolve problem: asset %q: unknown holder %q", ad.Name, ad.Holder)
			}
			r.Problem.PlaceAsset(holder, id)
		}
	}
	grant := func(list []GrantDoc, apply func(SiteID, AssetID), rel string) error {
		for _, g := range list {
			site, ok := r.SiteByName[g.Site]
			if !ok {
				return fmt.Errorf("resolve problem: %s: unknown site %q", rel, g.Site)
			}
			asset, ok := r.AssetByName[g.Asset]
			if !ok {
				return fmt.Errorf("resolve problem: %s: unknown asset %q", rel, g.Asset)
			}
			apply(site, asset)
		}
		return nil
	}
	if err := grant(d.MayAccess, r.Problem.AllowAccess, "may_access"); err != nil {
		return nil, err
	}
	if err := grant(d.MayCompute, r.Problem.AllowCompute, "may_compute"); err != nil {
		return nil, err
	}
	for i, cd := range d.DoCompute {
		if cd.Compute == "" {
			return nil, fmt.Errorf("resolve problem: compute %d: missing compute asset", i)
		}
		lookup := func(names []string) ([]AssetID, error) {
			out := make([]AssetID, 0, len(names))
			for _, n := range names {
				id, ok := r.AssetByName[n]
				if !ok {
					return nil, fmt.Errorf("resolve problem: compute %d: unknown asset %q", i, n)
				}
				out = append(out, id)
			}
			return out, nil
		}
		inputs, err := lookup(cd.Inputs)
		if err != nil {
			return nil, err
		}
		outputs, err := lookup(cd.Outputs)
		if err != nil {
			return nil, err
		}
		computeAsset, ok := r.AssetByName[cd.Compute]
		if !ok {
			return nil, fmt.Errorf("resolve problem: compute %d: unknown asset %q", i, cd.Compute)
		}
		r.Problem.AddCompute(ComputeArgs{Inputs: inputs, Outputs: outputs, ComputeAsset: computeAsset})
	}
	return r, nil
}

// SiteName renders an identity by document name when known.
func (r *ResolvedProblem) SiteName(id SiteID) string {
	if n, ok := r.siteNames[id]; ok {
		return n
	}
	return id.String()
}

// AssetName renders an asset id by document name when known.
func (r *ResolvedProblem) AssetName(id AssetID) string {
	if n, ok := r.assetNames[id]; ok {
		return n
	}
	return id.String()
}

// RenderPlan returns a YAML rendering of a plan with identities mapped back
// to their document names, for operator inspection.
func (r *ResolvedProblem) RenderPlan(plan map[SiteID][]Instruction) ([]byte, error) {
	type renderedCompute struct {
		Inputs  []string `yaml:"inputs"`
		Outputs []string `yaml:"outputs"`
		Compute string   `yaml:"compute"`
	}
	type renderedInstruction struct {
		Op      string           `yaml:"op"`
		Asset   string           `yaml:"asset,omitempty"`
		Peer    string           `yaml:"peer,omitempty"`
		Compute *renderedCompute `yaml:"args,omitempty"`
	}
	out := make(map[string][]renderedInstruction, len(plan))
	for site, program := range plan {
		rendered := make([]renderedInstruction, 0, len(program))
		for _, ins := range program {
			switch ins.Op {
			case OpSendAssetTo:
				rendered = append(rendered, renderedInstruction{
					Op: "send_asset_to", Asset: r.AssetName(ins.Asset), Peer: r.SiteName(ins.Peer),
				})
			case OpAcquireAssetFrom:
				rendered = append(rendered, renderedInstruction{
					Op: "acquire_asset_from", Asset: r.AssetName(ins.Asset), Peer: r.SiteName(ins.Peer),
				})
			case OpComputeAssetData:
				rc := &renderedCompute{Compute: r.AssetName(ins.Compute.ComputeAsset)}
				for _, in := range ins.Compute.Inputs {
					rc.Inputs = append(rc.Inputs, r.AssetName(in))
				}
				for _, o := range ins.Compute.Outputs {
					rc.Outputs = append(rc.Outputs, r.AssetName(o))
				}
				rendered = append(rendered, renderedInstruction{Op: "compute_asset_data", Compute: rc})
			}
		}
		out[r.SiteName(site)] = rendered
	}
	return yaml.Marshal(out)
}
