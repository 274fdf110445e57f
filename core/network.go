package core

// The in-process network fabric. Each site gets a single fan-in inbox
// channel; the outbox directory maps peer identity to that peer's inbox and
// is sealed before any engine starts. A directed edge is FIFO with
// at-most-once delivery, which buffered Go channels give us for free. A TCP
// fabric satisfies the same contract as long as it carries the signed frames
// byte-exact.

import (
	"fmt"
	"sync"
)

// DefaultInboxCapacity bounds a site's fan-in queue when NetworkConfig does
// not say otherwise. Sends block only when a site falls this far behind.
const DefaultInboxCapacity = 1024

// SetupNetwork builds the sites and wires their inboxes and outbox
// directories according to cfg. Engines are not started; the caller seeds
// stores and instructions first, then calls RunSites.
func SetupNetwork(cfg NetworkConfig) (map[SiteID]*Site, error) {
	if len(cfg.Nodes) == 0 {
		return nil, fmt.Errorf("setup network: no nodes configured")
	}
	capacity := cfg.InboxCapacity
	if capacity <= 0 {
		capacity = DefaultInboxCapacity
	}

	inboxes := make(map[SiteID]chan SignedMsg, len(cfg.Nodes))
	sites := make(map[SiteID]*Site, len(cfg.Nodes))
	for id, spec := range cfg.Nodes {
		if spec.Keypair.SiteID() != id {
			return nil, fmt.Errorf("setup network: node %s keyed under wrong identity", spec.Keypair.SiteID())
		}
		inbox := make(chan SignedMsg, capacity)
		inboxes[id] = inbox
		sites[id] = newSite(spec.Keypair, inbox, cfg.Engine, cfg.Computer, spec.Logger)
	}

	addEdge := func(from, to SiteID) error {
		src, ok := sites[from]
		if !ok {
			return fmt.Errorf("setup network: edge references unknown site %s", from)
		}
		dst, ok := inboxes[to]
		if !ok {
			return fmt.Errorf("setup network: edge references unknown site %s", to)
		}
		src.outboxes[to] = dst
		return nil
	}
	for _, edge := range cfg.BidirEdges {
		if err := addEdge(edge[0], edge[1]); err != nil {
			return nil, err
		}
		if err := addEdge(edge[1], edge[0]); err != nil {
			return nil, err
		}
	}
	return sites, nil
}

// FullyConnectedEdges returns the bidirectional edge list of a complete
// graph over ids.
func FullyConnectedEdges(ids []SiteID) [][2]SiteID {
	var edges [][2]SiteID
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			edges = append(edges, [2]SiteID{ids[i], ids[j]})
		}
	}
	return edges
}

// ApplyPlan distributes planner output onto the sites' todo multisets.
func ApplyPlan(sites map[SiteID]*Site, plan map[SiteID][]Instruction) error {
	for id, program := range plan {
		site, ok := sites[id]
		if !ok {
			return fmt.Errorf("apply plan: no site %s in network", id)
		}
		site.AddInstructions(program...)
	}
	return nil
}

// RunSites starts every engine on its own goroutine and blocks until all of
// them reach quiescence.
func RunSites(sites map[SiteID]*Site) {
	var wg sync.WaitGroup
	for _, site := range sites {
		wg.Add(1)
		go func(s *Site) {
			defer wg.Done()
			s.Execute()
		}(site)
	}
	wg.Wait()
}
