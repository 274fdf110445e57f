package main

// The demo wires three in-process sites into the fixed scenario: amy holds
// X, bob holds Y, cho holds the program F; only bob may run F, so X and F
// are routed to bob, Z = F(X, Y) is computed there, and the run quiesces.

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"siteflow-network/core"
)

func demoCmd() *cobra.Command {
	var apiBind string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "run the fixed three-site scenario",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd, apiBind)
		},
	}
	cmd.Flags().StringVar(&apiBind, "api", "", "serve the status API on this address while running")
	return cmd
}

func word(v uint64) core.AssetData {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func siteLogger(dir, name string) (*logrus.Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(filepath.Join(dir, name+".log"))
	if err != nil {
		return nil, err
	}
	lg := logrus.New()
	lg.SetOutput(f)
	lg.SetLevel(logrus.GetLevel())
	lg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	return lg, nil
}

func runDemo(cmd *cobra.Command, apiBind string) error {
	names := []string{"amy", "bob", "cho"}
	keypairs := make([]core.Keypair, len(names))
	loggers := make([]*logrus.Logger, len(names))
	for i, name := range names {
		kp, err := core.GenerateKeypair()
		if err != nil {
			return err
		}
		keypairs[i] = kp
		lg, err := siteLogger(cfg.Logging.Dir, name)
		if err != nil {
			return err
		}
		loggers[i] = lg
	}
	amy, bob, cho := keypairs[0].SiteID(), keypairs[1].SiteID(), keypairs[2].SiteID()

	// Each initially-held asset is minted by its holder; Z, which only
	// exists once F runs, is minted by cho.
	amyIDs := core.NewAssetIDManager(amy)
	bobIDs := core.NewAssetIDManager(bob)
	choIDs := core.NewAssetIDManager(cho)
	x, err := amyIDs.Alloc()
	if err != nil {
		return err
	}
	y, err := bobIDs.Alloc()
	if err != nil {
		return err
	}
	f, err := choIDs.Alloc()
	if err != nil {
		return err
	}
	z, err := choIDs.Alloc()
	if err != nil {
		return err
	}

	problem := core.NewProblem()
	problem.AllowAccess(amy, x)
	problem.AllowAccess(bob, x)
	problem.AllowAccess(bob, y)
	problem.AllowAccess(bob, f)
	problem.AllowAccess(cho, f)
	problem.AllowAccess(cho, z)
	problem.AllowCompute(bob, f)
	problem.PlaceAsset(amy, x)
	problem.PlaceAsset(bob, y)
	problem.PlaceAsset(cho, f)
	problem.AddCompute(core.ComputeArgs{
		Inputs:       []core.AssetID{x, y},
		Outputs:      []core.AssetID{z},
		ComputeAsset: f,
	})

	plan, err := core.Plan(problem)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	sites, err := core.SetupNetwork(core.NetworkConfig{
		Nodes: map[core.SiteID]core.NodeSpec{
			amy: {Keypair: keypairs[0], Logger: loggers[0]},
			bob: {Keypair: keypairs[1], Logger: loggers[1]},
			cho: {Keypair: keypairs[2], Logger: loggers[2]},
		},
		BidirEdges:    [][2]core.SiteID{{amy, bob}, {bob, cho}},
		InboxCapacity: cfg.Network.InboxCapacity,
		Engine:        cfg.Engine(),
	})
	if err != nil {
		return err
	}
	if err := core.ApplyPlan(sites, plan); err != nil {
		return err
	}
	sites[amy].SeedAsset(x, word(0xDEADBEEF))
	sites[bob].SeedAsset(y, word(0xD00DEEDADA))
	sites[cho].SeedAsset(f, word(0xC0FEFE))

	if apiBind == "" && cfg.API.Enabled {
		apiBind = cfg.API.Bind
	}
	if apiBind != "" {
		sv := core.NewStatusServer(sites)
		go func() {
			if err := sv.ListenAndServe(apiBind); err != nil {
				logrus.Warnf("status api: %v", err)
			}
		}()
	}

	logrus.Infof("running sites %s %s %s", amy, bob, cho)
	core.RunSites(sites)

	for i, name := range names {
		snap := sites[keypairs[i].SiteID()].Snapshot()
		fmt.Fprintf(cmd.OutOrStdout(), "%s holds %v (todo left: %d)\n",
			name, snap.StoredAssets, snap.TodoRemaining)
	}
	if data, ok := sites[bob].StoredAsset(z); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "bob computed Z = %x\n", []byte(data))
	} else {
		return fmt.Errorf("demo finished without Z at bob")
	}
	return nil
}
