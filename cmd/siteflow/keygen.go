package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"siteflow-network/core"
)

func keygenCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "generate a site keypair",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kp, err := core.GenerateKeypair()
			if err != nil {
				return err
			}
			if err := core.SaveKeypair(outPath, kp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "site id %s written to %s\n", kp.SiteID().Hex(), outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "site.key", "file to write the keypair to")
	return cmd
}
