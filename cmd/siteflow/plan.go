package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"siteflow-network/core"
)

func planCmd() *cobra.Command {
	var problemPath string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "plan a problem file and print the per-site programs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := core.LoadProblemDoc(problemPath)
			if err != nil {
				return err
			}
			resolved, err := doc.Resolve()
			if err != nil {
				return err
			}
			for _, w := range resolved.Problem.Validate() {
				logrus.Warn(w)
			}
			plan, err := core.Plan(resolved.Problem)
			if err != nil {
				return fmt.Errorf("plan: %w", err)
			}
			rendered, err := resolved.RenderPlan(plan)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(rendered)
			return err
		},
	}
	cmd.Flags().StringVar(&problemPath, "problem", "", "path to the problem YAML file")
	_ = cmd.MarkFlagRequired("problem")
	return cmd
}
