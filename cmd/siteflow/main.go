package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"siteflow-network/pkg/config"
)

var (
	cfg      *config.Config
	logLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "siteflow",
		Short: "federated compute orchestration",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			loaded, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			cfg = loaded
			level := cfg.Logging.Level
			if logLevel != "" {
				level = logLevel
			}
			lv, err := logrus.ParseLevel(level)
			if err != nil {
				return err
			}
			logrus.SetLevel(lv)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override configured log level")
	rootCmd.AddCommand(demoCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(keygenCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
