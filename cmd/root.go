package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/isq-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "isq-cli",
	Short: "Seller spec audit and buyer ISQ reconciliation",
	Long:  "Audits seller product specifications, extracts competitor specs from the web via Claude, reconciles both sides and selects the buyer ISQs.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
