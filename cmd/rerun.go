package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var rerunCmd = &cobra.Command{
	Use:   "rerun",
	Short: "Repeat extraction and reconciliation for a stored run",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		id, _ := cmd.Flags().GetString("id")
		urls, _ := cmd.Flags().GetStringSlice("url")

		env, err := initService(ctx, "rerun", false)
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Service.Extract(ctx, id, urls)
		if run != nil {
			formatRunSummary(os.Stderr, run)
		}
		if err != nil {
			return eris.Wrap(err, "rerun")
		}
		formatBuyers(os.Stdout, run.Result.BuyerISQs)
		return nil
	},
}

func init() {
	rerunCmd.Flags().String("id", "", "run ID")
	rerunCmd.Flags().StringSlice("url", nil, "replace the stored URLs (repeatable)")
	_ = rerunCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(rerunCmd)
}
