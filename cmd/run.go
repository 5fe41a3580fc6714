package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/isq-cli/internal/upload"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Audit, extract and reconcile a seller upload end to end",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		file, _ := cmd.Flags().GetString("file")
		urls, _ := cmd.Flags().GetStringSlice("url")
		out, _ := cmd.Flags().GetString("out")
		format, _ := cmd.Flags().GetString("format")
		noExport, _ := cmd.Flags().GetBool("no-export")

		in, err := upload.Parse(file)
		if err != nil {
			return eris.Wrap(err, "run")
		}

		env, err := initService(ctx, "run", false)
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Service.Run(ctx, in, urls)
		if run != nil {
			formatRunSummary(os.Stderr, run)
		}
		if err != nil {
			return eris.Wrap(err, "run")
		}

		formatBuyers(os.Stdout, run.Result.BuyerISQs)
		if noExport {
			return nil
		}
		path, err := writeReport(run, out, format, time.Now())
		if err != nil {
			return err
		}
		zap.L().Info("report written", zap.String("run_id", run.ID), zap.String("path", path))
		return nil
	},
}

func init() {
	runCmd.Flags().String("file", "", "seller spec upload (.xlsx, .json, .yaml)")
	runCmd.Flags().StringSlice("url", nil, "competitor URL (repeatable)")
	runCmd.Flags().String("out", "", "report path (default <MCAT>_Complete_<date>.xlsx)")
	runCmd.Flags().String("format", "", "report format: xlsx or json (default from --out)")
	runCmd.Flags().Bool("no-export", false, "skip writing the report")
	_ = runCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(runCmd)
}
