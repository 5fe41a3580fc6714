package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/isq-cli/internal/upload"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit an uploaded spec file and store it as a new run",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		file, _ := cmd.Flags().GetString("file")
		urls, _ := cmd.Flags().GetStringSlice("url")
		noLLM, _ := cmd.Flags().GetBool("no-llm")
		asJSON, _ := cmd.Flags().GetBool("json")

		in, err := upload.Parse(file)
		if err != nil {
			return eris.Wrap(err, "audit")
		}

		env, err := initService(ctx, "audit", noLLM)
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Service.Audit(ctx, in, urls)
		if err != nil {
			return eris.Wrap(err, "audit")
		}

		if asJSON {
			return printJSON(os.Stdout, run)
		}
		formatAudit(os.Stdout, run.Result.Audit)
		formatRunSummary(os.Stderr, run)
		return nil
	},
}

func init() {
	auditCmd.Flags().String("file", "", "seller spec upload (.xlsx, .json, .yaml)")
	auditCmd.Flags().StringSlice("url", nil, "competitor URL to store for extraction (repeatable)")
	auditCmd.Flags().Bool("no-llm", false, "audit with rules only")
	auditCmd.Flags().Bool("json", false, "print the run as JSON")
	_ = auditCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(auditCmd)
}
