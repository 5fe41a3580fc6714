package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a stored run as an XLSX workbook or JSON report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		id, _ := cmd.Flags().GetString("id")
		out, _ := cmd.Flags().GetString("out")
		format, _ := cmd.Flags().GetString("format")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, id)
		if err != nil {
			return eris.Wrapf(err, "export run %s", id)
		}

		path, err := writeReport(run, out, format, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, path)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("id", "", "run ID")
	exportCmd.Flags().String("out", "", "report path (default <MCAT>_Complete_<date>.xlsx)")
	exportCmd.Flags().String("format", "", "report format: xlsx or json (default from --out)")
	_ = exportCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(exportCmd)
}
