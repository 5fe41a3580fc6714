package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/isq-cli/internal/export"
	"github.com/sells-group/isq-cli/internal/model"
)

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatAudit writes one row per audited specification.
func formatAudit(out io.Writer, results []model.AuditResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SPECIFICATION\tSTATUS\tPROBLEMATIC\tEXPLANATION")
	_, _ = fmt.Fprintln(w, "-------------\t------\t-----------\t-----------")
	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r.Specification,
			r.Status,
			strings.Join(r.ProblematicOptions, ", "),
			r.Explanation,
		)
	}
	_ = w.Flush()
}

// formatBuyers writes the selected buyer ISQs.
func formatBuyers(out io.Writer, isqs []model.BuyerISQ) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "BUYER ISQ\tOPTIONS")
	_, _ = fmt.Fprintln(w, "---------\t-------")
	for _, b := range isqs {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", b.Name, strings.Join(b.Options, ", "))
	}
	_ = w.Flush()
}

// formatRunSummary writes the headline numbers of a run.
func formatRunSummary(out io.Writer, run *model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", run.ID)
	_, _ = fmt.Fprintf(w, "MCAT:\t%s\n", run.Input.MCATName)
	_, _ = fmt.Fprintf(w, "Status:\t%s\n", run.Status)
	if r := run.Result; r != nil {
		_, _ = fmt.Fprintf(w, "Pages used:\t%d\n", r.PagesUsed)
		_, _ = fmt.Fprintf(w, "Common specs:\t%d\n", len(r.CommonSpecs))
		_, _ = fmt.Fprintf(w, "Buyer ISQs:\t%d\n", len(r.BuyerISQs))
		_, _ = fmt.Fprintf(w, "Tokens:\t%d\n", r.TotalTokens)
		_, _ = fmt.Fprintf(w, "Cost:\t$%.4f\n", r.TotalCost)
		if r.Error != "" {
			_, _ = fmt.Fprintf(w, "Error:\t%s\n", r.Error)
		}
	}
	_ = w.Flush()
}

// exportFormat picks the export format from an explicit flag or the output
// file extension, defaulting to xlsx.
func exportFormat(format, path string) (string, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	switch format {
	case "", "xlsx":
		return "xlsx", nil
	case "json":
		return "json", nil
	default:
		return "", eris.Errorf("unsupported export format %q (want xlsx or json)", format)
	}
}

// writeReport exports run to path, or to a dated default file name when
// path is empty. It returns the path written.
func writeReport(run *model.Run, path, format string, now time.Time) (string, error) {
	format, err := exportFormat(format, path)
	if err != nil {
		return "", err
	}
	if path == "" {
		path = export.FileName(run.Input.MCATName, "Complete", format, now)
	}

	report := export.FromRun(run, now)
	if format == "json" {
		f, err := createFile(path)
		if err != nil {
			return "", err
		}
		defer f.Close() //nolint:errcheck
		return path, eris.Wrapf(export.WriteJSON(f, report), "export %s", path)
	}
	return path, eris.Wrapf(export.WriteWorkbook(path, report), "export %s", path)
}
