package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/isq-cli/internal/model"
	"github.com/sells-group/isq-cli/internal/reconcile"
	"github.com/sells-group/isq-cli/internal/upload"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Diff the specs of two upload files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		leftPath, _ := cmd.Flags().GetString("left")
		rightPath, _ := cmd.Flags().GetString("right")
		asJSON, _ := cmd.Flags().GetBool("json")

		left, err := upload.Parse(leftPath)
		if err != nil {
			return eris.Wrap(err, "compare left")
		}
		right, err := upload.Parse(rightPath)
		if err != nil {
			return eris.Wrap(err, "compare right")
		}

		r := reconcile.New(newMatcher())
		cmp := r.Compare(reconcile.FromSeller(left.Specifications), reconcile.FromSeller(right.Specifications))
		if asJSON {
			return printJSON(os.Stdout, cmp)
		}
		formatComparison(os.Stdout, cmp)
		return nil
	},
}

// formatComparison writes the paired specs and each side's leftovers.
func formatComparison(out io.Writer, cmp model.Comparison) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SPEC\tCOMMON\tLEFT ONLY\tRIGHT ONLY")
	_, _ = fmt.Fprintln(w, "----\t------\t---------\t----------")
	for _, c := range cmp.Common {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			c.Name,
			strings.Join(c.CommonOptions, ", "),
			strings.Join(c.SourceOnly, ", "),
			strings.Join(c.TargetOnly, ", "),
		)
	}
	for _, s := range cmp.SourceOnlySpecs {
		_, _ = fmt.Fprintf(w, "%s\t\t%s\t\n", s.Name, strings.Join(s.Options, ", "))
	}
	for _, s := range cmp.TargetOnlySpecs {
		_, _ = fmt.Fprintf(w, "%s\t\t\t%s\n", s.Name, strings.Join(s.Options, ", "))
	}
	_ = w.Flush()
}

func init() {
	compareCmd.Flags().String("left", "", "first spec upload")
	compareCmd.Flags().String("right", "", "second spec upload")
	compareCmd.Flags().Bool("json", false, "print the comparison as JSON")
	_ = compareCmd.MarkFlagRequired("left")
	_ = compareCmd.MarkFlagRequired("right")
	rootCmd.AddCommand(compareCmd)
}
