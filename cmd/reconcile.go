package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/isq-cli/internal/model"
	"github.com/sells-group/isq-cli/internal/reconcile"
	"github.com/sells-group/isq-cli/internal/upload"
)

type reconcileOutput struct {
	CommonSpecs []model.MatchedSpecPair `json:"common_specs"`
	BuyerISQs   []model.BuyerISQ        `json:"buyer_isqs"`
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a seller spec file with a saved extraction result",
	RunE: func(cmd *cobra.Command, _ []string) error {
		specsPath, _ := cmd.Flags().GetString("specs")
		extractionPath, _ := cmd.Flags().GetString("extraction")
		asJSON, _ := cmd.Flags().GetBool("json")

		in, err := upload.Parse(specsPath)
		if err != nil {
			return eris.Wrap(err, "reconcile")
		}
		ex, err := readExtraction(extractionPath)
		if err != nil {
			return eris.Wrap(err, "reconcile")
		}

		out := reconcileFiles(in, ex)
		if asJSON {
			return printJSON(os.Stdout, out)
		}
		formatBuyers(os.Stdout, out.BuyerISQs)
		return nil
	},
}

func reconcileFiles(in model.AuditInput, ex model.ExtractionResult) reconcileOutput {
	r := reconcile.New(newMatcher())
	pairs := r.Reconcile(reconcile.FromSeller(in.Specifications), reconcile.FromExtraction(ex))
	return reconcileOutput{
		CommonSpecs: pairs,
		BuyerISQs:   reconcile.SelectTop(pairs, in.Specifications, cfg.Buyer),
	}
}

func init() {
	reconcileCmd.Flags().String("specs", "", "seller spec upload (.xlsx, .json, .yaml)")
	reconcileCmd.Flags().String("extraction", "", "extraction result JSON, raw or fenced")
	reconcileCmd.Flags().Bool("json", false, "print common specs and buyer ISQs as JSON")
	_ = reconcileCmd.MarkFlagRequired("specs")
	_ = reconcileCmd.MarkFlagRequired("extraction")
	rootCmd.AddCommand(reconcileCmd)
}
