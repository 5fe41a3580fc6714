package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/isq-cli/internal/scrape"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract web specs for a product from competitor pages",
	Long:  "Fetches the given pages, asks Claude for the config, key and buyer specs and prints the extraction as JSON. Nothing is stored.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		mcat, _ := cmd.Flags().GetString("mcat")
		urls, _ := cmd.Flags().GetStringSlice("url")
		discover, _ := cmd.Flags().GetBool("discover")
		site, _ := cmd.Flags().GetString("site")

		env, err := initService(ctx, "extract", false)
		if err != nil {
			return err
		}
		defer env.Close()

		if len(urls) == 0 && discover {
			if env.Jina == nil {
				return eris.New("extract: --discover needs jina.key")
			}
			urls, err = scrape.DiscoverURLs(ctx, env.Jina, mcat, site, cfg.Scrape.DiscoverLimit)
			if err != nil {
				return eris.Wrap(err, "extract")
			}
			zap.L().Info("discovered urls", zap.Strings("urls", urls))
		}
		if len(urls) == 0 {
			return eris.New("extract: at least one --url is required")
		}

		out, err := env.Extractor.Extract(ctx, mcat, urls)
		if err != nil {
			return eris.Wrap(err, "extract")
		}

		zap.L().Info("extraction complete",
			zap.Int("pages", len(out.Pages)),
			zap.Int64("tokens", out.Usage.Total()),
			zap.Float64("cost", out.Cost),
		)
		return printJSON(os.Stdout, out.Result)
	},
}

func init() {
	extractCmd.Flags().String("mcat", "", "product category name")
	extractCmd.Flags().StringSlice("url", nil, "competitor URL (repeatable)")
	extractCmd.Flags().Bool("discover", false, "search the web for URLs when none are given")
	extractCmd.Flags().String("site", "", "restrict discovery to one domain")
	_ = extractCmd.MarkFlagRequired("mcat")
	rootCmd.AddCommand(extractCmd)
}
