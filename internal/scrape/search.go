package scrape

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/isq-cli/pkg/jina"
)

// DiscoverURLs searches the web for a product category and returns up to
// limit result URLs, optionally restricted to site.
func DiscoverURLs(ctx context.Context, client jina.Client, mcat, site string, limit int) ([]string, error) {
	var opts []jina.SearchOption
	if site != "" {
		opts = append(opts, jina.WithSiteFilter(site))
	}

	resp, err := client.Search(ctx, mcat, opts...)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: discover urls for %q", mcat)
	}

	all := make([]string, 0, len(resp.Data))
	for _, r := range resp.Data {
		all = append(all, r.URL)
	}
	urls := uniqueURLs(all)
	if limit > 0 && len(urls) > limit {
		urls = urls[:limit]
	}
	return urls, nil
}
