// Package scrape retrieves competitor product pages as plain text for the
// extraction stage.
package scrape

import (
	"context"
	"time"

	"github.com/sells-group/isq-cli/internal/model"
)

// Scraper fetches a single URL and returns its text content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*model.FetchedPage, error)
	Name() string
	Supports(url string) bool
}

// PageCache stores fetched pages between runs. GetCachedPage returns nil,
// nil on a miss.
type PageCache interface {
	GetCachedPage(ctx context.Context, url string) (*model.FetchedPage, error)
	SetCachedPage(ctx context.Context, page model.FetchedPage, ttl time.Duration) error
}
