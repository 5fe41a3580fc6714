package scrape

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/isq-cli/internal/model"
)

// Chain tries scrapers in order, returning the first success. An optional
// PageCache is consulted before any scraper runs.
type Chain struct {
	scrapers []Scraper
	cache    PageCache
	cacheTTL time.Duration
}

// NewChain creates a Chain over scrapers, tried in the given order.
func NewChain(scrapers ...Scraper) *Chain {
	return &Chain{scrapers: scrapers}
}

// WithCache enables page caching for ttl. A non-positive ttl disables it.
func (c *Chain) WithCache(cache PageCache, ttl time.Duration) *Chain {
	if ttl > 0 {
		c.cache, c.cacheTTL = cache, ttl
	}
	return c
}

// Scrape fetches one URL.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*model.FetchedPage, error) {
	if page := c.cached(ctx, targetURL); page != nil {
		return page, nil
	}

	var lastErr error
	for _, s := range c.scrapers {
		if !s.Supports(targetURL) {
			continue
		}
		page, err := s.Scrape(ctx, targetURL)
		if err == nil && page != nil {
			c.store(ctx, *page)
			return page, nil
		}
		if err != nil {
			zap.L().Debug("scrape: scraper failed, trying next",
				zap.String("scraper", s.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all scrapers failed")
	}
	return nil, eris.Errorf("scrape: no suitable scraper for url: %s", targetURL)
}

// ScrapeAll fetches urls in parallel with at most maxConcurrent in flight.
// Failed URLs are skipped. Duplicate and blank URLs are ignored, and the
// returned pages keep the order of urls.
func (c *Chain) ScrapeAll(ctx context.Context, urls []string, maxConcurrent int) []model.FetchedPage {
	urls = uniqueURLs(urls)
	results := make([]*model.FetchedPage, len(urls))

	g, gCtx := errgroup.WithContext(ctx)
	if maxConcurrent > 0 {
		g.SetLimit(maxConcurrent)
	}

	var mu sync.Mutex
	failed := 0
	for i, u := range urls {
		g.Go(func() error {
			page, err := c.Scrape(gCtx, u)
			if err != nil {
				zap.L().Warn("scrape: url skipped", zap.String("url", u), zap.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			results[i] = page
			return nil
		})
	}
	_ = g.Wait()

	pages := make([]model.FetchedPage, 0, len(urls))
	for _, p := range results {
		if p != nil {
			pages = append(pages, *p)
		}
	}

	zap.L().Info("scrape: fetch complete",
		zap.Int("requested", len(urls)),
		zap.Int("fetched", len(pages)),
		zap.Int("failed", failed),
	)
	return pages
}

func (c *Chain) cached(ctx context.Context, u string) *model.FetchedPage {
	if c.cache == nil {
		return nil
	}
	page, err := c.cache.GetCachedPage(ctx, u)
	if err != nil {
		zap.L().Warn("scrape: page cache read failed", zap.String("url", u), zap.Error(err))
		return nil
	}
	if page != nil {
		page.Source = "cache"
	}
	return page
}

func (c *Chain) store(ctx context.Context, page model.FetchedPage) {
	if c.cache == nil {
		return
	}
	if err := c.cache.SetCachedPage(ctx, page, c.cacheTTL); err != nil {
		zap.L().Warn("scrape: page cache write failed", zap.String("url", page.URL), zap.Error(err))
	}
}

func uniqueURLs(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
