package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/isq-cli/internal/audit"
	"github.com/sells-group/isq-cli/internal/extract"
	"github.com/sells-group/isq-cli/internal/reconcile"
	"github.com/sells-group/isq-cli/internal/scrape"
	"github.com/sells-group/isq-cli/internal/specmatch"
	"github.com/sells-group/isq-cli/internal/store"
	"github.com/sells-group/isq-cli/internal/workflow"
	anthropicpkg "github.com/sells-group/isq-cli/pkg/anthropic"
	"github.com/sells-group/isq-cli/pkg/jina"
)

// serviceEnv holds the store, clients and workflow service used by the
// run, rerun, extract and serve commands.
type serviceEnv struct {
	Store     store.Store
	Service   *workflow.Service
	Extractor *extract.Extractor
	Jina      jina.Client // nil unless a Jina key is configured
}

// Close releases resources held by the environment.
func (e *serviceEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "isq.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens and migrates the configured store.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// newMatcher builds the option matcher from the match config section.
func newMatcher() *specmatch.Matcher {
	return specmatch.NewMatcher(cfg.Match)
}

// newAuditor returns the LLM auditor, or the rule checker alone when no
// Anthropic key is configured or noLLM is set.
func newAuditor(noLLM bool) audit.Auditor {
	checker := audit.NewChecker(newMatcher())
	if noLLM || cfg.Anthropic.Key == "" {
		zap.L().Debug("anthropic disabled, auditing with rules only")
		return checker
	}
	return audit.NewLLMAuditor(newAnthropic(), checker, cfg.Audit, cfg.Retry.Resilience())
}

func newAnthropic() anthropicpkg.Client {
	var opts []anthropicpkg.ClientOption
	if cfg.Anthropic.BaseURL != "" {
		opts = append(opts, anthropicpkg.WithBaseURL(cfg.Anthropic.BaseURL))
	}
	if cfg.Anthropic.TimeoutSecs > 0 {
		opts = append(opts, anthropicpkg.WithTimeout(time.Duration(cfg.Anthropic.TimeoutSecs)*time.Second))
	}
	return anthropicpkg.NewClient(cfg.Anthropic.Key, opts...)
}

func newJina() jina.Client {
	if cfg.Jina.Key == "" {
		return nil
	}
	opts := []jina.Option{jina.WithRetry(cfg.Retry.Resilience())}
	if cfg.Jina.BaseURL != "" {
		opts = append(opts, jina.WithBaseURL(cfg.Jina.BaseURL))
	}
	if cfg.Jina.SearchBaseURL != "" {
		opts = append(opts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
	}
	return jina.NewClient(cfg.Jina.Key, opts...)
}

// newChain builds the page scrape chain: direct HTTP first, then the Jina
// reader when enabled. Pages are cached in cache when it is non-nil.
func newChain(jinaClient jina.Client, cache scrape.PageCache) *scrape.Chain {
	scrapers := []scrape.Scraper{
		scrape.NewLocalScraper(time.Duration(cfg.Scrape.TimeoutSecs) * time.Second),
	}
	if cfg.Scrape.UseJina && jinaClient != nil {
		scrapers = append(scrapers, scrape.NewJinaScraper(jinaClient))
	}
	chain := scrape.NewChain(scrapers...)
	if cache != nil {
		chain = chain.WithCache(cache, cfg.Cache.PageTTL())
	}
	return chain
}

// initService validates config for mode, opens the store and wires the
// workflow service. Callers should defer env.Close().
func initService(ctx context.Context, mode string, noLLM bool) (*serviceEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	jinaClient := newJina()
	ex := extract.New(newAnthropic(), newChain(jinaClient, st), cfg.Extract,
		extract.WithRetry(cfg.Retry.Resilience()),
	)

	opts := []workflow.Option{
		workflow.WithReconciler(reconcile.New(newMatcher())),
		workflow.WithBuyerOptions(cfg.Buyer),
	}
	if jinaClient != nil {
		limit := cfg.Scrape.DiscoverLimit
		opts = append(opts, workflow.WithDiscovery(func(ctx context.Context, mcat string) ([]string, error) {
			return scrape.DiscoverURLs(ctx, jinaClient, mcat, "", limit)
		}))
		zap.L().Info("jina url discovery enabled", zap.Int("limit", limit))
	}

	return &serviceEnv{
		Store:     st,
		Service:   workflow.New(st, newAuditor(noLLM), ex, opts...),
		Extractor: ex,
		Jina:      jinaClient,
	}, nil
}
