package extract

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/isq-cli/internal/model"
	"github.com/sells-group/isq-cli/internal/resilience"
	"github.com/sells-group/isq-cli/pkg/anthropic"
)

// Config controls the extraction LLM call and page handling.
type Config struct {
	Model         string  `mapstructure:"model" json:"model"`
	MaxTokens     int64   `mapstructure:"max_tokens" json:"max_tokens"`
	Temperature   float64 `mapstructure:"temperature" json:"temperature"`
	PageChars     int     `mapstructure:"page_chars" json:"page_chars"`
	MaxConcurrent int     `mapstructure:"max_concurrent" json:"max_concurrent"`
	RatePerSec    float64 `mapstructure:"rate_per_sec" json:"rate_per_sec"`
}

// Defaults for zero Config fields.
const (
	DefaultModel         = "claude-haiku-4-5-20251001"
	DefaultMaxTokens     = 4000
	DefaultTemperature   = 0.3
	DefaultPageChars     = 2000
	DefaultMaxConcurrent = 5
	DefaultRatePerSec    = 1.0
)

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Temperature <= 0 {
		c.Temperature = DefaultTemperature
	}
	if c.PageChars <= 0 {
		c.PageChars = DefaultPageChars
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = DefaultRatePerSec
	}
	return c
}

// PageFetcher retrieves page text for a set of URLs, skipping failures.
// scrape.Chain satisfies it.
type PageFetcher interface {
	ScrapeAll(ctx context.Context, urls []string, maxConcurrent int) []model.FetchedPage
}

// Output is one extraction with its accounting.
type Output struct {
	Result   model.ExtractionResult `json:"result"`
	Pages    []model.FetchedPage    `json:"pages"`
	Usage    anthropic.TokenUsage   `json:"usage"`
	Cost     float64                `json:"cost"`
	Attempts int                    `json:"attempts"`
}

// Extractor fetches competitor pages and asks the LLM for their specs.
type Extractor struct {
	client  anthropic.Client
	pages   PageFetcher
	cfg     Config
	retry   resilience.RetryConfig
	limiter *rate.Limiter
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRetry replaces the LLM retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(e *Extractor) { e.retry = cfg }
}

// WithLimiter replaces the LLM call pacing.
func WithLimiter(l *rate.Limiter) Option {
	return func(e *Extractor) { e.limiter = l }
}

// New creates an Extractor.
func New(client anthropic.Client, pages PageFetcher, cfg Config, opts ...Option) *Extractor {
	cfg = cfg.withDefaults()
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("anthropic", "extract")
	e := &Extractor{
		client:  client,
		pages:   pages,
		cfg:     cfg,
		retry:   retry,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract fetches urls and extracts the specifications they show for mcat.
// No fetched pages, or a response without a usable config spec, yields an
// empty result and no error. An LLM failure that survives retries is
// returned.
func (e *Extractor) Extract(ctx context.Context, mcat string, urls []string) (*Output, error) {
	log := zap.L().With(zap.String("mcat", mcat))
	start := time.Now()

	out := &Output{Result: emptyResult(), Pages: []model.FetchedPage{}}
	if len(urls) == 0 {
		return out, nil
	}

	fetched := e.pages.ScrapeAll(ctx, urls, e.cfg.MaxConcurrent)
	for _, p := range fetched {
		if p.Text == "" {
			continue
		}
		out.Pages = append(out.Pages, p.Truncate(e.cfg.PageChars))
	}
	if len(out.Pages) == 0 {
		log.Warn("extract: no page content fetched", zap.Int("urls", len(urls)))
		return out, nil
	}

	temp := e.cfg.Temperature
	req := anthropic.MessageRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		System:      anthropic.CachedSystem(systemPrompt),
		Messages:    anthropic.UserMessage(buildPrompt(mcat, out.Pages)),
		Temperature: &temp,
	}

	resp, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		out.Attempts++
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "extract: rate limit wait")
		}
		resp, err := e.client.CreateMessage(ctx, req)
		if err != nil {
			return nil, anthropic.Retryable(err)
		}
		return resp, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "extract: llm call for %q", mcat)
	}

	out.Usage = resp.Usage
	out.Cost = resp.Usage.EstimateCost(e.cfg.Model)
	resp.Usage.LogCost(e.cfg.Model, "extract")

	result := Parse(resp.Text())
	if !result.HasConfig() || len(result.Config.Options) == 0 {
		log.Warn("extract: response carried no config spec", zap.Int("pages", len(out.Pages)))
		return out, nil
	}
	out.Result = result

	log.Info("extract: complete",
		zap.String("config", result.Config.Name),
		zap.Int("keys", len(result.Keys)),
		zap.Int("buyers", len(result.Buyers)),
		zap.Int("pages", len(out.Pages)),
		zap.Int("attempts", out.Attempts),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}
