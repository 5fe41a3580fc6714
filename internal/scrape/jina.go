package scrape

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/isq-cli/internal/model"
	"github.com/sells-group/isq-cli/pkg/jina"
)

// breaker skips a flaky upstream after repeated failures inside a window.
type breaker struct {
	mu        sync.Mutex
	failures  int
	last      time.Time
	openUntil time.Time
	threshold int
	window    time.Duration
	cooldown  time.Duration
	now       func() time.Time
}

func (b *breaker) open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now().Before(b.openUntil)
}

func (b *breaker) record(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ok {
		b.failures = 0
		return
	}
	now := b.now()
	if now.Sub(b.last) > b.window {
		b.failures = 0
	}
	b.failures++
	b.last = now
	if b.failures >= b.threshold {
		b.openUntil = now.Add(b.cooldown)
		zap.L().Warn("scrape: jina breaker opened",
			zap.Int("failures", b.failures),
			zap.Duration("cooldown", b.cooldown),
		)
	}
}

// JinaScraper reads pages through the Jina reader. Three failures within
// 30s stop it from being offered for 60s.
type JinaScraper struct {
	client  jina.Client
	breaker *breaker
}

// NewJinaScraper wraps a Jina client as a Scraper.
func NewJinaScraper(client jina.Client) *JinaScraper {
	return &JinaScraper{
		client: client,
		breaker: &breaker{
			threshold: 3,
			window:    30 * time.Second,
			cooldown:  60 * time.Second,
			now:       time.Now,
		},
	}
}

func (j *JinaScraper) Name() string { return "jina" }

// Supports returns false while the breaker is open.
func (j *JinaScraper) Supports(_ string) bool {
	return !j.breaker.open()
}

func (j *JinaScraper) Scrape(ctx context.Context, targetURL string) (*model.FetchedPage, error) {
	if j.breaker.open() {
		return nil, eris.New("jina: breaker open")
	}

	resp, err := j.client.Read(ctx, targetURL)
	if err != nil {
		j.breaker.record(false)
		return nil, err
	}
	if unusable(resp) {
		j.breaker.record(false)
		return nil, eris.Errorf("jina: unusable content for %s", targetURL)
	}
	j.breaker.record(true)

	u := resp.Data.URL
	if u == "" {
		u = targetURL
	}
	return &model.FetchedPage{
		URL:        u,
		Title:      resp.Data.Title,
		Text:       strings.TrimSpace(resp.Data.Content),
		StatusCode: 200,
		Source:     j.Name(),
		FetchedAt:  time.Now().UTC(),
	}, nil
}

var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"attention required",
}

// unusable reports whether a reader response is empty, an error or a
// short bot-challenge page.
func unusable(resp *jina.ReadResponse) bool {
	if resp == nil || (resp.Code != 0 && resp.Code != 200) {
		return true
	}
	content := strings.TrimSpace(resp.Data.Content)
	if len(content) < minBodyBytes {
		return true
	}
	if len(content) >= 1000 {
		return false
	}
	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
