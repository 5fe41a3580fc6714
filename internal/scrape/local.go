package scrape

import (
	"context"
	"html"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/isq-cli/internal/model"
)

const (
	maxBodyBytes = 1 << 20
	minBodyBytes = 100
	userAgent    = "Mozilla/5.0 (compatible; ISQBot/1.0)"
)

// LocalScraper fetches HTML directly and converts it to plain text.
type LocalScraper struct {
	client *http.Client
	now    func() time.Time
}

// NewLocalScraper creates a LocalScraper. A zero timeout uses 60s, the
// budget a slow marketplace page needs.
func NewLocalScraper(timeout time.Duration) *LocalScraper {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &LocalScraper{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		now: time.Now,
	}
}

func (l *LocalScraper) Name() string { return "local_http" }

// Supports accepts http and https URLs.
func (l *LocalScraper) Supports(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// Scrape fetches a URL, rejects blocked or empty pages and strips HTML.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*model.FetchedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if blocked, kind := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("local_http: blocked (%s)", kind)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}
	if len(body) < minBodyBytes {
		return nil, eris.New("local_http: empty page")
	}

	return &model.FetchedPage{
		URL:        targetURL,
		Title:      extractTitle(body),
		Text:       HTMLToText(string(body)),
		StatusCode: resp.StatusCode,
		Source:     l.Name(),
		FetchedAt:  l.now().UTC(),
	}, nil
}

var (
	titleRe     = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	dropBlockRe = regexp.MustCompile(`(?is)<(script|style|noscript|svg|nav|footer|header)\b[^>]*>.*?</(?:script|style|noscript|svg|nav|footer|header)>`)
	commentRe   = regexp.MustCompile(`(?s)<!--.*?-->`)
	breakTagRe  = regexp.MustCompile(`(?i)<(?:br|/p|/div|/li|/tr|/h[1-6]|/td|/th)\b[^>]*>`)
	tagRe       = regexp.MustCompile(`<[^>]+>`)
	spaceRe     = regexp.MustCompile(`[ \t\r\f\v]+`)
	blankRe     = regexp.MustCompile(`\n\s*\n(\s*\n)+`)
)

func extractTitle(body []byte) string {
	if m := titleRe.FindSubmatch(body); len(m) > 1 {
		return strings.TrimSpace(html.UnescapeString(string(m[1])))
	}
	return ""
}

// HTMLToText drops non-content blocks, turns block-level closers into line
// breaks, strips tags, decodes entities and collapses whitespace. Table
// cells stay on separate lines so "Thickness | 2 mm" rows survive.
func HTMLToText(s string) string {
	s = commentRe.ReplaceAllString(s, "")
	s = dropBlockRe.ReplaceAllString(s, "")
	s = breakTagRe.ReplaceAllString(s, "\n")
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, " ", " ")
	s = spaceRe.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimSpace(ln)
	}
	s = strings.Join(lines, "\n")
	s = blankRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
