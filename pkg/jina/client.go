// Package jina provides a client for the Jina AI reader and search API.
package jina

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/isq-cli/internal/resilience"
)

// Client defines the Jina AI operations used to gather competitor pages.
type Client interface {
	// Read fetches a URL through the reader and returns its markdown.
	Read(ctx context.Context, targetURL string) (*ReadResponse, error)
	// Search runs a web search and returns the result pages.
	Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error)
}

// ReadResponse is the parsed reader response.
type ReadResponse struct {
	Code int      `json:"code"`
	Data ReadData `json:"data"`
}

// ReadData holds the page content.
type ReadData struct {
	Title   string    `json:"title"`
	URL     string    `json:"url"`
	Content string    `json:"content"`
	Usage   ReadUsage `json:"usage"`
}

// ReadUsage tracks token consumption.
type ReadUsage struct {
	Tokens int `json:"tokens"`
}

// SearchResponse is the parsed search response.
type SearchResponse struct {
	Code int            `json:"code"`
	Data []SearchResult `json:"data"`
}

// SearchResult is a single search hit.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

// SearchOption configures a search request.
type SearchOption func(*searchOpts)

type searchOpts struct {
	siteFilter string
}

// WithSiteFilter restricts results to one domain.
func WithSiteFilter(domain string) SearchOption {
	return func(o *searchOpts) {
		o.siteFilter = domain
	}
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets the reader base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithSearchBaseURL sets the search base URL.
func WithSearchBaseURL(u string) Option {
	return func(c *httpClient) {
		c.searchBaseURL = u
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetry sets the retry policy for transient statuses.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey        string
	baseURL       string
	searchBaseURL string
	http          *http.Client
	retry         resilience.RetryConfig
}

// NewClient creates a Jina client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:        apiKey,
		baseURL:       "https://r.jina.ai",
		searchBaseURL: "https://s.jina.ai",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Second,
			MaxBackoff:     10 * time.Second,
			OnRetry:        resilience.RetryLogger("jina", "get"),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs a GET with retries. Retryable statuses surface as
// resilience.TransientError; other statuses are returned to the caller.
func (c *httpClient) get(ctx context.Context, reqURL string, headers map[string]string) ([]byte, int, error) {
	type result struct {
		body   []byte
		status int
	}

	res, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (result, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return result{}, eris.Wrap(err, "jina: create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return result{}, eris.Wrap(err, "jina: request failed")
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return result{}, eris.Wrap(err, "jina: read response body")
		}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return result{}, resilience.FromResponse(
				eris.Errorf("jina: status %d: %s", resp.StatusCode, string(body)), resp)
		}
		return result{body: body, status: resp.StatusCode}, nil
	})
	return res.body, res.status, err
}

func (c *httpClient) Read(ctx context.Context, targetURL string) (*ReadResponse, error) {
	reqURL := fmt.Sprintf("%s/%s", c.baseURL, targetURL)

	body, statusCode, err := c.get(ctx, reqURL, map[string]string{"X-Return-Format": "markdown"})
	if err != nil {
		return nil, err
	}
	if statusCode != http.StatusOK {
		return nil, eris.Errorf("jina: unexpected status %d: %s", statusCode, string(body))
	}

	var result ReadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal response")
	}
	return &result, nil
}

func (c *httpClient) Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error) {
	so := &searchOpts{}
	for _, opt := range opts {
		opt(so)
	}

	reqURL := fmt.Sprintf("%s/%s", c.searchBaseURL, url.QueryEscape(query))
	if so.siteFilter != "" {
		reqURL += "?site=" + url.QueryEscape(so.siteFilter)
	}

	body, statusCode, err := c.get(ctx, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "jina: search")
	}

	// 422 means no results for the query.
	if statusCode == http.StatusUnprocessableEntity {
		return &SearchResponse{Code: 422}, nil
	}
	if statusCode != http.StatusOK {
		return nil, eris.Errorf("jina: search unexpected status %d: %s", statusCode, string(body))
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal search response")
	}
	return &result, nil
}
