package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productPage = `<html><head><title>SS 304 Sheet &amp; Plate</title>
<script>var x = "Thickness: 99 mm";</script><style>.a{}</style></head>
<body><nav>Home | Products</nav>
<h1>Stainless Steel 304 Sheet</h1>
<table><tr><td>Thickness</td><td>1 mm to 6 mm</td></tr>
<tr><td>Finish</td><td>2B&nbsp;/ BA</td></tr></table>
<p>Available in   multiple    sizes.</p>
<footer>Copyright 2025</footer></body></html>`

func TestLocalScraper_ProductPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "ISQBot")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(productPage))
	}))
	defer srv.Close()

	page, err := NewLocalScraper(5 * time.Second).Scrape(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "local_http", page.Source)
	assert.Equal(t, "SS 304 Sheet & Plate", page.Title)
	assert.Equal(t, 200, page.StatusCode)
	assert.Equal(t, srv.URL, page.URL)
	assert.False(t, page.FetchedAt.IsZero())

	assert.Contains(t, page.Text, "Stainless Steel 304 Sheet")
	assert.Contains(t, page.Text, "1 mm to 6 mm")
	assert.Contains(t, page.Text, "2B / BA")
	assert.Contains(t, page.Text, "Available in multiple sizes.")
	assert.NotContains(t, page.Text, "99 mm")
	assert.NotContains(t, page.Text, "Home | Products")
	assert.NotContains(t, page.Text, "Copyright")
}

func TestLocalScraper_Blocked(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Cf-Ray", "abc123")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<html><body>Access denied</body></html>`))
	}))
	defer srv.Close()

	_, err := NewLocalScraper(0).Scrape(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked (cloudflare)")
}

func TestLocalScraper_EmptyBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html></html>`))
	}))
	defer srv.Close()

	_, err := NewLocalScraper(0).Scrape(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty page")
}

func TestLocalScraper_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(strings.Repeat("missing ", 50)))
	}))
	defer srv.Close()

	_, err := NewLocalScraper(0).Scrape(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestLocalScraper_Supports(t *testing.T) {
	t.Parallel()

	s := NewLocalScraper(0)
	assert.True(t, s.Supports("https://shop.example"))
	assert.True(t, s.Supports("http://shop.example"))
	assert.False(t, s.Supports("ftp://shop.example"))
	assert.Equal(t, 60*time.Second, s.client.Timeout)
}

func TestHTMLToText(t *testing.T) {
	t.Parallel()

	got := HTMLToText("<div>Grade</div><div>304 &amp; 316</div><!-- hidden --><br>\n\n\n\n<li>Round</li>")
	assert.Equal(t, "Grade\n304 & 316\n\nRound", got)
}

func TestExtractTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "MS Pipe", extractTitle([]byte("<TITLE> MS Pipe </TITLE>")))
	assert.Empty(t, extractTitle([]byte("<html></html>")))
}
