package scrape

import (
	"net/http"
	"strings"
)

// BlockType describes an anti-bot response.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockAkamai     BlockType = "akamai"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// DetectBlock checks a response for signs of anti-bot protection.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return true, BlockCloudflare
		}
		if strings.Contains(strings.ToLower(resp.Header.Get("server")), "akamai") {
			return true, BlockAkamai
		}
	}

	lower := strings.ToLower(string(body))

	switch {
	case strings.Contains(lower, "checking your browser"),
		strings.Contains(lower, "cf-browser-verification"),
		strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge"):
		return true, BlockCloudflare
	case strings.Contains(lower, "access denied") && strings.Contains(lower, "reference #"):
		return true, BlockAkamai
	case strings.Contains(lower, "captcha"):
		return true, BlockCaptcha
	}

	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}
	return false, BlockNone
}
