package model

import "time"

// FetchedPage is the plain-text content of one competitor page.
type FetchedPage struct {
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Text       string    `json:"text"`
	StatusCode int       `json:"status_code"`
	Source     string    `json:"source"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// Truncate returns a copy of the page whose text is capped at max runes.
// A non-positive max leaves the text untouched.
func (p FetchedPage) Truncate(max int) FetchedPage {
	if max <= 0 {
		return p
	}
	r := []rune(p.Text)
	if len(r) > max {
		p.Text = string(r[:max])
	}
	return p
}
