package extract

import (
	"fmt"
	"strings"

	"github.com/sells-group/isq-cli/internal/model"
)

// systemPrompt is sent as a cached system block; it does not vary per call.
const systemPrompt = `You extract product specifications from competitor product pages for a B2B marketplace.

Steps:
1. Collect every visible specification on every page: technical tables, descriptions, variant pickers, size charts, grade sheets, material details and tabbed sections.
2. Merge equivalent specifications ("Material Grade", "Grade" -> "Grade") and equivalent options ("304" and "SS 304" -> "SS 304").
3. Count how often each specification and option appears across pages after merging.
4. The config specification is the most frequent one and the one that most affects price.
5. Key specifications are the next three most frequent ones that set the product apart from similar products.
6. Order specifications and options by frequency, highest first. At most 8 options per specification.
7. When pages give ranges for the same specification, output the overlapping range (0.3-6 mm, 0.1-5 mm, 0.25-5 mm -> 0.3-5 mm).

Rules:
- Only use values that appear on the pages. Do not invent specifications or options.
- Skip specifications already fixed by the product name ("Stainless Steel 304 Pipe" fixes Material and Grade).
- Never repeat a specification or an option.
- No placeholder options such as "Other" or "etc.".

Return ONLY a JSON object, with no markdown and no text around it:
{"config":{"name":"Grade","options":["SS 304","SS 316"]},"keys":[{"name":"Thickness","options":["0.3 mm to 5 mm"]},{"name":"Width","options":["1250 mm","1500 mm"]},{"name":"Finish","options":["2B","BA"]}],"buyers":[]}`

// buildPrompt renders the per-call user message: the product name followed
// by each page's URL and text.
func buildPrompt(mcat string, pages []model.FetchedPage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n\n", mcat)
	for i, p := range pages {
		fmt.Fprintf(&b, "URL %d: %s\n", i+1, p.URL)
		if p.Title != "" {
			fmt.Fprintf(&b, "Title: %s\n", p.Title)
		}
		fmt.Fprintf(&b, "Content:\n%s\n\n", p.Text)
	}
	b.WriteString("Extract the config, key and buyer specifications as JSON.")
	return b.String()
}
