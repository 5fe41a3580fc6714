// Package extract asks the LLM for the specifications shown on competitor
// pages and turns its answer into a typed ExtractionResult.
package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/isq-cli/internal/model"
)

// Limits applied to parsed extraction output.
const (
	MaxConfigOptions = 8
	MaxKeys          = 3
	MaxKeyOptions    = 6
	MaxBuyers        = 2
	MaxBuyerOptions  = 8

	maxConfigOptionLen = 50
)

// Parse turns a raw LLM response into an ExtractionResult. It never fails:
// text that cannot be decoded or repaired is salvaged by pattern, and text
// with nothing recognizable yields an empty result.
func Parse(text string) model.ExtractionResult {
	body := stripFences(text)
	if res, ok := parseObject(body); ok && !res.IsEmpty() {
		return res
	}
	return salvage(body)
}

// parseObject decodes the outermost JSON object in body, repairing it when
// the response was cut off.
func parseObject(body string) (model.ExtractionResult, bool) {
	start := strings.Index(body, "{")
	if start < 0 {
		return model.ExtractionResult{}, false
	}
	tail := body[start:]
	if end := strings.LastIndex(tail, "}"); end >= 0 {
		if doc, ok := decode(tail[:end+1]); ok {
			return validate(doc), true
		}
	}
	if doc, ok := decode(repairJSON(tail)); ok {
		return validate(doc), true
	}
	return model.ExtractionResult{}, false
}

// stripFences removes a surrounding markdown code fence.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func decode(s string) (map[string]any, bool) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return nil, false
	}
	return doc, true
}

var trailingCommaRe = regexp.MustCompile(`,\s*([\]}])`)

// repairJSON closes a truncated JSON document: an open string is terminated,
// a dangling key gets a null value, and open arrays and objects are closed in
// nesting order. Trailing commas are dropped.
func repairJSON(s string) string {
	var (
		stack    []byte
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(s)
	if inString {
		if escaped {
			b.WriteByte('\\')
		}
		b.WriteByte('"')
	}
	out := strings.TrimRight(b.String(), " \t\r\n")
	switch {
	case strings.HasSuffix(out, ":"):
		out += "null"
	case strings.HasSuffix(out, ","):
		out = strings.TrimSuffix(out, ",")
	}
	for i := len(stack) - 1; i >= 0; i-- {
		out += string(stack[i])
	}
	return trailingCommaRe.ReplaceAllString(out, "$1")
}

var (
	nameFieldRe    = regexp.MustCompile(`"name"\s*:\s*"([^"]*)"`)
	optionsFieldRe = regexp.MustCompile(`"options"\s*:\s*\[([^\]]*)`)
	quotedRe       = regexp.MustCompile(`"([^"]*)"`)
)

// salvage recovers name/options pairs from text that is not decodable JSON.
// The first pair is the config; the rest are keys.
func salvage(text string) model.ExtractionResult {
	names := nameFieldRe.FindAllStringSubmatchIndex(text, -1)
	if len(names) == 0 {
		return emptyResult()
	}

	doc := map[string]any{}
	var keys []any
	for i, m := range names {
		segEnd := len(text)
		if i+1 < len(names) {
			segEnd = names[i+1][0]
		}
		spec := map[string]any{"name": text[m[2]:m[3]]}
		var opts []any
		if om := optionsFieldRe.FindStringSubmatch(text[m[1]:segEnd]); om != nil {
			for _, q := range quotedRe.FindAllStringSubmatch(om[1], -1) {
				opts = append(opts, q[1])
			}
		}
		spec["options"] = opts
		if i == 0 {
			doc["config"] = spec
		} else {
			keys = append(keys, spec)
		}
	}
	doc["keys"] = keys
	return validate(doc)
}

func emptyResult() model.ExtractionResult {
	return model.ExtractionResult{Keys: []model.SpecEntry{}, Buyers: []model.SpecEntry{}}
}

// validate applies the extraction limits to a decoded document.
func validate(doc map[string]any) model.ExtractionResult {
	res := emptyResult()

	if cfg, ok := doc["config"].(map[string]any); ok {
		name := sanitize(stringValue(cfg["name"]))
		if name != "" {
			res.Config = model.SpecEntry{
				Name: name,
				Options: cleanOptions(cfg["options"], name, MaxConfigOptions, func(o string) bool {
					return utf8.RuneCountInString(o) < maxConfigOptionLen
				}),
			}
		}
	}

	for _, k := range listValue(doc["keys"]) {
		if len(res.Keys) == MaxKeys {
			break
		}
		spec, ok := cleanSpec(k, res.Config.Name, MaxKeyOptions)
		if ok {
			res.Keys = append(res.Keys, spec)
		}
	}

	for _, b := range listValue(doc["buyers"]) {
		if len(res.Buyers) == MaxBuyers {
			break
		}
		spec, ok := cleanSpec(b, "", MaxBuyerOptions)
		if ok {
			res.Buyers = append(res.Buyers, spec)
		}
	}
	return res
}

// cleanSpec validates one key or buyer entry. Entries named like the config
// spec, or left without options, are rejected.
func cleanSpec(v any, configName string, maxOptions int) (model.SpecEntry, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return model.SpecEntry{}, false
	}
	name := sanitize(stringValue(m["name"]))
	if name == "" || (configName != "" && strings.EqualFold(name, configName)) {
		return model.SpecEntry{}, false
	}
	opts := cleanOptions(m["options"], "", maxOptions, nil)
	if len(opts) == 0 {
		return model.SpecEntry{}, false
	}
	return model.SpecEntry{Name: name, Options: opts}, true
}

// cleanOptions keeps non-empty, distinct option strings up to limit. Options
// equal to exclude (the entry's own name) are dropped.
func cleanOptions(v any, exclude string, limit int, keep func(string) bool) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, raw := range listValue(v) {
		if len(out) == limit {
			break
		}
		o := sanitize(stringValue(raw))
		if o == "" || (exclude != "" && strings.EqualFold(o, exclude)) {
			continue
		}
		if keep != nil && !keep(o) {
			continue
		}
		k := strings.ToLower(o)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, o)
	}
	return out
}

func listValue(v any) []any {
	l, _ := v.([]any)
	return l
}

// stringValue accepts strings and bare numbers ("options": [304, 316]).
func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// sanitize folds compatibility characters (full-width digits, ligatures)
// and collapses whitespace.
func sanitize(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}
