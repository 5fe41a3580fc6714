// Package specmatch decides when two specification names, or two option
// values, refer to the same real-world attribute or value. Every function in
// the package is pure and total: malformed input yields an empty or
// non-matching result, never an error.
package specmatch

import "strings"

type alias struct {
	key       string
	canonical string
}

// nameAliases is the canonical alias table for specification names. Order
// matters: the fuzzy fallback in canonicalToken takes the first hit. Every
// canonical value is also a key mapping to itself, which keeps NormalizeName
// idempotent.
var nameAliases = []alias{
	{"material", "material"},
	{"grade", "grade"},
	{"thk", "thickness"},
	{"thickness", "thickness"},
	{"type", "type"},
	{"shape", "shape"},
	{"size", "size"},
	{"dimension", "size"},
	{"length", "length"},
	{"width", "width"},
	{"height", "height"},
	{"dia", "diameter"},
	{"diameter", "diameter"},
	{"color", "color"},
	{"colour", "color"},
	{"finish", "finish"},
	{"surface", "finish"},
	{"weight", "weight"},
	{"wt", "weight"},
	{"capacity", "capacity"},
	{"brand", "brand"},
	{"model", "model"},
	{"quality", "quality"},
	{"standard", "standard"},
	{"specification", "spec"},
	{"spec", "spec"},
	{"perforation", "hole"},
	{"hole", "hole"},
	{"pattern", "pattern"},
	{"design", "design"},
	{"application", "application"},
	{"usage", "application"},
}

// fillerWords are dropped from normalized names. They are never fuzzy
// matched against the alias table.
var fillerWords = map[string]bool{
	"sheet": true,
	"plate": true,
	"pipe":  true,
	"rod":   true,
	"bar":   true,
	"in":    true,
	"for":   true,
	"of":    true,
	"the":   true,
	"and":   true,
	"or":    true,
}

// minFuzzyLen is the shortest string allowed on either side of a fuzzy
// substring alias hit. Shorter tokens ("mm", "x") only match exactly.
const minFuzzyLen = 3

var namePunct = strings.NewReplacer(
	"(", " ",
	")", " ",
	"-", " ",
	"_", " ",
	",", " ",
	".", " ",
	";", " ",
	"/", " ",
)

// NormalizeName canonicalizes a specification name into a space-separated
// token sequence:
//  1. Lowercase, trim, replace punctuation with spaces
//  2. Split into tokens
//  3. Substitute alias table values (exact first, then fuzzy substring)
//  4. Drop repeated tokens, keeping the first occurrence
//  5. Drop filler words
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	name = namePunct.Replace(name)

	tokens := strings.Fields(name)
	seen := make(map[string]bool, len(tokens))
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = canonicalToken(tok)
		if seen[tok] {
			continue
		}
		seen[tok] = true
		if fillerWords[tok] {
			continue
		}
		kept = append(kept, tok)
	}

	return strings.Join(kept, " ")
}

func canonicalToken(tok string) string {
	for _, a := range nameAliases {
		if a.key == tok {
			return a.canonical
		}
	}
	if fillerWords[tok] || len(tok) < minFuzzyLen {
		return tok
	}
	for _, a := range nameAliases {
		if len(a.key) < minFuzzyLen {
			continue
		}
		if strings.Contains(a.key, tok) || strings.Contains(tok, a.key) {
			return a.canonical
		}
	}
	return tok
}

// synonymGroups lists names that denote the same attribute. A pair of
// normalized names is similar when each contains some member of one group.
var synonymGroups = [][]string{
	{"material", "composition", "fabric"},
	{"grade", "quality", "class", "standard"},
	{"thickness", "thk", "gauge"},
	{"diameter", "dia", "bore"},
	{"color", "colour", "shade"},
	{"finish", "surface", "coating", "polish"},
	{"weight", "wt", "mass"},
	{"type", "kind", "variety", "style"},
	{"shape", "form", "profile"},
	{"hole", "perforation", "aperture"},
	{"pattern", "design", "arrangement"},
	{"application", "use", "purpose", "usage"},
	{"size", "dimension", "measurement"},
	{"length", "long", "lng"},
	{"width", "breadth", "wide"},
	{"height", "high", "depth"},
}

// SimilarNames reports whether two specification names denote the same
// attribute. The relation is symmetric but not transitive.
func SimilarNames(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}

	normA, normB := NormalizeName(a), NormalizeName(b)
	if normA == "" || normB == "" {
		// Names made only of filler words compare on their raw form;
		// an empty string would otherwise be a substring of everything.
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	if normA == normB {
		return true
	}
	if strings.Contains(normA, normB) || strings.Contains(normB, normA) {
		return true
	}

	for _, group := range synonymGroups {
		if containsAny(normA, group) && containsAny(normB, group) {
			return true
		}
	}
	return false
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
