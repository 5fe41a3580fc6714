package specmatch

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// OptionKind identifies which canonical form a NormalizedOption carries.
type OptionKind string

// Option kinds, in normalization priority order.
const (
	KindGrade       OptionKind = "grade"
	KindMeasurement OptionKind = "measurement"
	KindText        OptionKind = "text"
)

// NormalizedOption is the canonical form of an option value.
type NormalizedOption struct {
	Kind        OptionKind   `json:"kind"`
	Grade       string       `json:"grade,omitempty"`
	Measurement *Measurement `json:"measurement,omitempty"`
	// Text is the cleaned lowercase value, or the canonical term when the
	// value is a known material or shape alias.
	Text string `json:"text"`
	// Term is set when Text came from the alias table.
	Term bool `json:"term,omitempty"`
}

// termGroups lists whole-value aliases for materials and shapes. The first
// member of each group is canonical.
var termGroups = [][]string{
	{"ms", "mild steel", "carbon steel"},
	{"gi", "galvanized iron", "galvanised iron"},
	{"ss", "stainless steel"},
	{"aluminium", "aluminum", "al"},
	{"hot rolled", "hr"},
	{"cold rolled", "cr"},
	{"round", "circular", "circle"},
	{"square", "squared"},
	{"rectangular", "rectangle"},
	{"hexagonal", "hexagon", "hex"},
	{"pipe", "tube", "tubular"},
	{"slotted", "slot"},
}

var termIndex = buildTermIndex()

func buildTermIndex() map[string]string {
	idx := make(map[string]string)
	for _, g := range termGroups {
		for _, t := range g {
			idx[t] = g[0]
		}
	}
	return idx
}

// vulgarFractions are spelled out before NFKC so "1½" reads as "1 1/2"
// rather than "11/2".
var vulgarFractions = strings.NewReplacer(
	"½", " 1/2",
	"¼", " 1/4",
	"¾", " 3/4",
	"⅛", " 1/8",
	"⅜", " 3/8",
	"⅝", " 5/8",
	"⅞", " 7/8",
)

var optionReplacer = strings.NewReplacer(
	"⁄", "/",
	"×", "x",
	"′′", `"`,
	"″", `"`,
	"”", `"`,
	"“", `"`,
	"′", "'",
	"’", "'",
	"‘", "'",
	"–", "-",
	"—", "-",
	"−", "-",
	"‐", "-",
)

// cleanOption folds compatibility characters, lowercases, unifies quote and
// dash variants and collapses whitespace.
func cleanOption(s string) string {
	s = norm.NFKC.String(vulgarFractions.Replace(s))
	s = optionReplacer.Replace(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

// termKey reduces a value to lowercase alphanumeric words.
func termKey(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// squash lowercases s and removes all whitespace.
func squash(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// NormalizeOption returns the canonical form of an option under p.
func (p Policy) NormalizeOption(s string) NormalizedOption {
	cleaned := cleanOption(s)
	out := NormalizedOption{Kind: KindText, Text: cleaned}

	if canon, ok := termIndex[termKey(cleaned)]; ok {
		out.Text, out.Term = canon, true
	}
	if m, ok := p.ParseMeasurement(cleaned); ok {
		out.Kind, out.Measurement = KindMeasurement, &m
	}
	if g := Grade(cleaned); g != "" {
		out.Kind, out.Grade = KindGrade, g
	}
	return out
}

// NormalizeOption returns the canonical form of an option under the default
// policy.
func NormalizeOption(s string) NormalizedOption {
	return DefaultPolicy().NormalizeOption(s)
}
