package reconcile

import (
	"strings"
	"unicode"

	"github.com/sells-group/isq-cli/internal/model"
	"github.com/sells-group/isq-cli/internal/specmatch"
)

// SelectOptions bounds the buyer ISQ output.
type SelectOptions struct {
	MaxSpecs    int    `mapstructure:"max_specs"`
	MaxOptions  int    `mapstructure:"max_options"`
	// Placeholder, when non-empty, is emitted as the only option of a
	// selected spec that ends up with none.
	Placeholder string `mapstructure:"placeholder"`
}

// Default selection bounds.
const (
	DefaultMaxSpecs   = 2
	DefaultMaxOptions = 8
)

// DefaultSelectOptions returns the standard bounds with no placeholder.
func DefaultSelectOptions() SelectOptions {
	return SelectOptions{MaxSpecs: DefaultMaxSpecs, MaxOptions: DefaultMaxOptions}
}

func (o SelectOptions) withDefaults() SelectOptions {
	if o.MaxSpecs <= 0 {
		o.MaxSpecs = DefaultMaxSpecs
	}
	if o.MaxOptions <= 0 {
		o.MaxOptions = DefaultMaxOptions
	}
	return o
}

const otherOption = "other"

// SelectTop takes the first MaxSpecs pairs (already priority sorted) and
// back-fills each one's common options from the raw seller spec of the same
// name, skipping "Other" and case/whitespace duplicates, up to MaxOptions.
func SelectTop(pairs []model.MatchedSpecPair, raw []model.SpecEntry, opts SelectOptions) []model.BuyerISQ {
	opts = opts.withDefaults()
	if len(pairs) == 0 {
		return []model.BuyerISQ{}
	}
	if len(pairs) > opts.MaxSpecs {
		pairs = pairs[:opts.MaxSpecs]
	}

	out := make([]model.BuyerISQ, 0, len(pairs))
	for _, p := range pairs {
		options := make([]string, 0, opts.MaxOptions)
		seen := make(map[string]bool)
		add := func(o string) {
			key := foldKey(o)
			if key == "" || seen[key] || len(options) >= opts.MaxOptions {
				return
			}
			seen[key] = true
			options = append(options, o)
		}

		for _, o := range p.CommonOptions {
			add(o)
		}
		if len(options) < opts.MaxOptions {
			if src, ok := findRaw(raw, p.Source.Name); ok {
				for _, o := range src.Options {
					if strings.EqualFold(strings.TrimSpace(o), otherOption) {
						continue
					}
					add(strings.TrimSpace(o))
				}
			}
		}

		if len(options) == 0 && opts.Placeholder != "" {
			options = append(options, opts.Placeholder)
		}
		out = append(out, model.BuyerISQ{Name: p.Source.Name, Options: options})
	}
	return out
}

// findRaw locates the raw spec by exact name, falling back to name
// similarity.
func findRaw(raw []model.SpecEntry, name string) (model.SpecEntry, bool) {
	for _, s := range raw {
		if s.Name == name {
			return s, true
		}
	}
	for _, s := range raw {
		if specmatch.SimilarNames(s.Name, name) {
			return s, true
		}
	}
	return model.SpecEntry{}, false
}

// foldKey is the case and whitespace insensitive identity of an option.
func foldKey(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}
