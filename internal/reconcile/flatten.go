// Package reconcile pairs two specification collections, intersects the
// options of each pair and selects the buyer-facing specification set.
package reconcile

import (
	"strings"

	"github.com/sells-group/isq-cli/internal/model"
)

// FromSeller weights seller specs by tier. Entries with a blank name are
// dropped; options are trimmed and blank options removed.
func FromSeller(specs []model.SpecEntry) []model.WeightedSpec {
	out := make([]model.WeightedSpec, 0, len(specs))
	for i, s := range specs {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}
		tier := s.Tier
		if tier == "" {
			tier = model.TierTertiary
		}
		out = append(out, model.WeightedSpec{
			SpecEntry: model.SpecEntry{
				Name:      name,
				Options:   cleanOptions(s.Options),
				Tier:      tier,
				InputType: s.InputType,
			},
			Priority: tier.Priority(),
			Index:    i,
		})
	}
	return out
}

// FromExtraction weights an extraction result: config 3, keys 2, buyers 1.
// Entries without a name or without any non-blank option contribute nothing.
// Index counts positions across the flattened config, keys, buyers order.
func FromExtraction(r model.ExtractionResult) []model.WeightedSpec {
	var out []model.WeightedSpec
	idx := 0
	add := func(s model.SpecEntry, priority int) {
		defer func() { idx++ }()
		name := strings.TrimSpace(s.Name)
		opts := cleanOptions(s.Options)
		if name == "" || len(opts) == 0 {
			return
		}
		out = append(out, model.WeightedSpec{
			SpecEntry: model.SpecEntry{Name: name, Options: opts, InputType: s.InputType},
			Priority:  priority,
			Index:     idx,
		})
	}

	add(r.Config, model.PriorityConfig)
	for _, k := range r.Keys {
		add(k, model.PriorityKey)
	}
	for _, b := range r.Buyers {
		add(b, model.PriorityBuyer)
	}
	return out
}

func cleanOptions(opts []string) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
