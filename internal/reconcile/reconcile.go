package reconcile

import (
	"slices"

	"github.com/sells-group/isq-cli/internal/model"
	"github.com/sells-group/isq-cli/internal/specmatch"
)

// Reconciler pairs specs by name similarity and intersects their options.
type Reconciler struct {
	matcher *specmatch.Matcher
}

// New creates a Reconciler. A nil matcher uses the default policy.
func New(m *specmatch.Matcher) *Reconciler {
	if m == nil {
		m = specmatch.NewMatcher(specmatch.DefaultPolicy())
	}
	return &Reconciler{matcher: m}
}

var defaultReconciler = New(nil)

// Reconcile pairs specs under the default policy.
func Reconcile(source, target []model.WeightedSpec) []model.MatchedSpecPair {
	return defaultReconciler.Reconcile(source, target)
}

// Reconcile finds a 1:1 pairing of source to target specs, preferring the
// highest combined priority, and returns each pair's common options in
// source wording. Pairs are de-duplicated by source name (first kept) and
// stably sorted by descending combined priority.
func (r *Reconciler) Reconcile(source, target []model.WeightedSpec) []model.MatchedSpecPair {
	if len(source) == 0 || len(target) == 0 {
		return []model.MatchedSpecPair{}
	}

	pairs := make([]model.MatchedSpecPair, 0, len(source))
	seen := make(map[string]bool, len(source))
	for _, p := range pairSpecs(source, target) {
		src, tgt := source[p.source], target[p.target]
		if seen[src.Name] {
			continue
		}
		seen[src.Name] = true

		common, _, _ := r.intersect(src.Options, tgt.Options)
		pairs = append(pairs, model.MatchedSpecPair{
			Source:           src.SpecEntry,
			Target:           tgt.SpecEntry,
			SourceIndex:      src.Index,
			TargetIndex:      tgt.Index,
			CommonOptions:    common,
			CombinedPriority: src.Priority + tgt.Priority,
		})
	}

	slices.SortStableFunc(pairs, func(a, b model.MatchedSpecPair) int {
		return b.CombinedPriority - a.CombinedPriority
	})
	return pairs
}

type pairing struct {
	source int
	target int
}

// pairSpecs greedily assigns each source spec, in order, the unconsumed
// similar target with the highest combined priority. Ties go to the
// earliest target.
func pairSpecs(source, target []model.WeightedSpec) []pairing {
	consumed := make([]bool, len(target))
	var out []pairing
	for si, src := range source {
		best, bestScore := -1, 0
		for ti, tgt := range target {
			if consumed[ti] || !specmatch.SimilarNames(src.Name, tgt.Name) {
				continue
			}
			if score := src.Priority + tgt.Priority; best < 0 || score > bestScore {
				best, bestScore = ti, score
			}
		}
		if best < 0 {
			continue
		}
		consumed[best] = true
		out = append(out, pairing{source: si, target: best})
	}
	return out
}

// intersect walks source options in order, consuming the first unconsumed
// matching target option for each. It returns the matched source options
// plus the unmatched remainder of each side.
func (r *Reconciler) intersect(source, target []string) (common, sourceOnly, targetOnly []string) {
	common = []string{}
	consumed := make([]bool, len(target))
	for _, s := range source {
		hit := -1
		for ti, t := range target {
			if !consumed[ti] && r.matcher.Match(s, t) {
				hit = ti
				break
			}
		}
		if hit < 0 {
			sourceOnly = append(sourceOnly, s)
			continue
		}
		consumed[hit] = true
		common = append(common, s)
	}
	for ti, t := range target {
		if !consumed[ti] {
			targetOnly = append(targetOnly, t)
		}
	}
	return common, sourceOnly, targetOnly
}
