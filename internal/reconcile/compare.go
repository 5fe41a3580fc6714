package reconcile

import "github.com/sells-group/isq-cli/internal/model"

// Compare diffs two spec collections. Specs are paired exactly as in
// Reconcile; each pair reports the options on both sides and on each side
// alone. Common specs keep source order.
func (r *Reconciler) Compare(source, target []model.WeightedSpec) model.Comparison {
	cmp := model.Comparison{
		Common:          []model.CommonSpec{},
		SourceOnlySpecs: []model.SpecEntry{},
		TargetOnlySpecs: []model.SpecEntry{},
	}

	pairedSource := make([]bool, len(source))
	pairedTarget := make([]bool, len(target))
	for _, p := range pairSpecs(source, target) {
		pairedSource[p.source], pairedTarget[p.target] = true, true
		src, tgt := source[p.source], target[p.target]

		common, srcOnly, tgtOnly := r.intersect(src.Options, tgt.Options)
		cmp.Common = append(cmp.Common, model.CommonSpec{
			Name:          src.Name,
			SourceName:    src.Name,
			TargetName:    tgt.Name,
			CommonOptions: common,
			SourceOnly:    nonNil(srcOnly),
			TargetOnly:    nonNil(tgtOnly),
		})
	}

	for i, s := range source {
		if !pairedSource[i] {
			cmp.SourceOnlySpecs = append(cmp.SourceOnlySpecs, s.SpecEntry)
		}
	}
	for i, t := range target {
		if !pairedTarget[i] {
			cmp.TargetOnlySpecs = append(cmp.TargetOnlySpecs, t.SpecEntry)
		}
	}
	return cmp
}

// Compare diffs two collections under the default policy.
func Compare(source, target []model.WeightedSpec) model.Comparison {
	return defaultReconciler.Compare(source, target)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
