package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/isq-cli/internal/model"
	"github.com/sells-group/isq-cli/internal/specmatch"
)

func spec(name string, opts ...string) model.SpecEntry {
	return model.SpecEntry{Name: name, Options: opts}
}

func weighted(priority int, name string, opts ...string) model.WeightedSpec {
	return model.WeightedSpec{SpecEntry: spec(name, opts...), Priority: priority}
}

func TestReconcile_GradeScenario(t *testing.T) {
	t.Parallel()

	source := FromSeller([]model.SpecEntry{
		{Name: "Grade", Options: []string{"SS304", "SS316", "SS202"}, Tier: model.TierPrimary},
	})
	target := FromExtraction(model.ExtractionResult{Config: spec("Grade", "304", "316")})

	pairs := Reconcile(source, target)
	require.Len(t, pairs, 1)
	assert.Equal(t, []string{"SS304", "SS316"}, pairs[0].CommonOptions)
	assert.Equal(t, 6, pairs[0].CombinedPriority)
}

func TestReconcile_ThicknessScenario(t *testing.T) {
	t.Parallel()

	source := FromSeller([]model.SpecEntry{
		{Name: "Thickness", Options: []string{"1mm", "2mm", "5mm"}, Tier: model.TierPrimary},
	})
	target := FromExtraction(model.ExtractionResult{
		Keys: []model.SpecEntry{spec("Thk", "1 mm", "25.4mm")},
	})

	pairs := Reconcile(source, target)
	require.Len(t, pairs, 1)
	assert.Equal(t, []string{"1mm"}, pairs[0].CommonOptions)
	assert.Equal(t, "Thk", pairs[0].Target.Name)
	assert.Equal(t, 5, pairs[0].CombinedPriority)
}

func TestReconcile_EmptyExtraction(t *testing.T) {
	t.Parallel()

	source := FromSeller([]model.SpecEntry{
		{Name: "Grade", Options: []string{"SS304"}, Tier: model.TierPrimary},
	})
	target := FromExtraction(model.ExtractionResult{Config: spec("", "304")})

	pairs := Reconcile(source, target)
	assert.NotNil(t, pairs)
	assert.Empty(t, pairs)

	buyers := SelectTop(pairs, []model.SpecEntry{spec("Grade", "SS304")}, DefaultSelectOptions())
	assert.NotNil(t, buyers)
	assert.Empty(t, buyers)
}

func TestReconcile_EmptyInputs(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Reconcile(nil, []model.WeightedSpec{weighted(3, "Grade", "304")}))
	assert.Empty(t, Reconcile([]model.WeightedSpec{weighted(3, "Grade", "304")}, nil))
}

func TestReconcile_PrefersHighestCombinedPriority(t *testing.T) {
	t.Parallel()

	source := []model.WeightedSpec{weighted(3, "Thickness", "1mm", "2mm")}
	target := []model.WeightedSpec{
		weighted(1, "Thickness", "1mm"),
		weighted(2, "Thk", "2mm"),
		weighted(2, "Sheet Thickness", "1mm"),
	}

	pairs := Reconcile(source, target)
	require.Len(t, pairs, 1)
	// First of the two priority-2 candidates wins the tie.
	assert.Equal(t, "Thk", pairs[0].Target.Name)
	assert.Equal(t, 5, pairs[0].CombinedPriority)
	assert.Equal(t, []string{"2mm"}, pairs[0].CommonOptions)
}

func TestReconcile_OneToOne(t *testing.T) {
	t.Parallel()

	source := []model.WeightedSpec{
		weighted(3, "Thickness", "1mm"),
		weighted(2, "Thk", "1mm"),
		weighted(1, "Sheet Thickness", "1mm"),
		weighted(3, "Colour", "Red"),
	}
	target := []model.WeightedSpec{
		weighted(3, "Thickness", "1 mm"),
		weighted(2, "Thickness", "2 mm"),
		weighted(2, "Color", "red"),
	}

	pairs := Reconcile(source, target)
	require.Len(t, pairs, 3)

	used := make(map[string]bool)
	for _, p := range pairs {
		key := p.Target.Name + "/" + p.Target.Options[0]
		assert.False(t, used[key], "target %s paired twice", key)
		used[key] = true
	}
}

func TestReconcile_DedupesBySourceNameAndSorts(t *testing.T) {
	t.Parallel()

	source := []model.WeightedSpec{
		weighted(1, "Finish", "Matt"),
		weighted(3, "Grade", "304"),
		weighted(3, "Grade", "316"),
		weighted(2, "Width", "1 m"),
	}
	target := []model.WeightedSpec{
		weighted(2, "Surface Finish", "matt"),
		weighted(3, "Grade", "304", "316"),
		weighted(1, "Grade", "316"),
		weighted(3, "Width", "1000 mm"),
	}

	pairs := Reconcile(source, target)
	require.Len(t, pairs, 3)
	assert.Equal(t, "Grade", pairs[0].Source.Name)
	assert.Equal(t, []string{"304"}, pairs[0].CommonOptions)
	assert.Equal(t, "Width", pairs[1].Source.Name)
	assert.Equal(t, []string{"1 m"}, pairs[1].CommonOptions)
	assert.Equal(t, "Finish", pairs[2].Source.Name)

	for i := 1; i < len(pairs); i++ {
		assert.GreaterOrEqual(t, pairs[i-1].CombinedPriority, pairs[i].CombinedPriority)
	}
}

func TestReconcile_KeepsPairWithoutCommonOptions(t *testing.T) {
	t.Parallel()

	pairs := Reconcile(
		[]model.WeightedSpec{weighted(3, "Color", "Red")},
		[]model.WeightedSpec{weighted(2, "Colour", "Blue")},
	)
	require.Len(t, pairs, 1)
	assert.NotNil(t, pairs[0].CommonOptions)
	assert.Empty(t, pairs[0].CommonOptions)
}

func TestReconcile_TargetOptionConsumedOnce(t *testing.T) {
	t.Parallel()

	pairs := Reconcile(
		[]model.WeightedSpec{weighted(3, "Thickness", "1mm", "1 mm", "1.0mm")},
		[]model.WeightedSpec{weighted(3, "Thickness", "1mm")},
	)
	require.Len(t, pairs, 1)
	assert.Equal(t, []string{"1mm"}, pairs[0].CommonOptions)
}

func TestReconcile_CustomPolicy(t *testing.T) {
	t.Parallel()

	r := New(specmatch.NewMatcher(specmatch.Policy{UnitInferenceMaxMM: 500}))
	pairs := r.Reconcile(
		[]model.WeightedSpec{weighted(3, "Length", "250")},
		[]model.WeightedSpec{weighted(3, "Length", "250 mm")},
	)
	require.Len(t, pairs, 1)
	assert.Equal(t, []string{"250"}, pairs[0].CommonOptions)

	pairs = Reconcile(
		[]model.WeightedSpec{weighted(3, "Length", "250")},
		[]model.WeightedSpec{weighted(3, "Length", "250 mm")},
	)
	require.Len(t, pairs, 1)
	assert.Empty(t, pairs[0].CommonOptions)
}
