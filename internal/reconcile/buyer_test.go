package reconcile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/isq-cli/internal/model"
)

func pair(name string, priority int, common ...string) model.MatchedSpecPair {
	return model.MatchedSpecPair{
		Source:           spec(name),
		Target:           spec(name),
		CommonOptions:    common,
		CombinedPriority: priority,
	}
}

func TestSelectTop_Backfill(t *testing.T) {
	t.Parallel()

	raw := []model.SpecEntry{spec("Color", "Red", "Blue", "Green", "Other")}
	got := SelectTop([]model.MatchedSpecPair{pair("Color", 6, "Red")}, raw, DefaultSelectOptions())

	require.Len(t, got, 1)
	assert.Equal(t, "Color", got[0].Name)
	assert.Equal(t, []string{"Red", "Blue", "Green"}, got[0].Options)
}

func TestSelectTop_MaxSpecs(t *testing.T) {
	t.Parallel()

	pairs := []model.MatchedSpecPair{
		pair("Grade", 6, "304"),
		pair("Thickness", 5, "1mm"),
		pair("Color", 4, "Red"),
	}
	got := SelectTop(pairs, nil, DefaultSelectOptions())

	require.Len(t, got, 2)
	assert.Equal(t, "Grade", got[0].Name)
	assert.Equal(t, "Thickness", got[1].Name)
}

func TestSelectTop_CapAndDedupe(t *testing.T) {
	t.Parallel()

	raw := []model.SpecEntry{spec("Size",
		"1 mm", "2 mm", "3 mm", "4 mm", "5 mm", "6 mm", "7 mm", "8 mm", "9 mm", "10 mm")}
	got := SelectTop(
		[]model.MatchedSpecPair{pair("Size", 6, "1mm", "1 MM", "2mm")},
		raw,
		SelectOptions{MaxSpecs: 1, MaxOptions: 5},
	)

	require.Len(t, got, 1)
	assert.Equal(t, []string{"1mm", "2mm", "3 mm", "4 mm", "5 mm"}, got[0].Options)
}

func TestSelectTop_SimilarNameFallback(t *testing.T) {
	t.Parallel()

	raw := []model.SpecEntry{spec("Colour", "Red", "White")}
	got := SelectTop([]model.MatchedSpecPair{pair("Color", 6)}, raw, DefaultSelectOptions())

	require.Len(t, got, 1)
	assert.Equal(t, []string{"Red", "White"}, got[0].Options)
}

func TestSelectTop_Placeholder(t *testing.T) {
	t.Parallel()

	pairs := []model.MatchedSpecPair{pair("Pattern", 4)}

	got := SelectTop(pairs, nil, DefaultSelectOptions())
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Options)

	got = SelectTop(pairs, nil, SelectOptions{Placeholder: "No options available"})
	require.Len(t, got, 1)
	assert.Equal(t, []string{"No options available"}, got[0].Options)
}

func TestSelectTop_Empty(t *testing.T) {
	t.Parallel()

	got := SelectTop(nil, []model.SpecEntry{spec("Grade", "304")}, DefaultSelectOptions())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSelectTop_Bounded(t *testing.T) {
	t.Parallel()

	raw := []model.SpecEntry{
		spec("Grade", "304", "316", "202", "304", "OTHER", "  316 ", "410", "430", "904L", "321", "310S"),
		spec("Finish", "Matt", "matt", "Mirror", "Brushed", "HL", "2B", "BA", "No. 4", "No. 8", "PVD"),
	}
	pairs := []model.MatchedSpecPair{
		pair("Grade", 6, "304", "316"),
		pair("Finish", 5, "Matt"),
		pair("Width", 4, "1 m"),
	}
	opts := SelectOptions{MaxSpecs: 2, MaxOptions: 8}

	got := SelectTop(pairs, raw, opts)
	require.LessOrEqual(t, len(got), opts.MaxSpecs)
	for _, b := range got {
		assert.LessOrEqual(t, len(b.Options), opts.MaxOptions)
		seen := make(map[string]bool)
		for _, o := range b.Options {
			key := strings.ToLower(strings.Join(strings.Fields(o), ""))
			assert.False(t, seen[key], "duplicate option %q in %s", o, b.Name)
			assert.NotEqual(t, "other", key)
			seen[key] = true
		}
	}

	again := SelectTop(pairs, raw, opts)
	assert.Equal(t, got, again)
}
