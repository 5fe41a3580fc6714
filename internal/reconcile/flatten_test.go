package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/isq-cli/internal/model"
)

func TestFromSeller(t *testing.T) {
	t.Parallel()

	got := FromSeller([]model.SpecEntry{
		{Name: " Grade ", Options: []string{" 304 ", "", "316"}, Tier: model.TierPrimary},
		{Name: "  ", Options: []string{"x"}, Tier: model.TierPrimary},
		{Name: "Finish", Options: nil, Tier: model.TierSecondary},
		{Name: "Color", Options: []string{"Red"}},
	})

	require.Len(t, got, 3)
	assert.Equal(t, "Grade", got[0].Name)
	assert.Equal(t, []string{"304", "316"}, got[0].Options)
	assert.Equal(t, 3, got[0].Priority)
	assert.Equal(t, 0, got[0].Index)

	assert.Equal(t, "Finish", got[1].Name)
	assert.Equal(t, 2, got[1].Priority)
	assert.Equal(t, 2, got[1].Index)

	assert.Equal(t, model.TierTertiary, got[2].Tier)
	assert.Equal(t, 1, got[2].Priority)
}

func TestFromExtraction(t *testing.T) {
	t.Parallel()

	got := FromExtraction(model.ExtractionResult{
		Config: spec("Grade", "304", "316"),
		Keys: []model.SpecEntry{
			spec("Thickness", "1 mm"),
			spec("Finish"),
			spec("", "x"),
		},
		Buyers: []model.SpecEntry{spec("Color", " ", "Red")},
	})

	require.Len(t, got, 3)
	assert.Equal(t, model.PriorityConfig, got[0].Priority)
	assert.Equal(t, "Thickness", got[1].Name)
	assert.Equal(t, model.PriorityKey, got[1].Priority)
	assert.Equal(t, 1, got[1].Index)
	assert.Equal(t, "Color", got[2].Name)
	assert.Equal(t, []string{"Red"}, got[2].Options)
	assert.Equal(t, model.PriorityBuyer, got[2].Priority)
	assert.Equal(t, 4, got[2].Index)
}

func TestFromExtraction_NoConfig(t *testing.T) {
	t.Parallel()

	got := FromExtraction(model.ExtractionResult{})
	assert.Empty(t, got)
}
