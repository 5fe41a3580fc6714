package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/isq-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Input:     model.AuditInput{MCATName: "Stainless Steel Sheet", Specifications: make([]model.SpecEntry, 3)},
			Status:    model.RunStatusComplete,
			Result:    &model.RunResult{BuyerISQs: []model.BuyerISQ{{Name: "Grade"}, {Name: "Thickness"}}},
			CreatedAt: now,
			UpdatedAt: now.Add(2 * time.Minute),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Input:     model.AuditInput{MCATName: "Industrial Exhaust Fan With Very Long Name"},
			Status:    model.RunStatusExtracting,
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-30 * time.Minute),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "MCAT")
	assert.Contains(t, output, "Stainless Steel Sheet")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "extracting")
	assert.Contains(t, output, "Industrial Exhaust Fan With...")
	assert.Contains(t, output, "2026-03-14 10:30")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "2m0s")
}

func TestFormatRunsList_NoMCAT(t *testing.T) {
	var buf bytes.Buffer
	formatRunsList(&buf, []model.Run{{ID: "short", Status: model.RunStatusFailed}})

	output := buf.String()
	assert.Contains(t, output, "short")
	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "-")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "abc", truncateID("abc"))
}
