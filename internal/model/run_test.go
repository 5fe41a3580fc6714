package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status RunStatus
		want   string
	}{
		{RunStatusQueued, "queued"},
		{RunStatusAuditing, "auditing"},
		{RunStatusAudited, "audited"},
		{RunStatusFetching, "fetching"},
		{RunStatusExtracting, "extracting"},
		{RunStatusReconciling, "reconciling"},
		{RunStatusComplete, "complete"},
		{RunStatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
		})
	}
}

func TestFetchedPage_Truncate(t *testing.T) {
	t.Parallel()

	p := FetchedPage{URL: "https://example.com", Text: "héllo world"}
	assert.Equal(t, "héllo", p.Truncate(5).Text)
	assert.Equal(t, "héllo world", p.Truncate(0).Text)
	assert.Equal(t, "héllo world", p.Truncate(100).Text)
	// Original is not modified.
	assert.Equal(t, "héllo world", p.Text)
}
