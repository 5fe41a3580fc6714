package model

import "time"

// RunStatus represents the current stage of an ISQ run.
type RunStatus string

const (
	RunStatusQueued      RunStatus = "queued"
	RunStatusAuditing    RunStatus = "auditing"
	RunStatusAudited     RunStatus = "audited"
	RunStatusFetching    RunStatus = "fetching"
	RunStatusExtracting  RunStatus = "extracting"
	RunStatusReconciling RunStatus = "reconciling"
	RunStatusComplete    RunStatus = "complete"
	RunStatusFailed      RunStatus = "failed"
)

// Run is one seller upload moving through audit, extraction and
// reconciliation. URLs are kept so the extraction stage can be re-run.
type Run struct {
	ID        string     `json:"id"`
	Input     AuditInput `json:"input"`
	URLs      []string   `json:"urls,omitempty"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds everything a run has produced so far.
type RunResult struct {
	Audit       []AuditResult     `json:"audit,omitempty"`
	Extraction  *ExtractionResult `json:"extraction,omitempty"`
	CommonSpecs []MatchedSpecPair `json:"common_specs,omitempty"`
	BuyerISQs   []BuyerISQ        `json:"buyer_isqs,omitempty"`
	PagesUsed   int               `json:"pages_used"`
	TotalTokens int64             `json:"total_tokens"`
	TotalCost   float64           `json:"total_cost"`
	Attempts    int               `json:"attempts"`
	Error       string            `json:"error,omitempty"`
}
