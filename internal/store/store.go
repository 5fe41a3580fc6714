// Package store persists ISQ runs and the fetched-page cache.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sells-group/isq-cli/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status   model.RunStatus `json:"status,omitempty"`
	MCATName string          `json:"mcat_name,omitempty"`
	Limit    int             `json:"limit,omitempty"`
	Offset   int             `json:"offset,omitempty"`
}

// DefaultListLimit caps ListRuns when the filter sets no limit.
const DefaultListLimit = 100

// Store defines the persistence interface for the ISQ workflow.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, input model.AuditInput, urls []string) (*model.Run, error)
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunURLs(ctx context.Context, runID string, urls []string) error
	UpdateRunResult(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult) error

	// Page cache. A miss returns nil, nil.
	GetCachedPage(ctx context.Context, url string) (*model.FetchedPage, error)
	SetCachedPage(ctx context.Context, page model.FetchedPage, ttl time.Duration) error
	DeleteExpiredPages(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

func listLimit(f RunFilter) int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}
