// Package workflow drives a seller upload through audit, extraction,
// reconciliation and buyer selection, persisting each stage on the run.
package workflow

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/isq-cli/internal/audit"
	"github.com/sells-group/isq-cli/internal/extract"
	"github.com/sells-group/isq-cli/internal/model"
	"github.com/sells-group/isq-cli/internal/reconcile"
	"github.com/sells-group/isq-cli/internal/store"
)

var (
	// ErrNoSpecs is returned when an upload carries no specifications.
	ErrNoSpecs = errors.New("workflow: upload has no specifications")
	// ErrNoURLs is returned when a run has no competitor URLs to extract from.
	ErrNoURLs = errors.New("workflow: run has no urls")
	// ErrNotExtracted is returned when reconciling a run that has no extraction.
	ErrNotExtracted = errors.New("workflow: run has no extraction result")
)

// Extractor produces web specs for a product from competitor pages.
// extract.Extractor satisfies it.
type Extractor interface {
	Extract(ctx context.Context, mcat string, urls []string) (*extract.Output, error)
}

// Discoverer finds competitor URLs for a product when a run has none.
type Discoverer func(ctx context.Context, mcat string) ([]string, error)

// Service runs and persists the ISQ stages. Calls that touch the same run
// are serialized.
type Service struct {
	store      store.Store
	auditor    audit.Auditor
	extractor  Extractor
	reconciler *reconcile.Reconciler
	buyer      reconcile.SelectOptions
	discover   Discoverer
	locks      *runLocks
}

// Option configures a Service.
type Option func(*Service)

// WithReconciler sets the reconciler, e.g. one built on a custom match policy.
func WithReconciler(r *reconcile.Reconciler) Option {
	return func(s *Service) { s.reconciler = r }
}

// WithBuyerOptions sets the buyer selection bounds.
func WithBuyerOptions(o reconcile.SelectOptions) Option {
	return func(s *Service) { s.buyer = o }
}

// WithDiscovery enables URL discovery for runs without URLs.
func WithDiscovery(d Discoverer) Option {
	return func(s *Service) { s.discover = d }
}

// New creates a Service.
func New(st store.Store, auditor audit.Auditor, ex Extractor, opts ...Option) *Service {
	s := &Service{
		store:      st,
		auditor:    auditor,
		extractor:  ex,
		reconciler: reconcile.New(nil),
		buyer:      reconcile.DefaultSelectOptions(),
		locks:      newRunLocks(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Audit creates a run for the upload and audits its specifications. URLs
// are stored for the later extraction stage. An auditor failure marks the
// run failed and is returned alongside the run.
func (s *Service) Audit(ctx context.Context, in model.AuditInput, urls []string) (*model.Run, error) {
	if len(in.Specifications) == 0 {
		return nil, ErrNoSpecs
	}

	run, err := s.store.CreateRun(ctx, in, urls)
	if err != nil {
		return nil, eris.Wrap(err, "workflow: create run")
	}
	unlock := s.locks.lock(run.ID)
	defer unlock()

	log := zap.L().With(zap.String("run_id", run.ID), zap.String("mcat", in.MCATName))
	log.Info("workflow: audit started", zap.Int("specs", len(in.Specifications)))
	s.setStatus(ctx, run, model.RunStatusAuditing)

	result := &model.RunResult{}
	out, err := s.auditor.Audit(ctx, in)
	if err != nil {
		return run, s.fail(ctx, run, result, eris.Wrap(err, "workflow: audit"))
	}

	result.Audit = out.Results
	result.TotalTokens = out.Tokens
	result.TotalCost = out.Cost
	if err := s.save(ctx, run, model.RunStatusAudited, result); err != nil {
		return run, err
	}

	log.Info("workflow: audit complete",
		zap.String("source", out.Source),
		zap.Int("incorrect", countIncorrect(out.Results)),
	)
	return run, nil
}

// Extract fetches the run's competitor pages, extracts web specs, then
// reconciles them with the upload and selects buyer ISQs. Non-empty urls
// replace the stored ones. A previous extraction on the run is replaced.
func (s *Service) Extract(ctx context.Context, runID string, urls []string) (*model.Run, error) {
	unlock := s.locks.lock(runID)
	defer unlock()

	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "workflow: load run %s", runID)
	}
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("mcat", run.Input.MCATName))

	if len(urls) > 0 {
		if err := s.store.UpdateRunURLs(ctx, run.ID, urls); err != nil {
			return nil, eris.Wrapf(err, "workflow: save urls for %s", run.ID)
		}
		run.URLs = urls
	}
	if len(run.URLs) == 0 && s.discover != nil {
		s.setStatus(ctx, run, model.RunStatusFetching)
		found, err := s.discover(ctx, run.Input.MCATName)
		if err != nil {
			log.Warn("workflow: url discovery failed", zap.Error(err))
		} else if len(found) > 0 {
			if err := s.store.UpdateRunURLs(ctx, run.ID, found); err != nil {
				return nil, eris.Wrapf(err, "workflow: save urls for %s", run.ID)
			}
			run.URLs = found
		}
	}
	if len(run.URLs) == 0 {
		return nil, eris.Wrapf(ErrNoURLs, "run %s", run.ID)
	}

	result := run.Result
	if result == nil {
		result = &model.RunResult{}
	}
	result.Extraction = nil
	result.CommonSpecs = nil
	result.BuyerISQs = nil
	result.Error = ""

	log.Info("workflow: extraction started", zap.Int("urls", len(run.URLs)))
	s.setStatus(ctx, run, model.RunStatusExtracting)

	out, err := s.extractor.Extract(ctx, run.Input.MCATName, run.URLs)
	if err != nil {
		return run, s.fail(ctx, run, result, eris.Wrap(err, "workflow: extract"))
	}

	extraction := out.Result
	result.Extraction = &extraction
	result.PagesUsed = len(out.Pages)
	result.TotalTokens += out.Usage.Total()
	result.TotalCost += out.Cost
	result.Attempts = out.Attempts

	s.setStatus(ctx, run, model.RunStatusReconciling)
	result.CommonSpecs, result.BuyerISQs = s.Match(run.Input.Specifications, extraction)

	if err := s.save(ctx, run, model.RunStatusComplete, result); err != nil {
		return run, err
	}
	log.Info("workflow: run complete",
		zap.Int("pages", result.PagesUsed),
		zap.Int("common_specs", len(result.CommonSpecs)),
		zap.Int("buyer_isqs", len(result.BuyerISQs)),
		zap.Float64("cost", result.TotalCost),
	)
	return run, nil
}

// Rerun repeats extraction with the run's stored URLs.
func (s *Service) Rerun(ctx context.Context, runID string) (*model.Run, error) {
	return s.Extract(ctx, runID, nil)
}

// Run audits an upload and, when the audit succeeds, extracts and reconciles.
func (s *Service) Run(ctx context.Context, in model.AuditInput, urls []string) (*model.Run, error) {
	run, err := s.Audit(ctx, in, urls)
	if err != nil {
		return run, err
	}
	return s.Extract(ctx, run.ID, nil)
}

// Reconcile recomputes common specs and buyer ISQs from the run's stored
// upload and extraction, e.g. after the match policy changed.
func (s *Service) Reconcile(ctx context.Context, runID string) (*model.Run, error) {
	unlock := s.locks.lock(runID)
	defer unlock()

	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "workflow: load run %s", runID)
	}
	if run.Result == nil || run.Result.Extraction == nil {
		return nil, eris.Wrapf(ErrNotExtracted, "run %s", run.ID)
	}

	run.Result.CommonSpecs, run.Result.BuyerISQs = s.Match(run.Input.Specifications, *run.Result.Extraction)
	if err := s.save(ctx, run, model.RunStatusComplete, run.Result); err != nil {
		return run, err
	}
	return run, nil
}

// Match reconciles seller specs with an extraction result and selects the
// buyer ISQs. It has no side effects.
func (s *Service) Match(specs []model.SpecEntry, ex model.ExtractionResult) ([]model.MatchedSpecPair, []model.BuyerISQ) {
	pairs := s.reconciler.Reconcile(reconcile.FromSeller(specs), reconcile.FromExtraction(ex))
	return pairs, reconcile.SelectTop(pairs, specs, s.buyer)
}

// Compare diffs two spec collections.
func (s *Service) Compare(left, right []model.SpecEntry) model.Comparison {
	return s.reconciler.Compare(reconcile.FromSeller(left), reconcile.FromSeller(right))
}

// GetRun loads a run.
func (s *Service) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	run, err := s.store.GetRun(ctx, runID)
	return run, eris.Wrapf(err, "workflow: load run %s", runID)
}

// ListRuns lists runs, newest first.
func (s *Service) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	runs, err := s.store.ListRuns(ctx, filter)
	return runs, eris.Wrap(err, "workflow: list runs")
}

// PruneCache removes expired pages from the page cache.
func (s *Service) PruneCache(ctx context.Context) (int, error) {
	n, err := s.store.DeleteExpiredPages(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "workflow: prune page cache")
	}
	if n > 0 {
		zap.L().Info("workflow: pruned page cache", zap.Int("pages", n))
	}
	return n, nil
}

func (s *Service) setStatus(ctx context.Context, run *model.Run, status model.RunStatus) {
	if err := s.store.UpdateRunStatus(ctx, run.ID, status); err != nil {
		zap.L().Warn("workflow: failed to update status",
			zap.String("run_id", run.ID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return
	}
	run.Status = status
}

func (s *Service) save(ctx context.Context, run *model.Run, status model.RunStatus, result *model.RunResult) error {
	if err := s.store.UpdateRunResult(ctx, run.ID, status, result); err != nil {
		return eris.Wrapf(err, "workflow: save result for %s", run.ID)
	}
	run.Status = status
	run.Result = result
	return nil
}

// fail records cause on the run and returns it.
func (s *Service) fail(ctx context.Context, run *model.Run, result *model.RunResult, cause error) error {
	result.Error = cause.Error()
	zap.L().Error("workflow: run failed", zap.String("run_id", run.ID), zap.Error(cause))
	if err := s.save(ctx, run, model.RunStatusFailed, result); err != nil {
		zap.L().Warn("workflow: failed to record failure", zap.String("run_id", run.ID), zap.Error(err))
	}
	return cause
}

func countIncorrect(results []model.AuditResult) int {
	n := 0
	for _, r := range results {
		if r.Status == model.AuditIncorrect {
			n++
		}
	}
	return n
}
