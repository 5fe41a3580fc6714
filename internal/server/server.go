// Package server exposes the ISQ workflow over HTTP for the browser UI.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/isq-cli/internal/model"
	"github.com/sells-group/isq-cli/internal/store"
)

// Service is the workflow the API drives. workflow.Service satisfies it.
type Service interface {
	Audit(ctx context.Context, in model.AuditInput, urls []string) (*model.Run, error)
	Extract(ctx context.Context, runID string, urls []string) (*model.Run, error)
	Rerun(ctx context.Context, runID string) (*model.Run, error)
	Reconcile(ctx context.Context, runID string) (*model.Run, error)
	Match(specs []model.SpecEntry, ex model.ExtractionResult) ([]model.MatchedSpecPair, []model.BuyerISQ)
	Compare(left, right []model.SpecEntry) model.Comparison
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Config configures the HTTP API.
type Config struct {
	CORSOrigins    []string
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

const (
	defaultMaxUploadBytes = 10 << 20
	defaultRequestTimeout = 5 * time.Minute
)

// Server serves the JSON API. Extraction requests run in the background
// under the server's base context.
type Server struct {
	svc  Service
	cfg  Config
	base context.Context
	wg   sync.WaitGroup
	now  func() time.Time
}

// New creates a Server. Background work stops when base is cancelled.
func New(base context.Context, svc Service, cfg Config) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	return &Server{svc: svc, cfg: cfg, base: base, now: time.Now}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(chimiddleware.Timeout(s.cfg.RequestTimeout))

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/reconcile", s.reconcile)
		r.Post("/compare", s.compare)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.listRuns)
			r.Post("/", s.createRun)

			r.Route("/{runID}", func(r chi.Router) {
				r.Get("/", s.getRun)
				r.Post("/extract", s.extractRun)
				r.Post("/rerun", s.rerunRun)
				r.Post("/reconcile", s.reconcileRun)
				r.Get("/export.xlsx", s.exportXLSX)
				r.Get("/export.json", s.exportJSON)
			})
		})
	})
	return r
}

// Wait blocks until background extractions have finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// background runs fn detached from the request under the base context.
func (s *Server) background(runID, stage string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := fn(s.base); err != nil {
			zap.L().Error("server: background stage failed",
				zap.String("run_id", runID),
				zap.String("stage", stage),
				zap.Error(err),
			)
		}
	}()
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}
