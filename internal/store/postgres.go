package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/isq-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	sqlInsertRun       = `INSERT INTO runs (id, mcat_name, input, urls, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	sqlUpdateStatus    = `UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`
	sqlUpdateURLs      = `UPDATE runs SET urls = $1, updated_at = $2 WHERE id = $3`
	sqlUpdateResult    = `UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`
	sqlSelectRun       = `SELECT id, input, urls, status, result, created_at, updated_at FROM runs`
	sqlGetCachedPage   = `SELECT page FROM page_cache WHERE url = $1 AND expires_at > now()`
	sqlSetCachedPage   = `INSERT INTO page_cache (url, page, fetched_at, expires_at) VALUES ($1, $2, $3, $4) ON CONFLICT (url) DO UPDATE SET page = EXCLUDED.page, fetched_at = EXCLUDED.fetched_at, expires_at = EXCLUDED.expires_at`
	sqlDeleteExpired   = `DELETE FROM page_cache WHERE expires_at <= now()`
	defaultMaxConns    = int32(10)
	defaultMinConns    = int32(2)
	defaultConnMaxLife = 30 * time.Minute
	defaultConnMaxIdle = 5 * time.Minute
)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns, minConns := defaultMaxConns, defaultMinConns
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = defaultConnMaxLife
	pgxCfg.MaxConnIdleTime = defaultConnMaxIdle

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	mcat_name  TEXT NOT NULL,
	input      JSONB NOT NULL,
	urls       JSONB NOT NULL DEFAULT '[]'::jsonb,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS page_cache (
	url        TEXT PRIMARY KEY,
	page       JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_mcat_name ON runs(lower(mcat_name));
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_page_cache_expires_at ON page_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, input model.AuditInput, urls []string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	if urls == nil {
		urls = []string{}
	}

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal input")
	}
	urlsJSON, err := json.Marshal(urls)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal urls")
	}

	_, err = s.pool.Exec(ctx, sqlInsertRun,
		id, input.MCATName, inputJSON, urlsJSON, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Input:     input,
		URLs:      urls,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx, sqlUpdateStatus, string(status), time.Now().UTC(), runID)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	return checkTag(tag, runID)
}

func (s *PostgresStore) UpdateRunURLs(ctx context.Context, runID string, urls []string) error {
	if urls == nil {
		urls = []string{}
	}
	urlsJSON, err := json.Marshal(urls)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal urls")
	}
	tag, err := s.pool.Exec(ctx, sqlUpdateURLs, urlsJSON, time.Now().UTC(), runID)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run urls %s", runID)
	}
	return checkTag(tag, runID)
}

func (s *PostgresStore) UpdateRunResult(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}
	tag, err := s.pool.Exec(ctx, sqlUpdateResult, resultJSON, string(status), time.Now().UTC(), runID)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run result %s", runID)
	}
	return checkTag(tag, runID)
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanPgRun(s.pool.QueryRow(ctx, sqlSelectRun+` WHERE id = $1`, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := sqlSelectRun + ` WHERE 1=1`
	var args []any
	argN := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argN)
		args = append(args, string(filter.Status))
		argN++
	}
	if filter.MCATName != "" {
		query += fmt.Sprintf(` AND lower(mcat_name) = lower($%d)`, argN)
		args = append(args, filter.MCATName)
		argN++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argN)
	args = append(args, listLimit(filter))
	argN++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argN)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	runs := []model.Run{}
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list runs scan")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) GetCachedPage(ctx context.Context, url string) (*model.FetchedPage, error) {
	var pageJSON []byte
	err := s.pool.QueryRow(ctx, sqlGetCachedPage, url).Scan(&pageJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached page")
	}

	var page model.FetchedPage
	if err := json.Unmarshal(pageJSON, &page); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached page")
	}
	return &page, nil
}

func (s *PostgresStore) SetCachedPage(ctx context.Context, page model.FetchedPage, ttl time.Duration) error {
	now := time.Now().UTC()
	pageJSON, err := json.Marshal(page)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal page")
	}
	_, err = s.pool.Exec(ctx, sqlSetCachedPage, page.URL, pageJSON, now, now.Add(ttl))
	return eris.Wrap(err, "postgres: set cached page")
}

func (s *PostgresStore) DeleteExpiredPages(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, sqlDeleteExpired)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired pages")
	}
	return int(tag.RowsAffected()), nil
}

func checkTag(tag pgconn.CommandTag, runID string) error {
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var (
		r          model.Run
		status     string
		inputJSON  []byte
		urlsJSON   []byte
		resultJSON []byte
	)
	if err := row.Scan(&r.ID, &inputJSON, &urlsJSON, &status, &resultJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	if err := decodeRun(&r, inputJSON, urlsJSON, resultJSON); err != nil {
		return nil, err
	}
	return &r, nil
}
