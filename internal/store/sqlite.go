package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/isq-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// expires_at is unix seconds so expiry compares numerically.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	mcat_name  TEXT NOT NULL,
	input      TEXT NOT NULL,
	urls       TEXT NOT NULL DEFAULT '[]',
	status     TEXT NOT NULL DEFAULT 'queued',
	result     TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS page_cache (
	url        TEXT PRIMARY KEY,
	page       TEXT NOT NULL,
	fetched_at DATETIME NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_mcat_name ON runs(mcat_name);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_page_cache_expires_at ON page_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, input model.AuditInput, urls []string) (*model.Run, error) {
	id := uuid.New().String()
	now := s.now()
	if urls == nil {
		urls = []string{}
	}

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal input")
	}
	urlsJSON, err := json.Marshal(urls)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal urls")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, mcat_name, input, urls, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, input.MCATName, string(inputJSON), string(urlsJSON), string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), s.now(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) UpdateRunURLs(ctx context.Context, runID string, urls []string) error {
	if urls == nil {
		urls = []string{}
	}
	urlsJSON, err := json.Marshal(urls)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal urls")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET urls = ?, updated_at = ? WHERE id = ?`,
		string(urlsJSON), s.now(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run urls %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) UpdateRunResult(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(status), s.now(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run result %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input, urls, status, result, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: run %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, input, urls, status, result, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.MCATName != "" {
		query += ` AND lower(mcat_name) = lower(?)`
		args = append(args, filter.MCATName)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	runs := []model.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) GetCachedPage(ctx context.Context, url string) (*model.FetchedPage, error) {
	var pageJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT page FROM page_cache WHERE url = ? AND expires_at > ?`,
		url, s.now().Unix(),
	).Scan(&pageJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached page")
	}

	var page model.FetchedPage
	if err := json.Unmarshal([]byte(pageJSON), &page); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached page")
	}
	return &page, nil
}

func (s *SQLiteStore) SetCachedPage(ctx context.Context, page model.FetchedPage, ttl time.Duration) error {
	now := s.now()
	pageJSON, err := json.Marshal(page)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal page")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO page_cache (url, page, fetched_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (url) DO UPDATE SET page = excluded.page, fetched_at = excluded.fetched_at, expires_at = excluded.expires_at`,
		page.URL, string(pageJSON), now, now.Add(ttl).Unix(),
	)
	return eris.Wrap(err, "sqlite: set cached page")
}

func (s *SQLiteStore) DeleteExpiredPages(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM page_cache WHERE expires_at <= ?`, s.now().Unix(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired pages")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var (
		r          model.Run
		inputJSON  string
		urlsJSON   string
		resultJSON sql.NullString
	)
	err := row.Scan(&r.ID, &inputJSON, &urlsJSON, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if err := decodeRun(&r, []byte(inputJSON), []byte(urlsJSON), nullBytes(resultJSON)); err != nil {
		return nil, eris.Wrap(err, "sqlite: decode run")
	}
	return &r, nil
}

func nullBytes(s sql.NullString) []byte {
	if !s.Valid {
		return nil
	}
	return []byte(s.String)
}

// decodeRun fills the JSON columns shared by both backends.
func decodeRun(r *model.Run, input, urls, result []byte) error {
	if err := json.Unmarshal(input, &r.Input); err != nil {
		return eris.Wrap(err, "unmarshal input")
	}
	if len(urls) > 0 {
		if err := json.Unmarshal(urls, &r.URLs); err != nil {
			return eris.Wrap(err, "unmarshal urls")
		}
	}
	if len(result) > 0 {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal(result, r.Result); err != nil {
			return eris.Wrap(err, "unmarshal result")
		}
	}
	return nil
}
