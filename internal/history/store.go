// Package history records benchmark runs in a local SQLite database so
// results can be compared across runs.
package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // database/sql driver

	"github.com/leapstack-labs/sqlbench/pkg/benchmark"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DefaultPath is where run history is kept when not configured.
const DefaultPath = ".sqlbench/history.db"

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run is a stored benchmark run with its per-model summaries.
type Run struct {
	ID        string         `json:"id"`
	Suite     string         `json:"suite"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Models    []ModelSummary `json:"models,omitempty"`
}

// ModelSummary is the stored overall summary of one model in a run.
type ModelSummary struct {
	Model   string            `json:"model"`
	Skipped int               `json:"skipped"`
	Overall benchmark.Summary `json:"overall"`
}

// Store persists benchmark runs.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the history database at path and applies pending
// migrations. Use ":memory:" for an in-memory database.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dsn := "file::memory:?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create history directory: %w", err)
			}
		}
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// A single connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug("history opened", slog.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Version returns the applied migration version.
func (s *Store) Version() (int64, error) {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, fmt.Errorf("failed to set dialect: %w", err)
	}
	return goose.GetDBVersion(s.db)
}

// Save records report, its model summaries and every query result in one
// transaction.
func (s *Store) Save(ctx context.Context, suite string, report *benchmark.Report) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	id := report.RunID.String()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, suite, started_at, duration_ms) VALUES (?, ?, ?, ?)`,
		id, suite, report.StartedAt.UTC().UnixMilli(), float64(report.Duration.Microseconds())/1000,
	); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	for _, m := range report.Models {
		o := m.Overall
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO model_results (run_id, model, query_count, skipped, exact_match, logical_form,
				complexity_handling, execution_accuracy, inference_latency, zero_shot)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, m.Model, o.Count, m.Skipped, o.ExactMatchAccuracy, o.LogicalFormAccuracy,
			o.ComplexityHandling, o.ExecutionAccuracy, o.InferenceLatency, o.ZeroShotPerformance,
		); err != nil {
			return fmt.Errorf("failed to save model %s: %w", m.Model, err)
		}

		for _, q := range m.Queries {
			var data []byte
			data, err = json.Marshal(q.Metrics)
			if err != nil {
				return fmt.Errorf("failed to encode metrics for %s: %w", q.ID, err)
			}
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO query_results (run_id, model, query_id, complexity, metrics) VALUES (?, ?, ?, ?, ?)`,
				id, m.Model, q.ID, string(q.Complexity), string(data),
			); err != nil {
				return fmt.Errorf("failed to save query %s: %w", q.ID, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	s.logger.Debug("run saved", slog.String("id", id), slog.Int("models", len(report.Models)))
	return nil
}

// List returns the most recent runs, newest first, with model summaries.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, suite, started_at, duration_ms FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	for i := range runs {
		if runs[i].Models, err = s.models(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Get returns one run by ID.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, suite, started_at, duration_ms FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if r.Models, err = s.models(ctx, id); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) models(ctx context.Context, runID string) ([]ModelSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT model, query_count, skipped, exact_match, logical_form, complexity_handling,
			execution_accuracy, inference_latency, zero_shot
		FROM model_results WHERE run_id = ? ORDER BY model`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ModelSummary
	for rows.Next() {
		var m ModelSummary
		var zeroShot sql.NullFloat64
		o := &m.Overall
		if err := rows.Scan(&m.Model, &o.Count, &m.Skipped, &o.ExactMatchAccuracy, &o.LogicalFormAccuracy,
			&o.ComplexityHandling, &o.ExecutionAccuracy, &o.InferenceLatency, &zeroShot); err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		if zeroShot.Valid {
			o.ZeroShotPerformance = &zeroShot.Float64
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var r Run
	var startedMS int64
	var durationMS float64
	if err := sc.Scan(&r.ID, &r.Suite, &startedMS, &durationMS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("failed to scan run: %w", err)
	}
	r.StartedAt = time.UnixMilli(startedMS).UTC()
	r.Duration = time.Duration(durationMS * float64(time.Millisecond))
	return r, nil
}
