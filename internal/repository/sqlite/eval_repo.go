// Package sqlite stores evaluation reports in a local SQLite file, for runs
// without a Postgres server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/freeeve/polite-betrayal/baseline/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS evaluation_runs (
    id          TEXT PRIMARY KEY,
    corpus      TEXT NOT NULL,
    classifier  TEXT NOT NULL,
    model_store TEXT NOT NULL,
    correct     INTEGER NOT NULL,
    total       INTEGER NOT NULL,
    accuracy    REAL,
    created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS key_results (
    run_id   TEXT NOT NULL REFERENCES evaluation_runs(id) ON DELETE CASCADE,
    key      TEXT NOT NULL,
    correct  INTEGER NOT NULL,
    total    INTEGER NOT NULL,
    accuracy REAL,
    PRIMARY KEY (run_id, key)
);

CREATE TABLE IF NOT EXISTS similarity_runs (
    id         TEXT PRIMARY KEY,
    corpus     TEXT NOT NULL,
    k          INTEGER NOT NULL,
    correct    REAL NOT NULL,
    total      INTEGER NOT NULL,
    created_at TEXT NOT NULL
);
`

// Fixed width so created_at sorts lexicographically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// Open opens (creating if needed) the report database at path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// One writer; also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	return db, nil
}

// EvalRepo handles evaluation report operations on SQLite.
type EvalRepo struct {
	db *sql.DB
}

// NewEvalRepo creates the report tables if missing and returns an EvalRepo.
func NewEvalRepo(db *sql.DB) (*EvalRepo, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create report schema: %w", err)
	}
	return &EvalRepo{db: db}, nil
}

// SaveRun inserts a run and its per-key breakdown in one transaction.
func (r *EvalRepo) SaveRun(ctx context.Context, run *model.EvaluationRun, keys []model.KeyResult) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO evaluation_runs (id, corpus, classifier, model_store, correct, total, accuracy, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Corpus, run.Classifier, run.ModelStore, run.Correct, run.Total,
		nullFloat(run.Accuracy), run.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("insert evaluation run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO key_results (run_id, key, correct, total, accuracy) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert key result: %w", err)
	}
	defer stmt.Close()

	for _, k := range keys {
		if _, err := stmt.ExecContext(ctx, run.ID, k.Key, k.Correct, k.Total, nullFloat(k.Accuracy)); err != nil {
			return fmt.Errorf("insert key result %s: %w", k.Key, err)
		}
	}
	return tx.Commit()
}

// FindRun returns a run by ID, or nil if it does not exist.
func (r *EvalRepo) FindRun(ctx context.Context, id string) (*model.EvaluationRun, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, corpus, classifier, model_store, correct, total, accuracy, created_at
		 FROM evaluation_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find evaluation run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first.
func (r *EvalRepo) ListRuns(ctx context.Context, limit int) ([]model.EvaluationRun, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, corpus, classifier, model_store, correct, total, accuracy, created_at
		 FROM evaluation_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list evaluation runs: %w", err)
	}
	defer rows.Close()

	var runs []model.EvaluationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// KeyResults returns the per-key breakdown of a run ordered by key.
func (r *EvalRepo) KeyResults(ctx context.Context, runID string) ([]model.KeyResult, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT run_id, key, correct, total, accuracy FROM key_results WHERE run_id = ? ORDER BY key`, runID)
	if err != nil {
		return nil, fmt.Errorf("list key results: %w", err)
	}
	defer rows.Close()

	var keys []model.KeyResult
	for rows.Next() {
		var k model.KeyResult
		var acc sql.NullFloat64
		if err := rows.Scan(&k.RunID, &k.Key, &k.Correct, &k.Total, &acc); err != nil {
			return nil, fmt.Errorf("scan key result: %w", err)
		}
		k.Accuracy = floatPtr(acc)
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// SaveSimilarityRun inserts a similarity baseline run.
func (r *EvalRepo) SaveSimilarityRun(ctx context.Context, run *model.SimilarityRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO similarity_runs (id, corpus, k, correct, total, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Corpus, run.K, run.Correct, run.Total, run.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("insert similarity run: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*model.EvaluationRun, error) {
	var run model.EvaluationRun
	var acc sql.NullFloat64
	var created string
	if err := s.Scan(&run.ID, &run.Corpus, &run.Classifier, &run.ModelStore, &run.Correct, &run.Total, &acc, &created); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeFormat, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	run.Accuracy = floatPtr(acc)
	run.CreatedAt = t
	return &run, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	return &f.Float64
}
