package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/freeeve/polite-betrayal/baseline/internal/model"
)

// EvalRepo handles evaluation report database operations.
type EvalRepo struct {
	db *sql.DB
}

// NewEvalRepo creates an EvalRepo.
func NewEvalRepo(db *sql.DB) *EvalRepo {
	return &EvalRepo{db: db}
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
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.Corpus, run.Classifier, run.ModelStore, run.Correct, run.Total, nullFloat(run.Accuracy), run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert evaluation run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO key_results (run_id, key, correct, total, accuracy) VALUES ($1, $2, $3, $4, $5)`)
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
	var run model.EvaluationRun
	var acc sql.NullFloat64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, corpus, classifier, model_store, correct, total, accuracy, created_at
		 FROM evaluation_runs WHERE id = $1`, id,
	).Scan(&run.ID, &run.Corpus, &run.Classifier, &run.ModelStore, &run.Correct, &run.Total, &acc, &run.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find evaluation run: %w", err)
	}
	run.Accuracy = floatPtr(acc)
	return &run, nil
}

// ListRuns returns the most recent runs first.
func (r *EvalRepo) ListRuns(ctx context.Context, limit int) ([]model.EvaluationRun, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, corpus, classifier, model_store, correct, total, accuracy, created_at
		 FROM evaluation_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list evaluation runs: %w", err)
	}
	defer rows.Close()

	var runs []model.EvaluationRun
	for rows.Next() {
		var run model.EvaluationRun
		var acc sql.NullFloat64
		if err := rows.Scan(&run.ID, &run.Corpus, &run.Classifier, &run.ModelStore, &run.Correct, &run.Total, &acc, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan evaluation run: %w", err)
		}
		run.Accuracy = floatPtr(acc)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// KeyResults returns the per-key breakdown of a run ordered by key.
func (r *EvalRepo) KeyResults(ctx context.Context, runID string) ([]model.KeyResult, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT run_id, key, correct, total, accuracy FROM key_results WHERE run_id = $1 ORDER BY key`, runID)
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
		`INSERT INTO similarity_runs (id, corpus, k, correct, total, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.Corpus, run.K, run.Correct, run.Total, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert similarity run: %w", err)
	}
	return nil
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
