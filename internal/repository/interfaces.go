package repository

import (
	"context"

	"github.com/freeeve/polite-betrayal/baseline/internal/model"
)

// EvaluationRepository stores evaluation reports.
type EvaluationRepository interface {
	SaveRun(ctx context.Context, run *model.EvaluationRun, keys []model.KeyResult) error
	FindRun(ctx context.Context, id string) (*model.EvaluationRun, error)
	ListRuns(ctx context.Context, limit int) ([]model.EvaluationRun, error)
	KeyResults(ctx context.Context, runID string) ([]model.KeyResult, error)
	SaveSimilarityRun(ctx context.Context, run *model.SimilarityRun) error
}
