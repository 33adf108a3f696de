package evaluate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/polite-betrayal/baseline/internal/classifier"
	"github.com/freeeve/polite-betrayal/baseline/internal/dataset"
	"github.com/freeeve/polite-betrayal/baseline/internal/model"
)

// Models loads the model of a key, nil when none exists.
// *registry.Registry satisfies it.
type Models interface {
	Load(ctx context.Context, key dataset.Key) (classifier.Model, error)
}

// Recorder persists evaluation runs.
type Recorder interface {
	SaveRun(ctx context.Context, run *model.EvaluationRun, keys []model.KeyResult) error
}

// Evaluator scores a test set against stored models.
type Evaluator struct {
	models  Models
	workers int
	log     zerolog.Logger
}

// NewEvaluator creates an Evaluator that scores up to workers keys at once.
func NewEvaluator(models Models, workers int, log zerolog.Logger) *Evaluator {
	if workers < 1 {
		workers = 1
	}
	return &Evaluator{models: models, workers: workers, log: log}
}

// EvaluateRegistry predicts every example of every key with that key's model
// and tallies the results. Keys are scored in parallel and their partial
// results merged.
func (e *Evaluator) EvaluateRegistry(ctx context.Context, groups map[dataset.Key]*dataset.TrainingSet) (*Results, error) {
	var mu sync.Mutex
	total := NewResults()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, key := range dataset.SortedKeys(groups) {
		ts := groups[key]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := e.models.Load(ctx, key)
			if err != nil {
				return fmt.Errorf("evaluate %s: %w", key, err)
			}
			var preds []string
			if m == nil {
				e.log.Debug().Str("key", string(key)).Int("examples", ts.Len()).Msg("No model, counting key as missed")
			} else {
				preds = PredictLabels(m, ts)
			}

			partial := Evaluate(map[dataset.Key][]string{key: preds}, map[dataset.Key][]string{key: ts.Labels})
			mu.Lock()
			total.Merge(partial)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.log.Info().
		Int("keys", len(total.Keys)).
		Int("correct", total.Correct).
		Int("total", total.Total).
		Str("accuracy", total.Accuracy().String()).
		Msg("Evaluation finished")
	return total, nil
}

// PredictLabels returns the most probable label for every example of a set.
// An example the model cannot score yields an empty label.
func PredictLabels(m classifier.Model, ts *dataset.TrainingSet) []string {
	out := make([]string, len(ts.Features))
	for i, x := range ts.Features {
		if best, ok := classifier.Best(m.PredictProba(x)); ok {
			out[i] = best.Label
		}
	}
	return out
}

// RunInfo describes the inputs of an evaluation run.
type RunInfo struct {
	Corpus     string
	Classifier string
	ModelStore string
}

// Record converts results to report rows under a fresh run ID.
func Record(r *Results, info RunInfo) (*model.EvaluationRun, []model.KeyResult) {
	run := &model.EvaluationRun{
		ID:         uuid.NewString(),
		Corpus:     info.Corpus,
		Classifier: info.Classifier,
		ModelStore: info.ModelStore,
		Correct:    r.Correct,
		Total:      r.Total,
		Accuracy:   r.Accuracy().Ptr(),
		CreatedAt:  time.Now().UTC(),
	}
	keys := make([]model.KeyResult, 0, len(r.Keys))
	for _, k := range dataset.SortedKeys(r.Keys) {
		t := r.Keys[k]
		keys = append(keys, model.KeyResult{
			RunID:    run.ID,
			Key:      string(k),
			Correct:  t.Correct,
			Total:    t.Total,
			Accuracy: t.Accuracy().Ptr(),
		})
	}
	return run, keys
}

// Save records results through rec and returns the new run.
func Save(ctx context.Context, rec Recorder, r *Results, info RunInfo) (*model.EvaluationRun, error) {
	run, keys := Record(r, info)
	if err := rec.SaveRun(ctx, run, keys); err != nil {
		return nil, fmt.Errorf("save evaluation: %w", err)
	}
	return run, nil
}
