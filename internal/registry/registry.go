// Package registry trains, persists and loads the per-key classifiers.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/polite-betrayal/baseline/internal/classifier"
	"github.com/freeeve/polite-betrayal/baseline/internal/dataset"
	"github.com/freeeve/polite-betrayal/baseline/internal/features"
)

var ErrInvalidKey = errors.New("invalid model key")

// ValidateKey rejects keys that are unsafe as file names.
func ValidateKey(key string) error {
	if key == "" || key == "." || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if strings.ContainsFunc(key, func(r rune) bool {
		return r == '/' || r == '\\' || unicode.IsSpace(r) || r == 0
	}) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Config selects the classifier trained for each key.
type Config struct {
	Kind    classifier.Kind
	Options classifier.Options
	Workers int
}

// Status is the result of training one key.
type Status string

const (
	StatusTrained Status = "trained"
	StatusSkipped Status = "skipped"
)

// Outcome describes what Train did for a key.
type Outcome struct {
	Key     dataset.Key
	Status  Status
	Samples int
	Classes int
	Reason  string // set when skipped
}

// Summary counts outcomes across keys.
type Summary struct {
	Trained int
	Skipped int
}

// Registry owns one model per key. Loaded models are cached and shared.
type Registry struct {
	store Store
	cfg   Config
	log   zerolog.Logger

	mu    sync.RWMutex
	cache map[dataset.Key]classifier.Model // nil value: known missing
}

// New creates a Registry over a store.
func New(store Store, cfg Config, log zerolog.Logger) *Registry {
	if cfg.Kind == "" {
		cfg.Kind = classifier.KindKNN
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Registry{
		store: store,
		cfg:   cfg,
		log:   log,
		cache: make(map[dataset.Key]classifier.Model),
	}
}

// Train fits and saves the model for one key. Degenerate data is not an
// error: a key unsafe to store and an empty set are skipped, a linear model
// is skipped when fewer than two distinct labels exist, and a kNN model
// shrinks k to the sample size. Only fit, encode and store failures are
// returned.
func (r *Registry) Train(ctx context.Context, key dataset.Key, xs []features.Vector, labels []string) (Outcome, error) {
	out := Outcome{Key: key, Samples: len(labels)}
	if err := ValidateKey(string(key)); err != nil {
		out.Status, out.Reason = StatusSkipped, "invalid key"
		r.log.Warn().Err(err).Int("samples", out.Samples).Msg("Skipping key unsafe to store")
		return out, nil
	}
	if len(xs) == 0 {
		out.Status, out.Reason = StatusSkipped, "no examples"
		return out, nil
	}
	classes, _ := classifier.Classes(labels)
	out.Classes = len(classes)

	model, err := classifier.New(r.cfg.Kind, r.cfg.Options)
	if err != nil {
		return out, err
	}
	if err := model.Fit(xs, labels); err != nil {
		if errors.Is(err, classifier.ErrTooFewClasses) {
			out.Status, out.Reason = StatusSkipped, "single label"
			r.log.Debug().Str("key", string(key)).Int("samples", out.Samples).Msg("Skipping key with a single label")
			return out, nil
		}
		return out, fmt.Errorf("train %s: %w", key, err)
	}
	if err := r.save(ctx, key, model); err != nil {
		return out, err
	}
	out.Status = StatusTrained
	r.log.Debug().
		Str("key", string(key)).
		Str("kind", string(r.cfg.Kind)).
		Int("samples", out.Samples).
		Int("classes", out.Classes).
		Msg("Model trained")
	return out, nil
}

// TrainAll trains every key in parallel, at most Workers at a time. Keys are
// independent so no ordering between them is implied.
func (r *Registry) TrainAll(ctx context.Context, groups map[dataset.Key]*dataset.TrainingSet) (Summary, error) {
	var (
		mu      sync.Mutex
		summary Summary
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for _, key := range dataset.SortedKeys(groups) {
		ts := groups[key]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := r.Train(ctx, key, ts.Features, ts.Labels)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if out.Status == StatusTrained {
				summary.Trained++
			} else {
				summary.Skipped++
			}
			return nil
		})
	}
	err := g.Wait()
	r.log.Info().
		Int("keys", len(groups)).
		Int("trained", summary.Trained).
		Int("skipped", summary.Skipped).
		Msg("Training finished")
	return summary, err
}

// Load returns the model for a key, or nil when none was trained. A missing
// model is a normal outcome and not an error.
func (r *Registry) Load(ctx context.Context, key dataset.Key) (classifier.Model, error) {
	r.mu.RLock()
	m, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return m, nil
	}

	data, err := r.store.Get(ctx, string(key))
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidKey) {
		r.log.Debug().Str("key", string(key)).Msg("Model not found")
		r.remember(key, nil)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m, _, err = classifier.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	r.remember(key, m)
	return m, nil
}

// Predict loads the model for key and scores x. It returns nil when no model
// exists.
func (r *Registry) Predict(ctx context.Context, key dataset.Key, x features.Vector) ([]classifier.Prediction, error) {
	m, err := r.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	return PredictProba(m, x), nil
}

// PredictProba scores x with a model. The result lists exactly the labels seen
// in training, in the model's label order. A nil model yields nil.
func PredictProba(m classifier.Model, x features.Vector) []classifier.Prediction {
	if m == nil {
		return nil
	}
	return m.PredictProba(x)
}

// Import saves an externally trained ONNX classifier under key.
func (r *Registry) Import(ctx context.Context, key dataset.Key, labels []string, graph []byte, input, output string) error {
	if err := ValidateKey(string(key)); err != nil {
		return err
	}
	m, err := classifier.LoadONNX(graph, labels, input, output)
	if err != nil {
		return fmt.Errorf("import %s: %w", key, err)
	}
	if err := r.save(ctx, key, m); err != nil {
		return err
	}
	r.log.Info().Str("key", string(key)).Int("labels", len(labels)).Msg("ONNX model imported")
	return nil
}

// Keys lists every key with a saved model.
func (r *Registry) Keys(ctx context.Context) ([]dataset.Key, error) {
	names, err := r.store.Keys(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]dataset.Key, len(names))
	for i, n := range names {
		keys[i] = dataset.Key(n)
	}
	return keys, nil
}

// Reset deletes every saved model and empties the cache.
func (r *Registry) Reset(ctx context.Context) error {
	if err := r.store.Clear(ctx); err != nil {
		return fmt.Errorf("reset registry: %w", err)
	}
	r.mu.Lock()
	r.cache = make(map[dataset.Key]classifier.Model)
	r.mu.Unlock()
	r.log.Info().Msg("Model registry cleared")
	return nil
}

func (r *Registry) save(ctx context.Context, key dataset.Key, m classifier.Model) error {
	data, err := classifier.Encode(string(key), m)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.store.Put(ctx, string(key), data); err != nil {
		return err
	}
	r.remember(key, m)
	return nil
}

func (r *Registry) remember(key dataset.Key, m classifier.Model) {
	r.mu.Lock()
	r.cache[key] = m
	r.mu.Unlock()
}
