// Package classifier provides the per-slot order classifiers.
package classifier

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/freeeve/polite-betrayal/baseline/internal/features"
)

// Kind names a classifier variant.
type Kind string

const (
	KindKNN    Kind = "knn"
	KindLinear Kind = "linear"
	KindONNX   Kind = "onnx"
)

var (
	ErrUnknownKind    = errors.New("unknown classifier kind")
	ErrNotTrainable   = errors.New("classifier cannot be trained in process")
	ErrUntrained      = errors.New("model is not trained")
	ErrNoData         = errors.New("no training data")
	ErrTooFewClasses  = errors.New("fewer than two distinct labels")
	ErrShapeMismatch  = errors.New("feature and label counts differ")
	ErrVectorMismatch = errors.New("feature vectors differ in length")
)

// Prediction is one candidate order and its probability.
type Prediction struct {
	Label string  `json:"label"`
	Prob  float64 `json:"prob"`
}

// Model is a trained per-slot classifier. A fitted model is never mutated
// again and is safe for concurrent PredictProba calls.
type Model interface {
	Kind() Kind
	Fit(xs []features.Vector, labels []string) error
	// PredictProba returns one Prediction per label in Labels order. It
	// returns nil for an unfitted model or a vector of the wrong length.
	PredictProba(x features.Vector) []Prediction
	Labels() []string
}

// Options configures newly created models.
type Options struct {
	MaxNeighbors int
	Epochs       int
	LearningRate float64
}

// DefaultOptions returns the defaults used when no configuration is given.
func DefaultOptions() Options {
	return Options{MaxNeighbors: 10, Epochs: 50, LearningRate: 0.05}
}

// New creates an untrained model of the given kind.
func New(kind Kind, opts Options) (Model, error) {
	switch kind {
	case KindKNN:
		return NewKNN(opts.MaxNeighbors), nil
	case KindLinear:
		return NewLinear(opts.Epochs, opts.LearningRate), nil
	case KindONNX:
		return nil, fmt.Errorf("new %s: %w", kind, ErrNotTrainable)
	default:
		return nil, fmt.Errorf("new %q: %w", kind, ErrUnknownKind)
	}
}

// Best returns the highest-probability prediction. Ties go to the earliest
// entry. It reports false for an empty list.
func Best(preds []Prediction) (Prediction, bool) {
	if len(preds) == 0 {
		return Prediction{}, false
	}
	best := preds[0]
	for _, p := range preds[1:] {
		if p.Prob > best.Prob {
			best = p
		}
	}
	return best, true
}

// Classes returns the sorted distinct labels and, for each input label, its
// index into that list.
func Classes(labels []string) ([]string, []int) {
	classes := slices.Clone(labels)
	sort.Strings(classes)
	classes = slices.Compact(classes)
	idx := make([]int, len(labels))
	for i, l := range labels {
		idx[i], _ = slices.BinarySearch(classes, l)
	}
	return classes, idx
}

func checkInput(xs []features.Vector, labels []string) error {
	if len(xs) == 0 {
		return ErrNoData
	}
	if len(xs) != len(labels) {
		return fmt.Errorf("%d vectors, %d labels: %w", len(xs), len(labels), ErrShapeMismatch)
	}
	d := len(xs[0])
	for i, x := range xs {
		if len(x) != d {
			return fmt.Errorf("vector %d has length %d, want %d: %w", i, len(x), d, ErrVectorMismatch)
		}
	}
	return nil
}

func zip(labels []string, probs []float64) []Prediction {
	out := make([]Prediction, len(labels))
	for i, l := range labels {
		out[i] = Prediction{Label: l, Prob: probs[i]}
	}
	return out
}
