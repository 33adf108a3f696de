package classifier

import (
	"sync"

	deep "github.com/patrikeh/go-deep"
	"github.com/patrikeh/go-deep/training"

	"github.com/freeeve/polite-betrayal/baseline/internal/features"
)

// Linear is a multinomial logistic regression: a single softmax layer over
// the feature bits, trained with SGD.
type Linear struct {
	epochs       int
	learningRate float64
	labels       []string
	inputs       int

	// go-deep writes activations into the network on every forward pass.
	mu  sync.Mutex
	net *deep.Neural
}

// NewLinear creates an untrained Linear classifier.
func NewLinear(epochs int, learningRate float64) *Linear {
	if epochs < 1 {
		epochs = 1
	}
	if learningRate <= 0 {
		learningRate = DefaultOptions().LearningRate
	}
	return &Linear{epochs: epochs, learningRate: learningRate}
}

func newSoftmax(inputs, classes int) *deep.Neural {
	return deep.NewNeural(&deep.Config{
		Inputs:     inputs,
		Layout:     []int{classes},
		Activation: deep.ActivationSoftmax,
		Mode:       deep.ModeMultiClass,
		Weight:     deep.NewNormal(0.0, 0.01),
		Bias:       true,
	})
}

func (m *Linear) Kind() Kind { return KindLinear }

func (m *Linear) Labels() []string { return m.labels }

// Fit trains the network. It needs at least two distinct labels.
func (m *Linear) Fit(xs []features.Vector, labels []string) error {
	if err := checkInput(xs, labels); err != nil {
		return err
	}
	classes, idx := Classes(labels)
	if len(classes) < 2 {
		return ErrTooFewClasses
	}

	examples := make(training.Examples, len(xs))
	for i, x := range xs {
		response := make([]float64, len(classes))
		response[idx[i]] = 1
		examples[i] = training.Example{Input: x.Float64s(), Response: response}
	}

	net := newSoftmax(len(xs[0]), len(classes))
	trainer := training.NewTrainer(training.NewSGD(m.learningRate, 0.5, 0.0, false), 0)
	trainer.Train(net, examples, nil, m.epochs)

	m.mu.Lock()
	m.net, m.labels, m.inputs = net, classes, len(xs[0])
	m.mu.Unlock()
	return nil
}

func (m *Linear) PredictProba(x features.Vector) []Prediction {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.net == nil || len(x) != m.inputs {
		return nil
	}
	return zip(m.labels, m.net.Predict(x.Float64s()))
}

// weights returns the trained layer weights for persistence.
func (m *Linear) weights() [][][]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.net == nil {
		return nil
	}
	return m.net.Dump().Weights
}

// restoreLinear rebuilds a trained Linear from persisted weights.
func restoreLinear(labels []string, inputs int, weights [][][]float64) *Linear {
	net := newSoftmax(inputs, len(labels))
	net.ApplyWeights(weights)
	m := NewLinear(1, 0)
	m.net, m.labels, m.inputs = net, labels, inputs
	return m
}
