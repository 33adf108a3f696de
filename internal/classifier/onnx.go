package classifier

import (
	"fmt"
	"sync"

	gonnx "github.com/advancedclimatesystems/gonnx"
	"gorgonia.org/tensor"

	"github.com/freeeve/polite-betrayal/baseline/internal/features"
)

const (
	defaultONNXInput  = "features"
	defaultONNXOutput = "probabilities"
)

// ONNX wraps a classifier trained outside this program and exported to ONNX.
// The graph takes a (1, d) float32 input and yields one score per label.
type ONNX struct {
	labels []string
	raw    []byte
	input  string
	output string

	mu    sync.Mutex
	model *gonnx.Model
}

// LoadONNX parses an ONNX graph. labels must list the classes in the order of
// the graph's output. Empty input and output names fall back to "features" and
// "probabilities".
func LoadONNX(raw []byte, labels []string, input, output string) (*ONNX, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("load onnx: %w", ErrNoData)
	}
	model, err := gonnx.NewModelFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("load onnx: %w", err)
	}
	if input == "" {
		input = defaultONNXInput
	}
	if output == "" {
		output = defaultONNXOutput
	}
	return &ONNX{labels: labels, raw: raw, input: input, output: output, model: model}, nil
}

func (m *ONNX) Kind() Kind { return KindONNX }

func (m *ONNX) Labels() []string { return m.labels }

func (m *ONNX) Fit([]features.Vector, []string) error { return ErrNotTrainable }

// PredictProba runs the graph. Scores are renormalised to sum to one, and a
// graph that fails or returns the wrong number of scores yields nil.
func (m *ONNX) PredictProba(x features.Vector) []Prediction {
	in := tensor.New(
		tensor.WithShape(1, len(x)),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(x.Float32s()),
	)

	m.mu.Lock()
	outputs, err := m.model.Run(gonnx.Tensors{m.input: in})
	m.mu.Unlock()
	if err != nil {
		return nil
	}

	out, ok := outputs[m.output]
	if !ok {
		if len(outputs) != 1 {
			return nil
		}
		for _, t := range outputs {
			out = t
		}
	}

	var scores []float64
	switch d := out.Data().(type) {
	case []float32:
		for _, v := range d {
			scores = append(scores, float64(v))
		}
	case []float64:
		scores = d
	default:
		return nil
	}
	if len(scores) != len(m.labels) {
		return nil
	}

	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	probs := make([]float64, len(scores))
	for i, s := range scores {
		if sum > 0 {
			probs[i] = s / sum
		}
	}
	return zip(m.labels, probs)
}
