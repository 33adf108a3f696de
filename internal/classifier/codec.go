package classifier

import (
	"encoding/json"
	"fmt"

	"github.com/freeeve/polite-betrayal/baseline/internal/features"
)

// envelope is the persisted form of a model: one JSON document per key.
type envelope struct {
	Kind   Kind           `json:"kind"`
	Key    string         `json:"key,omitempty"`
	Labels []string       `json:"labels"`
	KNN    *knnPayload    `json:"knn,omitempty"`
	Linear *linearPayload `json:"linear,omitempty"`
	ONNX   *onnxPayload   `json:"onnx,omitempty"`
}

type knnPayload struct {
	MaxNeighbors int      `json:"maxNeighbors"`
	Dim          int      `json:"dim"`
	Rows         [][]byte `json:"rows"` // packed feature vectors
	Classes      []int    `json:"classes"`
}

type linearPayload struct {
	Inputs  int           `json:"inputs"`
	Weights [][][]float64 `json:"weights"`
}

type onnxPayload struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	Graph  []byte `json:"graph"`
}

// Encode serialises a trained model together with the key it serves.
func Encode(key string, m Model) ([]byte, error) {
	env := envelope{Kind: m.Kind(), Key: key, Labels: m.Labels()}
	switch v := m.(type) {
	case *KNN:
		if v.train == nil {
			return nil, ErrUntrained
		}
		vs := v.vectors()
		rows := make([][]byte, len(vs))
		for i, x := range vs {
			rows[i] = x.Pack()
		}
		env.KNN = &knnPayload{MaxNeighbors: v.maxNeighbors, Dim: v.train.Shape()[1], Rows: rows, Classes: v.rows}
	case *Linear:
		w := v.weights()
		if w == nil {
			return nil, ErrUntrained
		}
		env.Linear = &linearPayload{Inputs: v.inputs, Weights: w}
	case *ONNX:
		env.ONNX = &onnxPayload{Input: v.input, Output: v.output, Graph: v.raw}
	default:
		return nil, fmt.Errorf("encode %T: %w", m, ErrUnknownKind)
	}
	return json.Marshal(env)
}

// Decode restores a model written by Encode and returns the key it was saved
// under.
func Decode(data []byte) (Model, string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, "", fmt.Errorf("decode model: %w", err)
	}

	switch env.Kind {
	case KindKNN:
		p := env.KNN
		if p == nil || len(p.Rows) == 0 || len(p.Rows) != len(p.Classes) {
			return nil, env.Key, fmt.Errorf("decode knn %s: %w", env.Key, ErrNoData)
		}
		xs := make([]features.Vector, len(p.Rows))
		for i, row := range p.Rows {
			xs[i] = features.Unpack(row, p.Dim)
		}
		for _, c := range p.Classes {
			if c < 0 || c >= len(env.Labels) {
				return nil, env.Key, fmt.Errorf("decode knn %s: class index %d out of range", env.Key, c)
			}
		}
		if p.Dim < 1 {
			return nil, env.Key, fmt.Errorf("decode knn %s: %w", env.Key, ErrNoData)
		}
		m := NewKNN(p.MaxNeighbors)
		if err := m.memorise(xs); err != nil {
			return nil, env.Key, fmt.Errorf("decode knn %s: %w", env.Key, err)
		}
		m.labels, m.rows = env.Labels, p.Classes
		return m, env.Key, nil

	case KindLinear:
		p := env.Linear
		if p == nil || len(p.Weights) == 0 {
			return nil, env.Key, fmt.Errorf("decode linear %s: %w", env.Key, ErrNoData)
		}
		return restoreLinear(env.Labels, p.Inputs, p.Weights), env.Key, nil

	case KindONNX:
		p := env.ONNX
		if p == nil {
			return nil, env.Key, fmt.Errorf("decode onnx %s: %w", env.Key, ErrNoData)
		}
		m, err := LoadONNX(p.Graph, env.Labels, p.Input, p.Output)
		if err != nil {
			return nil, env.Key, err
		}
		return m, env.Key, nil

	default:
		return nil, env.Key, fmt.Errorf("decode %q: %w", env.Kind, ErrUnknownKind)
	}
}
