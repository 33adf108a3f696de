package model

import "time"

// EvaluationRun is one saved evaluation of a model directory against a test
// corpus.
type EvaluationRun struct {
	ID         string    `json:"id"`
	Corpus     string    `json:"corpus"`
	Classifier string    `json:"classifier"`
	ModelStore string    `json:"model_store"`
	Correct    int       `json:"correct"`
	Total      int       `json:"total"`
	Accuracy   *float64  `json:"accuracy,omitempty"` // nil when Total is zero
	CreatedAt  time.Time `json:"created_at"`
}

// KeyResult is the per-key breakdown of an EvaluationRun.
type KeyResult struct {
	RunID    string   `json:"run_id"`
	Key      string   `json:"key"`
	Correct  int      `json:"correct"`
	Total    int      `json:"total"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

// SimilarityRun records an evaluation of the whole-state nearest-neighbour
// baseline.
type SimilarityRun struct {
	ID        string    `json:"id"`
	Corpus    string    `json:"corpus"`
	K         int       `json:"k"`
	Correct   float64   `json:"correct"`
	Total     int       `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}
