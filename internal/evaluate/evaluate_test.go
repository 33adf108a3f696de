package evaluate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"go.uber.org/goleak"

	"github.com/freeeve/polite-betrayal/baseline/internal/classifier"
	"github.com/freeeve/polite-betrayal/baseline/internal/dataset"
	"github.com/freeeve/polite-betrayal/baseline/internal/features"
	"github.com/freeeve/polite-betrayal/baseline/internal/model"
	"github.com/freeeve/polite-betrayal/baseline/pkg/diplomacy"
)

func TestEvaluatePositional(t *testing.T) {
	r := Evaluate(
		map[dataset.Key][]string{"k": {"A PAR H"}},
		map[dataset.Key][]string{"k": {"A PAR H", "F BRE H"}},
	)
	if r.Correct != 1 || r.Total != 2 {
		t.Errorf("Evaluate = %d/%d, want 1/2", r.Correct, r.Total)
	}
	if got := r.Keys["k"].Accuracy(); got.Value != 0.5 || !got.Defined {
		t.Errorf("key accuracy = %v, want 0.5", got)
	}
}

func TestEvaluateMissingModelCountsTotal(t *testing.T) {
	r := Evaluate(
		map[dataset.Key][]string{"a": {"A PAR H"}},
		map[dataset.Key][]string{"a": {"A PAR H"}, "b": {"F BRE H", "F BRE - MAO", "F BRE H"}},
	)
	want := map[dataset.Key]Tally{"a": {1, 1}, "b": {0, 3}}
	if diff := cmp.Diff(want, r.Keys); diff != "" {
		t.Errorf("tallies mismatch (-want +got):\n%s", diff)
	}
	if r.Correct != 1 || r.Total != 4 {
		t.Errorf("overall = %d/%d, want 1/4", r.Correct, r.Total)
	}
}

func TestAccuracyUndefined(t *testing.T) {
	r := Evaluate(nil, map[dataset.Key][]string{"empty": {}})
	if r.Accuracy().Defined {
		t.Error("overall accuracy of zero total should be undefined")
	}
	if got := r.Keys["empty"].Accuracy().String(); got != "undefined" {
		t.Errorf("String() = %q, want undefined", got)
	}
	if r.Accuracy().Ptr() != nil {
		t.Error("Ptr() of undefined accuracy should be nil")
	}
	if got := AccuracyOf(1, 4).String(); got != "25.00%" {
		t.Errorf("AccuracyOf(1, 4) = %q, want 25.00%%", got)
	}
}

func TestMergeIsOrderIndependent(t *testing.T) {
	parts := []*Results{
		Evaluate(map[dataset.Key][]string{"a": {"x"}}, map[dataset.Key][]string{"a": {"x", "y"}}),
		Evaluate(map[dataset.Key][]string{"b": {"z"}}, map[dataset.Key][]string{"b": {"q"}}),
		Evaluate(map[dataset.Key][]string{"a": {"y"}}, map[dataset.Key][]string{"a": {"y"}}),
	}
	forward, backward := NewResults(), NewResults()
	for i := range parts {
		forward.Merge(parts[i])
		backward.Merge(parts[len(parts)-1-i])
	}
	if diff := cmp.Diff(forward, backward); diff != "" {
		t.Errorf("merge order changed result (-forward +backward):\n%s", diff)
	}
	if forward.Correct != 2 || forward.Total != 4 {
		t.Errorf("merged = %d/%d, want 2/4", forward.Correct, forward.Total)
	}
	if forward.Keys["a"] != (Tally{Correct: 2, Total: 3}) {
		t.Errorf("key a = %+v, want 2/3", forward.Keys["a"])
	}
}

func TestResultsString(t *testing.T) {
	r := Evaluate(map[dataset.Key][]string{"A_PAR_SM": {"A PAR H"}}, map[dataset.Key][]string{"A_PAR_SM": {"A PAR H"}, "B": nil})
	s := r.String()
	for _, want := range []string{"Complete Correct: 1", "Complete Total: 1", "Complete Accuracy: 100.00%", "Key Accuracy (A_PAR_SM): 100.00%", "Key Accuracy (B): undefined"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q:\n%s", want, s)
		}
	}
}

func TestOrderAccuracy(t *testing.T) {
	pred := map[string][]string{
		"FRANCE":  {"A PAR H", "F BRE - MAO"},
		"GERMANY": {"A MUN H"},
	}
	truth := map[string][]string{
		"FRANCE": {"A PAR H", "F BRE H", "A MAR H"},
		"ITALY":  {"A ROM H"},
	}
	correct, total := OrderAccuracy(pred, truth)
	// FRANCE: 1 of 2 predicted found, 1 of 3 true found. GERMANY: 0/1. ITALY: 0/1.
	if correct != 2 || total != 7 {
		t.Errorf("OrderAccuracy = %d/%d, want 2/7", correct, total)
	}
}

type fakeModels map[dataset.Key]classifier.Model

func (f fakeModels) Load(_ context.Context, key dataset.Key) (classifier.Model, error) {
	if key == "broken" {
		return nil, errors.New("corrupt")
	}
	return f[key], nil
}

func vec(bits ...int) features.Vector {
	v := make(features.Vector, 8)
	for _, b := range bits {
		v[b] = true
	}
	return v
}

func TestEvaluateRegistry(t *testing.T) {
	defer goleak.VerifyNone(t)

	knn := classifier.NewKNN(1)
	if err := knn.Fit([]features.Vector{vec(0), vec(1)}, []string{"A PAR H", "A PAR - BUR"}); err != nil {
		t.Fatal(err)
	}
	groups := map[dataset.Key]*dataset.TrainingSet{
		"A_PAR_SM": {Features: []features.Vector{vec(0), vec(1), vec(1)}, Labels: []string{"A PAR H", "A PAR - BUR", "A PAR H"}},
		"F_BRE_SM": {Features: []features.Vector{vec(2)}, Labels: []string{"F BRE H"}},
	}
	ev := NewEvaluator(fakeModels{"A_PAR_SM": knn}, 4, zerolog.Nop())
	r, err := ev.EvaluateRegistry(context.Background(), groups)
	if err != nil {
		t.Fatalf("EvaluateRegistry: %v", err)
	}
	want := map[dataset.Key]Tally{"A_PAR_SM": {2, 3}, "F_BRE_SM": {0, 1}}
	if diff := cmp.Diff(want, r.Keys); diff != "" {
		t.Errorf("tallies mismatch (-want +got):\n%s", diff)
	}
	if r.Correct != 2 || r.Total != 4 {
		t.Errorf("overall = %d/%d, want 2/4", r.Correct, r.Total)
	}

	groups["broken"] = &dataset.TrainingSet{Features: []features.Vector{vec()}, Labels: []string{"x"}}
	if _, err := ev.EvaluateRegistry(context.Background(), groups); err == nil {
		t.Error("expected load error to propagate")
	}
}

type memRecorder struct {
	run  *model.EvaluationRun
	keys []model.KeyResult
}

func (m *memRecorder) SaveRun(_ context.Context, run *model.EvaluationRun, keys []model.KeyResult) error {
	m.run, m.keys = run, keys
	return nil
}

func TestSaveRecordsRun(t *testing.T) {
	r := Evaluate(map[dataset.Key][]string{"b": {"x"}}, map[dataset.Key][]string{"b": {"x"}, "a": {}})
	rec := &memRecorder{}
	run, err := Save(context.Background(), rec, r, RunInfo{Corpus: "test.jsonl", Classifier: "knn", ModelStore: "dir"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if run.ID == "" || rec.run != run {
		t.Fatalf("run not recorded: %+v", run)
	}
	if run.Accuracy == nil || *run.Accuracy != 1 {
		t.Errorf("run accuracy = %v, want 1", run.Accuracy)
	}
	if len(rec.keys) != 2 || rec.keys[0].Key != "a" || rec.keys[0].Accuracy != nil || rec.keys[1].RunID != run.ID {
		t.Errorf("key rows = %+v", rec.keys)
	}
}

type fixedOrderer map[string][]string

func (f fixedOrderer) Predict(_ context.Context, _ *diplomacy.GameState, power string) ([]string, error) {
	return f[power], nil
}

func TestPhaseOrderAccuracy(t *testing.T) {
	phase := &diplomacy.Phase{
		State: diplomacy.GameState{Name: "S1901M"},
		Orders: map[string][]string{
			"FRANCE":  {"A PAR - BUR", "F BRE - MAO"},
			"ENGLAND": {"F LON - NTH"},
		},
	}
	o := fixedOrderer{
		"FRANCE":  {"A PAR - BUR", "F BRE H"},
		"ENGLAND": {"F LON - NTH"},
		"GERMANY": {"A BER H"}, // not asked: Germany issued no orders
	}
	correct, total, err := PhaseOrderAccuracy(context.Background(), o, phase)
	if err != nil {
		t.Fatal(err)
	}
	if correct != 4 || total != 6 {
		t.Errorf("PhaseOrderAccuracy = %d/%d, want 4/6", correct, total)
	}
}
