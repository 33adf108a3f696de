package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"go.uber.org/goleak"

	"github.com/freeeve/polite-betrayal/baseline/internal/classifier"
	"github.com/freeeve/polite-betrayal/baseline/internal/dataset"
	"github.com/freeeve/polite-betrayal/baseline/internal/features"
)

func newRegistry(t *testing.T, kind classifier.Kind) (*Registry, *DirStore) {
	t.Helper()
	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfg := Config{Kind: kind, Options: classifier.Options{MaxNeighbors: 10, Epochs: 20, LearningRate: 0.5}, Workers: 4}
	return New(store, cfg, zerolog.Nop()), store
}

func vec(bits ...int) features.Vector {
	v := make(features.Vector, 16)
	for _, b := range bits {
		v[b] = true
	}
	return v
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key string
		ok  bool
	}{
		{"A_PAR_SM", true},
		{"F_STP_SC_FM", true},
		{"", false},
		{".", false},
		{"..", false},
		{"a/b", false},
		{`a\b`, false},
		{"a b", false},
	}
	for _, tt := range tests {
		err := ValidateKey(tt.key)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateKey(%q) = %v, want ok=%v", tt.key, err, tt.ok)
		}
		if err != nil && !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ValidateKey(%q) error %v does not wrap ErrInvalidKey", tt.key, err)
		}
	}
}

func TestTrainKNNSingleLabelShrinksK(t *testing.T) {
	reg, store := newRegistry(t, classifier.KindKNN)
	ctx := context.Background()

	out, err := reg.Train(ctx, "PAR_WA", []features.Vector{vec(1)}, []string{"A PAR B"})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if out.Status != StatusTrained {
		t.Fatalf("Status = %s, want trained", out.Status)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), "PAR_WA")); err != nil {
		t.Errorf("model file not written: %v", err)
	}

	m, err := reg.Load(ctx, "PAR_WA")
	if err != nil || m == nil {
		t.Fatalf("Load = %v, %v", m, err)
	}
	if k := m.(*classifier.KNN).K(); k != 1 {
		t.Errorf("K = %d, want 1", k)
	}
	got := PredictProba(m, vec(1))
	if diff := cmp.Diff([]classifier.Prediction{{Label: "A PAR B", Prob: 1}}, got); diff != "" {
		t.Errorf("PredictProba mismatch (-want +got):\n%s", diff)
	}
}

func TestTrainLinearSkipsSingleLabel(t *testing.T) {
	reg, store := newRegistry(t, classifier.KindLinear)
	out, err := reg.Train(context.Background(), "A_PAR_SM", []features.Vector{vec(1), vec(2)}, []string{"A PAR H", "A PAR H"})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if out.Status != StatusSkipped || out.Classes != 1 {
		t.Errorf("Outcome = %+v, want skipped with 1 class", out)
	}
	if keys, _ := store.Keys(context.Background()); len(keys) != 0 {
		t.Errorf("skipped key persisted: %v", keys)
	}
}

func TestTrainEmptyAndInvalid(t *testing.T) {
	reg, _ := newRegistry(t, classifier.KindKNN)
	ctx := context.Background()
	out, err := reg.Train(ctx, "A_PAR_SM", nil, nil)
	if err != nil || out.Status != StatusSkipped {
		t.Errorf("Train(empty) = %+v, %v; want skipped", out, err)
	}
	out, err = reg.Train(ctx, "../escape", []features.Vector{vec(1)}, []string{"x"})
	if err != nil || out.Status != StatusSkipped || out.Reason != "invalid key" {
		t.Errorf("Train(bad key) = %+v, %v; want skipped as invalid key", out, err)
	}
}

func TestLoadMissingIsNotAnError(t *testing.T) {
	reg, _ := newRegistry(t, classifier.KindKNN)
	ctx := context.Background()
	for _, key := range []dataset.Key{"A_XYZ_SM", "bad/key"} {
		m, err := reg.Load(ctx, key)
		if err != nil || m != nil {
			t.Errorf("Load(%q) = %v, %v; want nil, nil", key, m, err)
		}
	}
	preds, err := reg.Predict(ctx, "A_XYZ_SM", vec())
	if err != nil || preds != nil {
		t.Errorf("Predict(missing) = %v, %v; want nil, nil", preds, err)
	}
}

func TestLoadFromFreshRegistry(t *testing.T) {
	reg, store := newRegistry(t, classifier.KindKNN)
	ctx := context.Background()
	if _, err := reg.Train(ctx, "A_PAR_SM", []features.Vector{vec(1), vec(2)}, []string{"A PAR H", "A PAR - BUR"}); err != nil {
		t.Fatal(err)
	}

	fresh := New(store, Config{}, zerolog.Nop())
	m, err := fresh.Load(ctx, "A_PAR_SM")
	if err != nil || m == nil {
		t.Fatalf("Load = %v, %v", m, err)
	}
	if diff := cmp.Diff([]string{"A PAR - BUR", "A PAR H"}, m.Labels()); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCorruptModel(t *testing.T) {
	reg, store := newRegistry(t, classifier.KindKNN)
	if err := os.WriteFile(filepath.Join(store.Dir(), "A_PAR_SM"), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Load(context.Background(), "A_PAR_SM"); err == nil {
		t.Error("Load(corrupt) should fail")
	}
}

func TestTrainAll(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg, store := newRegistry(t, classifier.KindLinear)
	groups := map[dataset.Key]*dataset.TrainingSet{
		"A_PAR_SM": {Features: []features.Vector{vec(1), vec(2)}, Labels: []string{"A PAR H", "A PAR - BUR"}},
		"F_BRE_SM": {Features: []features.Vector{vec(3), vec(4)}, Labels: []string{"F BRE H", "F BRE - MAO"}},
		"A_MAR_SM": {Features: []features.Vector{vec(5)}, Labels: []string{"A MAR H"}},
	}
	summary, err := reg.TrainAll(context.Background(), groups)
	if err != nil {
		t.Fatalf("TrainAll: %v", err)
	}
	if summary != (Summary{Trained: 2, Skipped: 1}) {
		t.Errorf("summary = %+v, want 2 trained, 1 skipped", summary)
	}
	keys, err := store.Keys(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"A_PAR_SM", "F_BRE_SM"}, keys); diff != "" {
		t.Errorf("stored keys mismatch (-want +got):\n%s", diff)
	}
}

func TestTrainAllSkipsUnsafeKeys(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg, store := newRegistry(t, classifier.KindKNN)
	reg.cfg.Workers = 1
	groups := map[dataset.Key]*dataset.TrainingSet{
		"A_.._SM":  {Features: []features.Vector{vec(1)}, Labels: []string{"A .. H"}},
		"A_PAR_SM": {Features: []features.Vector{vec(1)}, Labels: []string{"A PAR H"}},
	}
	summary, err := reg.TrainAll(context.Background(), groups)
	if err != nil {
		t.Fatalf("TrainAll: %v", err)
	}
	if summary != (Summary{Trained: 1, Skipped: 1}) {
		t.Errorf("summary = %+v, want 1 trained, 1 skipped", summary)
	}
	keys, err := store.Keys(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"A_PAR_SM"}, keys); diff != "" {
		t.Errorf("stored keys mismatch (-want +got):\n%s", diff)
	}
}

// failingStore rejects every write.
type failingStore struct {
	*DirStore
}

var errDiskFull = errors.New("disk full")

func (failingStore) Put(context.Context, string, []byte) error { return errDiskFull }

func TestTrainAllStopsOnStoreError(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	reg := New(failingStore{dir}, Config{Kind: classifier.KindKNN, Workers: 2}, zerolog.Nop())
	groups := map[dataset.Key]*dataset.TrainingSet{
		"A_PAR_SM": {Features: []features.Vector{vec(1)}, Labels: []string{"A PAR H"}},
		"F_BRE_SM": {Features: []features.Vector{vec(2)}, Labels: []string{"F BRE H"}},
	}
	if _, err := reg.TrainAll(context.Background(), groups); !errors.Is(err, errDiskFull) {
		t.Errorf("TrainAll err = %v, want errDiskFull", err)
	}
}

func TestResetClearsStoreAndCache(t *testing.T) {
	reg, store := newRegistry(t, classifier.KindKNN)
	ctx := context.Background()
	if _, err := reg.Train(ctx, "A_PAR_SM", []features.Vector{vec(1)}, []string{"A PAR H"}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if keys, _ := store.Keys(ctx); len(keys) != 0 {
		t.Errorf("keys after reset = %v", keys)
	}
	if m, _ := reg.Load(ctx, "A_PAR_SM"); m != nil {
		t.Error("model still cached after reset")
	}
}

func TestImportRejectsInvalidGraph(t *testing.T) {
	reg, _ := newRegistry(t, classifier.KindKNN)
	err := reg.Import(context.Background(), "A_PAR_SM", []string{"A PAR H"}, []byte("definitely not protobuf"), "", "")
	if err == nil {
		t.Error("Import(garbage) should fail")
	}
	if err := reg.Import(context.Background(), "a/b", []string{"x"}, nil, "", ""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Import(bad key) err = %v, want ErrInvalidKey", err)
	}
}
