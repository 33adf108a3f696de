package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/freeeve/polite-betrayal/baseline/internal/classifier"
	"github.com/freeeve/polite-betrayal/baseline/internal/config"
	"github.com/freeeve/polite-betrayal/baseline/internal/repository/sqlite"
)

const buildGame = `{"phases":[{"state":{"name":"W1901A","units":{"FRANCE":["A MAR"]},"centers":{"FRANCE":["PAR","MAR","BRE","SPA"]},"homes":{"FRANCE":["PAR"]},"influence":{"FRANCE":["MAR","SPA"]},"retreats":{},"builds":{"FRANCE":{"count":1,"homes":["PAR"]}}},"orders":{"FRANCE":["A PAR B"]},"results":{}}]}`

const buildState = `{"name":"W1901A","units":{"FRANCE":["A MAR"]},"centers":{"FRANCE":["PAR","MAR","BRE","SPA"]},"homes":{"FRANCE":["PAR"]},"influence":{"FRANCE":["MAR","SPA"]},"retreats":{},"builds":{"FRANCE":{"count":1,"homes":["PAR"]}}}`

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("baseline %s: %v\n%s", strings.Join(args, " "), err, errOut.String())
	}
	return out.String()
}

func setEnv(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("MODEL_STORE", "dir")
	t.Setenv("MODEL_DIR", filepath.Join(dir, "models"))
	t.Setenv("CLASSIFIER", "knn")
	t.Setenv("REPORT_DB_URL", filepath.Join(dir, "reports.db"))
	t.Setenv("TRAIN_WORKERS", "2")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestTrainEvaluatePredict(t *testing.T) {
	dir := t.TempDir()
	setEnv(t, dir)
	corpus := filepath.Join(dir, "train.jsonl")
	writeFile(t, corpus, buildGame+"\n")
	state := filepath.Join(dir, "state.json")
	writeFile(t, state, buildState)

	if got := execute(t, "train", "--reset", corpus); got != "Trained: 1\nSkipped: 0\n" {
		t.Errorf("train output = %q", got)
	}
	if got := execute(t, "models"); got != "PAR_WA\n" {
		t.Errorf("models output = %q, want PAR_WA", got)
	}

	report := execute(t, "evaluate", "--orders", corpus)
	for _, want := range []string{"Complete Correct: 1\n", "Complete Accuracy: 100.00%\n", "Order Correct: 2\n", "Order Total: 2\n"} {
		if !strings.Contains(report, want) {
			t.Errorf("evaluate output missing %q:\n%s", want, report)
		}
	}

	var orders []string
	if err := json.Unmarshal([]byte(execute(t, "predict", "--probabilities=false", state)), &orders); err != nil {
		t.Fatalf("decode orders: %v", err)
	}
	if diff := cmp.Diff([]string{"A PAR B"}, orders); diff != "" {
		t.Errorf("predict mismatch (-want +got):\n%s", diff)
	}

	var dists map[string][]classifier.Prediction
	if err := json.Unmarshal([]byte(execute(t, "predict", "--probabilities", state)), &dists); err != nil {
		t.Fatalf("decode distributions: %v", err)
	}
	want := map[string][]classifier.Prediction{"PAR": {{Label: "A PAR B", Prob: 1}}}
	if diff := cmp.Diff(want, dists); diff != "" {
		t.Errorf("predict --probabilities mismatch (-want +got):\n%s", diff)
	}
	predictProbabilities = false

	db, err := sqlite.Open(filepath.Join(dir, "reports.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo, err := sqlite.NewEvalRepo(db)
	if err != nil {
		t.Fatal(err)
	}
	runs, err := repo.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Correct != 1 || runs[0].Total != 1 {
		t.Errorf("saved runs = %+v, want one run scoring 1/1", runs)
	}
}

func TestSplitCommand(t *testing.T) {
	dir := t.TempDir()
	setEnv(t, dir)
	corpus := filepath.Join(dir, "games.jsonl")
	writeFile(t, corpus, strings.Repeat(buildGame+"\n", 10))

	got := execute(t, "split", corpus, "--out", filepath.Join(dir, "out"))
	want := "train.jsonl: 8\nvalid.jsonl: 1\ntest.jsonl: 1\n"
	if got != want {
		t.Errorf("split output = %q, want %q", got, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "test.jsonl")); err != nil {
		t.Errorf("test split not written: %v", err)
	}
}

func TestSimilarityCommand(t *testing.T) {
	dir := t.TempDir()
	setEnv(t, dir)
	corpus := filepath.Join(dir, "games.jsonl")
	writeFile(t, corpus, buildGame+"\n")

	got := execute(t, "similarity", "--k", "1", corpus, corpus)
	for _, want := range []string{"Phases: 1\n", "State Distance: 0\n", "Correct: 1.0\n", "Total: 1\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("similarity output missing %q:\n%s", want, got)
		}
	}
}

func TestRegistryConfig(t *testing.T) {
	c := &config.Config{Classifier: "linear", KNNMaxNeighbors: 4, LinearEpochs: 9, LinearLearningRate: 0.3, Workers: 2}
	got := registryConfig(c)
	if got.Kind != classifier.KindLinear || got.Options.MaxNeighbors != 4 || got.Options.Epochs != 9 ||
		got.Options.LearningRate != 0.3 || got.Workers != 2 {
		t.Errorf("registryConfig = %+v", got)
	}
}

func TestReadStateFromStdin(t *testing.T) {
	gs, err := readState(strings.NewReader(buildState), "-")
	if err != nil {
		t.Fatalf("readState: %v", err)
	}
	if gs.Name != "W1901A" || gs.Builds["FRANCE"].Count != 1 {
		t.Errorf("readState = %+v", gs)
	}
	if _, err := readState(strings.NewReader("{not json"), "-"); err == nil {
		t.Error("expected decode error")
	}
}

func TestParseLabels(t *testing.T) {
	got := parseLabels([]byte("A PAR - BUR\n\n  A PAR H  \nNOORDER\n"))
	want := []string{"A PAR - BUR", "A PAR H", "NOORDER"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseLabels mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenReportsDisabled(t *testing.T) {
	repo, closeDB, err := openReports(context.Background(), &config.Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer closeDB()
	if repo != nil {
		t.Errorf("openReports with no URL = %v, want nil", repo)
	}
}
