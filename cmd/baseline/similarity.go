package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/freeeve/polite-betrayal/baseline/internal/logger"
	"github.com/freeeve/polite-betrayal/baseline/internal/model"
	"github.com/freeeve/polite-betrayal/baseline/internal/similarity"
)

var similarityK int

var similarityCmd = &cobra.Command{
	Use:   "similarity <train.jsonl> <test.jsonl>",
	Short: "Evaluate the whole-state nearest neighbour baseline",
	Args:  cobra.ExactArgs(2),
	RunE:  runSimilarity,
}

func init() {
	similarityCmd.Flags().IntVar(&similarityK, "k", 0, "neighbours to sample from (default SIMILARITY_K)")
}

func runSimilarity(cmd *cobra.Command, args []string) error {
	k := cfg.SimilarityK
	if similarityK > 0 {
		k = similarityK
	}
	opts := corpusOptions(cfg)
	m := similarity.NewSeededMatcher(k, uint64(cfg.Seed), logger.For("similarity"))

	train, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open train corpus: %w", err)
	}
	defer train.Close()
	if err := m.Train(train, opts); err != nil {
		return err
	}

	test, err := os.Open(args[1])
	if err != nil {
		return fmt.Errorf("open test corpus: %w", err)
	}
	defer test.Close()
	rep, err := m.Evaluate(test, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"Phases: %d\nState Distance: %d\nOrder Distance: %d\nCorrect: %.1f\nTotal: %d\nAccuracy: %s\n",
		rep.Phases, rep.StateDistance, rep.OrderDistance, rep.Correct, rep.Total, rep.Accuracy())

	repo, closeDB, err := openReports(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("open report db: %w", err)
	}
	defer closeDB()
	if repo == nil {
		return nil
	}
	run := &model.SimilarityRun{Corpus: args[1], K: k, Correct: rep.Correct, Total: rep.Total}
	if err := repo.SaveSimilarityRun(cmd.Context(), run); err != nil {
		return err
	}
	log.Info().Str("runID", run.ID).Msg("Similarity run saved")
	return nil
}
