package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/freeeve/polite-betrayal/baseline/internal/dataset"
	"github.com/freeeve/polite-betrayal/baseline/internal/evaluate"
	"github.com/freeeve/polite-betrayal/baseline/internal/logger"
	"github.com/freeeve/polite-betrayal/baseline/internal/predict"
	"github.com/freeeve/polite-betrayal/baseline/internal/registry"
	"github.com/freeeve/polite-betrayal/baseline/pkg/diplomacy"
)

var evaluateOrders bool

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <corpus.jsonl>",
	Short: "Score stored models against a test corpus",
	Long: `Score every key of a test corpus with its stored model. Keys without a
model count as wrong. With --orders the aggregated orders of every phase are
also compared with the orders actually issued.

Results are saved when REPORT_DB_URL is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().BoolVar(&evaluateOrders, "orders", false, "also score aggregated orders per phase")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	corpus := args[0]
	b, err := dataset.BuildFromFile(corpus, corpusOptions(cfg))
	if err != nil {
		return err
	}

	reg, closeStore, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	ev := evaluate.NewEvaluator(reg, cfg.Workers, logger.For("evaluate"))
	res, err := ev.EvaluateRegistry(ctx, b.Groups())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, res.String())

	if evaluateOrders {
		correct, total, err := scoreOrders(ctx, reg, corpus)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nOrder Correct: %d\nOrder Total: %d\nOrder Accuracy: %s\n",
			correct, total, evaluate.AccuracyOf(correct, total))
	}

	return saveEvaluation(ctx, res, corpus)
}

func scoreOrders(ctx context.Context, reg *registry.Registry, corpus string) (correct, total int, err error) {
	agg := predict.NewAggregator(predict.NewPredictor(reg, logger.For("predict")))
	_, err = dataset.ScanFile(corpus, corpusOptions(cfg), func(g *diplomacy.Game) error {
		for i := range g.Phases {
			c, t, err := evaluate.PhaseOrderAccuracy(ctx, agg, &g.Phases[i])
			if err != nil {
				return err
			}
			correct += c
			total += t
		}
		return nil
	})
	return correct, total, err
}

func saveEvaluation(ctx context.Context, res *evaluate.Results, corpus string) error {
	repo, closeDB, err := openReports(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open report db: %w", err)
	}
	defer closeDB()
	if repo == nil {
		return nil
	}

	run, err := evaluate.Save(ctx, repo, res, evaluate.RunInfo{
		Corpus:     corpus,
		Classifier: cfg.Classifier,
		ModelStore: cfg.ModelStore,
	})
	if err != nil {
		return err
	}
	log.Info().Str("runID", run.ID).Str("driver", cfg.ReportDriver()).Msg("Evaluation saved")
	return nil
}
