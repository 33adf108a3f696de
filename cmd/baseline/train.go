package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/freeeve/polite-betrayal/baseline/internal/dataset"
)

var trainReset bool

var trainCmd = &cobra.Command{
	Use:   "train <corpus.jsonl>",
	Short: "Train one classifier per slot key from a corpus",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrain,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the keys that have a stored model",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

func init() {
	trainCmd.Flags().BoolVar(&trainReset, "reset", false, "delete all stored models before training")
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	b, err := dataset.BuildFromFile(args[0], corpusOptions(cfg))
	if err != nil {
		return err
	}

	reg, closeStore, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if trainReset {
		if err := reg.Reset(ctx); err != nil {
			return err
		}
	}
	sum, err := reg.TrainAll(ctx, b.Groups())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Trained: %d\nSkipped: %d\n", sum.Trained, sum.Skipped)
	return nil
}

func runModels(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reg, closeStore, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	keys, err := reg.Keys(ctx)
	if err != nil {
		return err
	}
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k.String())
		b.WriteByte('\n')
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), b.String())
	return err
}
