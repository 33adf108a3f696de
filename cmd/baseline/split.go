package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/freeeve/polite-betrayal/baseline/internal/dataset"
	"github.com/freeeve/polite-betrayal/baseline/internal/logger"
)

var (
	splitOut    string
	splitNames  []string
	splitRatios []float64
)

var splitCmd = &cobra.Command{
	Use:   "split <corpus.jsonl>",
	Short: "Split a corpus into train/valid/test files by line",
	Args:  cobra.ExactArgs(1),
	RunE:  runSplit,
}

func init() {
	splitCmd.Flags().StringVar(&splitOut, "out", ".", "output directory")
	splitCmd.Flags().StringSliceVar(&splitNames, "names", []string{"train.jsonl", "valid.jsonl", "test.jsonl"}, "output file names")
	splitCmd.Flags().Float64SliceVar(&splitRatios, "ratios", []float64{0.8, 0.9, 1.0}, "cumulative end ratio of each file")
}

func runSplit(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	total, err := dataset.CountLines(f)
	if err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind corpus: %w", err)
	}

	parts, err := dataset.RatioParts(total, splitNames, splitRatios)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(splitOut, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	counts, err := dataset.Split(f, splitOut, parts, logger.For("split"))
	if err != nil {
		return err
	}
	for i, p := range parts {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", p.Name, counts[i])
	}
	return nil
}
