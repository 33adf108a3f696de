package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/freeeve/polite-betrayal/baseline/internal/dataset"
)

var (
	onnxLabels     []string
	onnxLabelsFile string
	onnxInput      string
	onnxOutput     string
)

var importONNXCmd = &cobra.Command{
	Use:   "import-onnx <key> <model.onnx>",
	Short: "Store an externally trained ONNX classifier under a key",
	Long: `Store an ONNX classifier trained outside this tool. The graph must take a
(1, features) float32 input and produce one probability per label, in the
order given by --labels or --labels-file.`,
	Args: cobra.ExactArgs(2),
	RunE: runImportONNX,
}

func init() {
	importONNXCmd.Flags().StringSliceVar(&onnxLabels, "labels", nil, "label vocabulary in output order")
	importONNXCmd.Flags().StringVar(&onnxLabelsFile, "labels-file", "", "file with one label per line")
	importONNXCmd.Flags().StringVar(&onnxInput, "input", "", "graph input name (default features)")
	importONNXCmd.Flags().StringVar(&onnxOutput, "output", "", "graph output name (default probabilities)")
}

func runImportONNX(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	labels := onnxLabels
	if onnxLabelsFile != "" {
		data, err := os.ReadFile(onnxLabelsFile)
		if err != nil {
			return fmt.Errorf("read labels: %w", err)
		}
		labels = parseLabels(data)
	}
	if len(labels) == 0 {
		return fmt.Errorf("import-onnx: --labels or --labels-file is required")
	}

	graph, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read model: %w", err)
	}

	reg, closeStore, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	return reg.Import(ctx, dataset.Key(args[0]), labels, graph, onnxInput, onnxOutput)
}

// parseLabels reads one label per line. Orders contain spaces, so lines are
// only trimmed, not split.
func parseLabels(data []byte) []string {
	var labels []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if l := strings.TrimSpace(scanner.Text()); l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}
