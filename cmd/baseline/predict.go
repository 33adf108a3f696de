package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/freeeve/polite-betrayal/baseline/internal/logger"
	"github.com/freeeve/polite-betrayal/baseline/internal/predict"
	"github.com/freeeve/polite-betrayal/baseline/pkg/diplomacy"
)

var (
	predictPower         string
	predictProbabilities bool
)

var predictCmd = &cobra.Command{
	Use:   "predict <state.json | ->",
	Short: "Predict orders for one game state",
	Long: `Read a game state in corpus form and print the predicted orders as JSON.
With --probabilities the per-slot distributions are printed instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().StringVar(&predictPower, "power", "", "only predict for this power (e.g. FRANCE)")
	predictCmd.Flags().BoolVar(&predictProbabilities, "probabilities", false, "print per-slot distributions")
}

func runPredict(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	gs, err := readState(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	reg, closeStore, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	p := predict.NewPredictor(reg, logger.For("predict"))
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	if predictProbabilities {
		slots, err := p.PredictProbabilities(ctx, gs, predictPower)
		if err != nil {
			return err
		}
		return enc.Encode(predict.Map(slots))
	}

	orders, err := predict.NewAggregator(p).Predict(ctx, gs, predictPower)
	if err != nil {
		return err
	}
	if orders == nil {
		orders = []string{}
	}
	return enc.Encode(orders)
}

func readState(stdin io.Reader, path string) (*diplomacy.GameState, error) {
	data, err := readInput(stdin, path)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	var gs diplomacy.GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &gs, nil
}
