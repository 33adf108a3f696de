// Command baseline trains, evaluates and queries the per-slot order models.
//
// Usage:
//
//	baseline train data/train.jsonl --reset
//	baseline evaluate data/test.jsonl
//	baseline predict state.json --power FRANCE
//	baseline similarity data/train.jsonl data/test.jsonl
//	baseline split data/games.jsonl --out data
//
// Settings come from the environment (MODEL_DIR, CLASSIFIER, ...) and an
// optional YAML file given with --config.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/freeeve/polite-betrayal/baseline/internal/config"
	"github.com/freeeve/polite-betrayal/baseline/internal/logger"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "baseline",
	Short:         "Per-slot Diplomacy order prediction baseline",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.InitWithOutput(cmd.ErrOrStderr())
		c, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		cfg = c
		log.Debug().
			Str("modelStore", cfg.ModelStore).
			Str("modelDir", cfg.ModelDir).
			Str("classifier", cfg.Classifier).
			Int("workers", cfg.Workers).
			Msg("Config loaded")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("BASELINE_CONFIG"), "YAML file overlaying environment settings")
	rootCmd.AddCommand(trainCmd, evaluateCmd, predictCmd, similarityCmd, splitCmd, importONNXCmd, modelsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
