package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/freeeve/polite-betrayal/baseline/internal/classifier"
	"github.com/freeeve/polite-betrayal/baseline/internal/config"
	"github.com/freeeve/polite-betrayal/baseline/internal/dataset"
	"github.com/freeeve/polite-betrayal/baseline/internal/logger"
	"github.com/freeeve/polite-betrayal/baseline/internal/registry"
	"github.com/freeeve/polite-betrayal/baseline/internal/repository"
	"github.com/freeeve/polite-betrayal/baseline/internal/repository/postgres"
	redisrepo "github.com/freeeve/polite-betrayal/baseline/internal/repository/redis"
	"github.com/freeeve/polite-betrayal/baseline/internal/repository/sqlite"
)

func noopClose() error { return nil }

func registryConfig(c *config.Config) registry.Config {
	return registry.Config{
		Kind: classifier.Kind(c.Classifier),
		Options: classifier.Options{
			MaxNeighbors: c.KNNMaxNeighbors,
			Epochs:       c.LinearEpochs,
			LearningRate: c.LinearLearningRate,
		},
		Workers: c.Workers,
	}
}

func corpusOptions(c *config.Config) dataset.Options {
	return dataset.Options{SkipMalformed: c.SkipMalformed, Logger: logger.For("corpus")}
}

// openStore returns the configured model store and a func releasing it.
func openStore(ctx context.Context, c *config.Config) (registry.Store, func() error, error) {
	if c.ModelStore == "redis" {
		client, err := redisrepo.NewClient(ctx, c.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return redisrepo.NewModelStore(client), client.Close, nil
	}
	store, err := registry.NewDirStore(c.ModelDir)
	if err != nil {
		return nil, nil, err
	}
	return store, noopClose, nil
}

func openRegistry(ctx context.Context, c *config.Config) (*registry.Registry, func() error, error) {
	store, closeStore, err := openStore(ctx, c)
	if err != nil {
		return nil, nil, fmt.Errorf("open model store: %w", err)
	}
	return registry.New(store, registryConfig(c), logger.For("registry")), closeStore, nil
}

// openReports returns the evaluation report repository, or nil when
// REPORT_DB_URL is unset.
func openReports(ctx context.Context, c *config.Config) (repository.EvaluationRepository, func() error, error) {
	if c.ReportDBURL == "" {
		return nil, noopClose, nil
	}
	if c.ReportDriver() == "postgres" {
		db, err := postgres.Connect(ctx, c.ReportDBURL, c.ReportDBMaxConns)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewEvalRepo(db), db.Close, nil
	}
	db, err := sqlite.Open(c.ReportDBURL)
	if err != nil {
		return nil, nil, err
	}
	repo, err := sqlite.NewEvalRepo(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return repo, db.Close, nil
}

// readInput reads a file, or stdin when path is "-".
func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
