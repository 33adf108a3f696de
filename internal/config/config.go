package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds baseline configuration loaded from environment variables and,
// optionally, a YAML file.
type Config struct {
	ModelDir   string `yaml:"model_dir"`
	ModelStore string `yaml:"model_store"` // "dir" or "redis"
	RedisURL   string `yaml:"redis_url"`

	// ReportDBURL selects where evaluation reports are saved. A postgres://
	// URL uses Postgres, anything else is a SQLite path. Empty disables saving.
	ReportDBURL string `yaml:"report_db_url"`
	// ReportDBMaxConns caps the Postgres report pool.
	ReportDBMaxConns int `yaml:"report_db_max_conns"`

	Classifier         string  `yaml:"classifier"` // "knn" or "linear"
	KNNMaxNeighbors    int     `yaml:"knn_max_neighbors"`
	LinearEpochs       int     `yaml:"linear_epochs"`
	LinearLearningRate float64 `yaml:"linear_learning_rate"`

	Workers       int   `yaml:"workers"`
	SkipMalformed bool  `yaml:"skip_malformed"`
	SimilarityK   int   `yaml:"similarity_k"`
	Seed          int64 `yaml:"seed"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		ModelDir:           envOrDefault("MODEL_DIR", "models"),
		ModelStore:         envOrDefault("MODEL_STORE", "dir"),
		RedisURL:           envOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		ReportDBURL:        envOrDefault("REPORT_DB_URL", ""),
		ReportDBMaxConns:   envInt("REPORT_DB_MAX_CONNS", 4),
		Classifier:         envOrDefault("CLASSIFIER", "knn"),
		KNNMaxNeighbors:    envInt("KNN_MAX_NEIGHBORS", 10),
		LinearEpochs:       envInt("LINEAR_EPOCHS", 50),
		LinearLearningRate: envFloat("LINEAR_LEARNING_RATE", 0.05),
		Workers:            envInt("TRAIN_WORKERS", runtime.NumCPU()),
		SkipMalformed:      envBool("SKIP_MALFORMED", false),
		SimilarityK:        envInt("SIMILARITY_K", 5),
		Seed:               int64(envInt("SEED", 1)),
	}
}

// LoadFile loads the environment configuration and overlays the YAML file at
// path on top of it. Keys missing from the file keep their environment value.
// An empty path validates and returns the environment configuration.
func LoadFile(path string) (*Config, error) {
	cfg := Load()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated fields and numeric bounds.
func (c *Config) Validate() error {
	switch c.ModelStore {
	case "dir", "redis":
	default:
		return fmt.Errorf("model_store must be dir or redis, got %q", c.ModelStore)
	}
	switch c.Classifier {
	case "knn", "linear":
	default:
		return fmt.Errorf("classifier must be knn or linear, got %q", c.Classifier)
	}
	if c.KNNMaxNeighbors < 1 {
		return fmt.Errorf("knn_max_neighbors must be positive, got %d", c.KNNMaxNeighbors)
	}
	if c.SimilarityK < 1 {
		return fmt.Errorf("similarity_k must be positive, got %d", c.SimilarityK)
	}
	if c.ReportDBMaxConns < 1 {
		return fmt.Errorf("report_db_max_conns must be positive, got %d", c.ReportDBMaxConns)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return nil
}

// ReportDriver returns the database/sql driver name for ReportDBURL.
func (c *Config) ReportDriver() string {
	if strings.HasPrefix(c.ReportDBURL, "postgres://") || strings.HasPrefix(c.ReportDBURL, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
