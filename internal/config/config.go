package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Either DATABASE_URL (postgres://...) or the SQLite pair
	// PATH_TO_DATABASE + NAME_DB must be set.
	DatabaseURL    string `envconfig:"DATABASE_URL" default:""`
	PathToDatabase string `envconfig:"PATH_TO_DATABASE" default:""`
	DatabaseName   string `envconfig:"NAME_DB" default:""`
	DBMinConns     int32  `envconfig:"DB_MIN_CONNS" default:"1"`
	DBMaxConns     int32  `envconfig:"DB_MAX_CONNS" default:"8"`

	PathToCSV string `envconfig:"PATH_TO_CSV" default:""`

	EmbeddingServiceURL     string `envconfig:"EMBEDDING_SERVICE_URL" default:""`
	EmbeddingModelName      string `envconfig:"EMBEDDING_MODEL_NAME" default:"all-MiniLM-L6-v2"`
	EmbeddingDimensions     int    `envconfig:"EMBEDDING_DIMENSIONS" default:"384"`
	EmbeddingTimeoutSeconds int    `envconfig:"EMBEDDING_TIMEOUT_SECONDS" default:"45"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		if strings.TrimSpace(c.PathToDatabase) == "" || strings.TrimSpace(c.DatabaseName) == "" {
			return fmt.Errorf("either DATABASE_URL or PATH_TO_DATABASE and NAME_DB are required")
		}
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) cannot exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.EmbeddingDimensions < 1 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be >= 1")
	}
	if c.EmbeddingTimeoutSeconds < 1 {
		return fmt.Errorf("EMBEDDING_TIMEOUT_SECONDS must be >= 1")
	}
	return nil
}

// UsePostgres reports whether DATABASE_URL points at a postgres server.
func (c *Config) UsePostgres() bool {
	trimmed := strings.ToLower(strings.TrimSpace(c.DatabaseURL))
	return strings.HasPrefix(trimmed, "postgres://") || strings.HasPrefix(trimmed, "postgresql://")
}

// SQLitePath returns the full path to the SQLite database file.
func (c *Config) SQLitePath() string {
	return filepath.Join(strings.TrimSpace(c.PathToDatabase), strings.TrimSpace(c.DatabaseName))
}

func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.EmbeddingTimeoutSeconds) * time.Second
}

// EmbeddingConfigured reports whether an embedding service endpoint is set.
// When false the embedding stage is reported as unavailable.
func (c *Config) EmbeddingConfigured() bool {
	return strings.TrimSpace(c.EmbeddingServiceURL) != ""
}
