package config

import (
	"os"
	"strconv"
	"time"

	"epifam/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Data     DataConfig
	Run      RunConfig
}

// DatabaseConfig holds database connection settings. URL may be empty:
// result persistence is optional and skipped without it.
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// DataConfig holds data source settings
type DataConfig struct {
	SubjectFile string
}

// RunConfig holds pipeline execution settings
type RunConfig struct {
	Workers     int
	CellTimeout time.Duration
	CacheDir    string
	Refresh     bool
	Seed        int64
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
		Data: DataConfig{
			SubjectFile: os.Getenv("SUBJECT_FILE"),
		},
		Run: RunConfig{
			Workers:     getEnvIntOrDefault("RUN_WORKERS", 4),
			CellTimeout: getEnvDurationOrDefault("CELL_TIMEOUT", 10*time.Minute),
			CacheDir:    getEnvOrDefault("FIT_CACHE_DIR", ".fitcache"),
			Refresh:     getEnvBoolOrDefault("REFIT", false),
			Seed:        int64(getEnvIntOrDefault("RUN_SEED", 20260830)),
		},
	}

	if cfg.Data.SubjectFile == "" {
		return nil, errors.ConfigInvalid("SUBJECT_FILE is required")
	}
	if cfg.Run.Workers < 1 {
		return nil, errors.ConfigInvalid("RUN_WORKERS must be at least 1")
	}
	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
