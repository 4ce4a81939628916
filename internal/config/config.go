// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir           string // Base directory for all databases (always absolute)
	Port              int
	LogLevel          string
	DevMode           bool
	SnapshotRetention int    // How many state snapshots to keep when pruning
	MaintenanceSpec   string // Cron spec for the maintenance jobs
	DefaultInfluence  float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("QBAYES_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	influence, err := getEnvAsFloat("QBAYES_DEFAULT_INFLUENCE", 0.5)
	if err != nil {
		return nil, err
	}
	if influence < 0 || influence > 1 {
		return nil, fmt.Errorf("QBAYES_DEFAULT_INFLUENCE %f must be within [0, 1]", influence)
	}

	cfg := &Config{
		DataDir:           absDataDir,
		Port:              getEnvAsInt("QBAYES_PORT", 8090),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		SnapshotRetention: getEnvAsInt("QBAYES_SNAPSHOT_RETENTION", 50),
		MaintenanceSpec:   getEnv("QBAYES_MAINTENANCE_SPEC", "0 * * * *"),
		DefaultInfluence:  influence,
	}

	return cfg, nil
}

// DatabasePath returns the path of a named sqlite database inside the data directory
func (c *Config) DatabasePath(name string) string {
	return filepath.Join(c.DataDir, name+".db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsFloat reads a float from the environment, failing on malformed
// values instead of silently falling back
func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s is not a valid float: %w", key, err)
	}
	return parsed, nil
}
