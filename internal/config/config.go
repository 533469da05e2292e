// Package config loads the process bootstrap file: where the queue
// keeps its database, plus fallback values a few commands use when a
// key is missing from the database's own config table. main.go loads
// it on every invocation, before the Store is opened. The database's
// config table is seeded from storage's built-in defaults, not from
// this file, and is authoritative for everything workers read on each
// poll tick.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config is the process bootstrap file, distinct from the database's
// config table (see internal/storage.Store.ConfigGet/ConfigSet).
type Config struct {
	DataDir string `json:"data_dir"`

	// Fallback values. They are not copied into the DB config table;
	// workers read the DB, not these fields. `queue add`, `run` and
	// `status` fall back to DefaultMaxRetries and LeaseDurationSeconds
	// here only when the DB has no such key.
	PollIntervalMS       int     `json:"poll_interval_ms"`
	BaseBackoffSeconds   float64 `json:"base_backoff_seconds"`
	MaxBackoffSeconds    int     `json:"max_backoff_seconds"`
	LeaseDurationSeconds int     `json:"lease_duration_seconds"`
	DefaultMaxRetries    int     `json:"default_max_retries"`
	ExecTimeoutSeconds   int     `json:"exec_timeout_seconds"`
}

const configFileName = "config.json"

// NewConfig returns the environment/defaults table from the spec.
func NewConfig() *Config {
	return &Config{
		DataDir:              "./db",
		PollIntervalMS:       500,
		BaseBackoffSeconds:   2,
		MaxBackoffSeconds:    3600,
		LeaseDurationSeconds: 60,
		DefaultMaxRetries:    3,
		ExecTimeoutSeconds:   30,
	}
}

func configPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	appConfigDir := filepath.Join(configDir, "queuectl")
	if err := os.MkdirAll(appConfigDir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(appConfigDir, configFileName), nil
}

// LoadConfig reads the bootstrap file, seeding it with defaults on
// first run.
func LoadConfig() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}

	cfg := NewConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, SaveConfig(cfg)
		}
		return nil, err
	}
	if err := json.Unmarshal(file, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
