package worker

import (
	"context"
	"strconv"
	"time"

	"github.com/msfxinfinity/QueueCTL/internal/storage"
)

// runtimeConfig is re-read from the database's config table at the
// top of every poll tick, per the hot-reload decision in
// SPEC_FULL.md — a change to, say, poll_interval_ms takes effect
// within one tick without restarting any worker.
type runtimeConfig struct {
	pollInterval  time.Duration
	baseBackoff   float64
	maxBackoff    int
	leaseDuration time.Duration
	maxRetries    int
	execTimeout   time.Duration
	stop          bool
}

func loadRuntimeConfig(ctx context.Context, store *storage.Store) (runtimeConfig, error) {
	all, err := store.ConfigAll(ctx)
	if err != nil {
		return runtimeConfig{}, err
	}

	cfg := runtimeConfig{
		pollInterval:  500 * time.Millisecond,
		baseBackoff:   2,
		maxBackoff:    3600,
		leaseDuration: 60 * time.Second,
		maxRetries:    3,
		execTimeout:   30 * time.Second,
	}

	if v, ok := all["poll_interval_ms"]; ok {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.pollInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v, ok := all["base_backoff_seconds"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.baseBackoff = f
		}
	}
	if v, ok := all["max_backoff_seconds"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.maxBackoff = n
		}
	}
	if v, ok := all["lease_duration_seconds"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.leaseDuration = time.Duration(n) * time.Second
		}
	}
	if v, ok := all["default_max_retries"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.maxRetries = n
		}
	}
	if v, ok := all["exec_timeout_seconds"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.execTimeout = time.Duration(n) * time.Second
		}
	}
	cfg.stop = all["workers.stop"] == "1"

	return cfg, nil
}
