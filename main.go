package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/msfxinfinity/QueueCTL/cmd"
	"github.com/msfxinfinity/QueueCTL/internal/config"
	"github.com/msfxinfinity/QueueCTL/internal/metrics"
	"github.com/msfxinfinity/QueueCTL/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatal("Failed to create data directory:", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "queue.db")

	store, err := storage.Open(dbPath)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}
	defer store.Close()

	recorder := metrics.NewRecorder(prometheus.DefaultRegisterer)

	cmd.Execute(&cmd.App{
		Cfg:     cfg,
		Store:   store,
		Metrics: recorder,
	})
}
