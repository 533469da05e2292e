package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// MetricsCmd exposes the Prometheus registry over HTTP. It also
// refreshes the point-in-time gauges on a short interval, since
// nothing else calls RefreshGauges outside of `status` and the `run`
// demo driver.
func MetricsCmd(app *App) *cobra.Command {
	metricsCmd := &cobra.Command{
		Use:   "metrics",
		Short: "Serve Prometheus metrics",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start an HTTP server exposing /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")

			ctx := cmd.Context()
			go refreshGaugesLoop(ctx, app, 5*time.Second)

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())

			srv := &http.Server{Addr: addr, Handler: mux}
			fmt.Printf("serving metrics on %s/metrics\n", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		},
	}
	serveCmd.Flags().String("addr", ":9090", "Listen address for the metrics HTTP server")

	metricsCmd.AddCommand(serveCmd)
	return metricsCmd
}

func refreshGaugesLoop(ctx context.Context, app *App, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			counts, err := app.Store.CountsByState(ctx)
			if err != nil {
				continue
			}
			workers, err := app.Store.ListWorkers(ctx)
			if err != nil {
				continue
			}
			app.Metrics.RefreshGauges(counts, len(workers))
		}
	}
}
