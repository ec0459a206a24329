package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/config"
	"github.com/mikey/llm-claim-detector/internal/core"
)

func daemonCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the pipeline on a schedule and serve metrics",
		Long: `Run an incremental pipeline pass every schedule.interval. A tick that fires
while the previous pass is still running is skipped. Prometheus metrics are
served on metrics.listen_address.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(concurrency)
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Concurrent classification calls (default from analysis.concurrency)")
	return cmd
}

func runDaemon(concurrency int) error {
	container, err := buildContainer()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return container.Invoke(func(
		cfg *config.Config,
		logger *zap.Logger,
		registry *prometheus.Registry,
		pipeline *core.Pipeline,
		source core.MailSource,
		store core.Store,
		classifier core.Classifier,
	) error {
		defer logger.Sync()
		defer closeAll(logger, classifier, source, store)

		interval, err := cfg.GetDuration("schedule.interval")
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              cfg.GetString("metrics.listen_address"),
			Handler:           metricsHandler(registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("Serving metrics", zap.String("address", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()

		var wg sync.WaitGroup
		tick := func() {
			wg.Add(1)
			go func() {
				defer wg.Done()
				summary, err := pipeline.Process(ctx, core.Options{Concurrency: concurrency, Debug: debug})
				if err != nil {
					logger.Error("Scheduled run failed", zap.Error(err))
					return
				}
				if summary.Skipped {
					logger.Info("Previous run still in progress, tick skipped")
				}
			}()
		}

		logger.Info("Daemon started", zap.Duration("interval", interval))
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		tick()
		for {
			select {
			case <-ctx.Done():
				logger.Info("Shutting down...")
				wg.Wait()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Error("Failed to stop metrics server", zap.Error(err))
				}
				logger.Info("Shutdown complete")
				return nil
			case <-ticker.C:
				tick()
			}
		}
	})
}

func metricsHandler(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
