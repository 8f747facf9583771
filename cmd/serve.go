package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/agendahook/internal/instrumentation"
	"github.com/teemow/agendahook/internal/server"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

// serveOptions are the flag values of the serve command.
type serveOptions struct {
	listen   string
	schedule string
	metrics  MetricsConfig
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP trigger server",
		Long: `Starts an HTTP server that runs the digest pipeline on every request to
/ or /trigger and answers with the run's status and message.

With --schedule (or "schedule" in the config) the pipeline also runs on a
cron schedule, for example "0 18 * * *" for every evening at 18:00.

The server never starts the browser consent flow: store a token first with
"agendahook auth".

Health probes are served on /healthz and /readyz. Prometheus metrics are
served on a separate port (--metrics-addr).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.listen, "listen", "", "Trigger server listen address (overrides config)")
	cmd.Flags().StringVar(&opts.schedule, "schedule", "", "Cron expression for scheduled runs (overrides config)")
	cmd.Flags().BoolVar(&opts.metrics.Enabled, "metrics", true, "Serve Prometheus metrics on a dedicated port")
	cmd.Flags().StringVar(&opts.metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server listen address")

	return cmd
}

// loadMetricsEnv applies METRICS_ENABLED and METRICS_ADDR when the matching
// flag was not set explicitly.
func loadMetricsEnv(cmd *cobra.Command, config *MetricsConfig) {
	if !cmd.Flags().Changed("metrics") {
		if v := os.Getenv("METRICS_ENABLED"); v != "" {
			if enabled, err := strconv.ParseBool(v); err == nil {
				config.Enabled = enabled
			}
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			config.Addr = addr
		}
	}
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.listen != "" {
		cfg.Listen = opts.listen
	}
	if opts.schedule != "" {
		cfg.Schedule = opts.schedule
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	logger := newLogger(cfg)
	loadMetricsEnv(cmd, &opts.metrics)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("error during instrumentation shutdown", slog.Any("error", err))
		}
	}()

	// Start metrics server if enabled
	var metricsServer *server.MetricsServer
	if opts.metrics.Enabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.metrics.Addr,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		// Use ready channel to confirm metrics server started successfully
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}

		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Error("error during metrics server shutdown", slog.Any("error", err))
			}
		}()
	}

	p, err := newPipeline(cfg, logger, preProvisioned, provider.Metrics())
	if err != nil {
		return err
	}
	defer p.close()

	if cfg.WebhookURL == "" {
		logger.Warn("webhook URL is not set; every run will answer 400")
	}

	health := server.NewHealthChecker()
	serial := server.NewSerial(p.runner, health)

	trigger, err := server.New(server.Config{
		Addr:    cfg.Listen,
		Runner:  serial,
		Health:  health,
		Metrics: provider.Metrics(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	if cfg.Schedule != "" {
		scheduler, err := server.NewScheduler(shutdownCtx, cfg.Schedule, serial, logger)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer func() {
			<-scheduler.Stop().Done()
		}()
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := trigger.Start(nil); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received, stopping trigger server")
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := trigger.Shutdown(ctx); err != nil {
			return fmt.Errorf("error shutting down trigger server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("trigger server stopped with error: %w", err)
		}
	}

	logger.Info("trigger server gracefully stopped")
	return nil
}
