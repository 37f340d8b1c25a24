package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edgarlens/edgarlens/internal/config"
	"github.com/edgarlens/edgarlens/internal/edgar"
	apperrors "github.com/edgarlens/edgarlens/internal/errors"
	"github.com/edgarlens/edgarlens/internal/metrics"
	"github.com/edgarlens/edgarlens/internal/observability"
	"github.com/edgarlens/edgarlens/internal/server"
	"github.com/edgarlens/edgarlens/internal/server/handlers"
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return apperrors.NewInternalError("telemetry system not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server. All requests share one EDGAR client, so the
upstream quota and response cache are shared across callers.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Re-read the config file and update the log level

The server will cleanly shut down the HTTP server and flush logs on shutdown.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "server host (default from config)")
	serveCmd.Flags().IntP("port", "p", 0, "server port (default from config)")
	serveCmd.Flags().Bool("metrics", false, "expose Prometheus metrics on the metrics port")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()
	if cfg == nil {
		cfg = config.Default()
	}
	serverCfg := cfg.Server
	if cmd.Flags().Changed("host") {
		serverCfg.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		serverCfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if serverCfg.ShutdownTimeout <= 0 {
		serverCfg.ShutdownTimeout = config.Default().Server.ShutdownTimeout
	}
	metricsEnabled := cfg.Metrics.Enabled
	if cmd.Flags().Changed("metrics") {
		metricsEnabled, _ = cmd.Flags().GetBool("metrics")
	}

	observability.InitServerLogger(config.AppName, cfg.Logging.Level)
	logger := observability.ServerLogger

	if metricsEnabled {
		if err := observability.InitMetrics(config.AppName, cfg.Metrics.Port); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return apperrors.Wrap(cmd.Context(), apperrors.CodeInternal, err, "metrics initialization failed")
		}
	}

	client, err := edgar.NewFromConfig(cfg, edgar.WithLogger(logger))
	if err != nil {
		return apperrors.Wrap(cmd.Context(), apperrors.CodeInvalidInput, err, "invalid client configuration")
	}

	logger.Info("Initializing server",
		zap.String("service", config.AppName),
		zap.String("version", versionInfo.Version),
		zap.String("host", serverCfg.Host),
		zap.Int("port", serverCfg.Port),
		zap.Bool("metrics", metricsEnabled),
		zap.String("client", client.String()))

	hm := handlers.NewHealthManager(versionInfo.Version)
	hm.RegisterChecker("edgar_client", handlers.CheckerFunc(upstreamChecker(client)))
	if metricsEnabled {
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})
	}

	srv := server.New(serverCfg, client.Async(), server.WithHealthManager(hm))

	// Register graceful shutdown handlers (LIFO order - last registered, first executed)
	// Handler 1: Flush logger (executed last)
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Flushing logger...")
		if err := logger.Sync(); err != nil {
			// Sync errors are often benign (stdout/stderr already closed)
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})

	// Handler 2: Drop cached responses and idle upstream connections
	signals.OnShutdown(func(ctx context.Context) error {
		return client.Close()
	})

	// Handler 3: Shutdown HTTP server (executed first)
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, serverCfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return apperrors.Wrap(ctx, apperrors.CodeInternal, err, "server shutdown failed")
		}

		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	// SIGHUP re-reads the config file. Client and listener settings need a
	// restart; the log level applies immediately.
	signals.OnReload(func(ctx context.Context) error {
		logger.Info("Received SIGHUP: attempting config reload")
		reloaded, err := reloadConfig()
		if err != nil {
			logger.Error("Failed to reload config", zap.Error(err))
			return apperrors.Wrap(ctx, apperrors.CodeInvalidInput, err, "config reload failed")
		}
		if reloaded.Logging.Level != cfg.Logging.Level {
			observability.InitServerLogger(config.AppName, reloaded.Logging.Level)
			logger = observability.ServerLogger
		}
		logger.Info("Configuration reloaded", zap.String("log_level", reloaded.Logging.Level))
		return nil
	})

	// Enable double-tap force quit (Ctrl+C within 2 seconds)
	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	metrics.SetServerStartTime(time.Now().Unix())

	// Start server in background goroutine
	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server...",
			zap.String("host", serverCfg.Host),
			zap.Int("port", serverCfg.Port))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start signal listener in background
	go func() {
		if err := signals.Listen(cmd.Context()); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	// Wait for error or shutdown completion
	if err := <-errChan; err != nil {
		return apperrors.Wrap(cmd.Context(), apperrors.CodeInternal, err, "server error")
	}

	return nil
}

// reloadConfig re-reads the config file used at startup and reloads the
// effective configuration.
func reloadConfig() (*config.Config, error) {
	v, err := readConfigFile(cfgFile)
	if err != nil {
		return nil, err
	}
	bindClientFlags(v)
	cfg, err := config.Load(v, flagOverrides())
	if err != nil {
		return nil, err
	}
	cfgViper = v
	return cfg, nil
}
