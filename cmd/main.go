package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/flightrelay/internal/adapters/http/api"
	"github.com/okian/flightrelay/internal/adapters/upstream"
	app "github.com/okian/flightrelay/internal/app"
	"github.com/okian/flightrelay/internal/config"
	"github.com/okian/flightrelay/pkg/logger"
	"github.com/okian/flightrelay/pkg/metrics"
)

// Process timing constants.
const (
	shutdownTimeout           = 30 * time.Second
	writeTimeoutMargin        = 5 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// Process exit codes.
const (
	exitOK      = 0
	exitFailure = 1
)

func main() {
	os.Exit(run())
}

// run starts the relay and blocks until SIGINT/SIGTERM. It returns the exit
// code so deferred cleanup runs before the process exits.
func run() int {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return exitFailure
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> dotenv -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return exitFailure
	}

	if cfg.LogFile != "" {
		if err := logger.Init(logger.WithFile(cfg.LogFile)); err != nil {
			os.Stderr.WriteString("failed to open log file: " + err.Error() + "\n")
			return exitFailure
		}
	}
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := newService(cfg, loggerInstance)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return exitFailure
	}

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(context.Background(), "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := svc.Stop(shutdownCtx); err != nil {
		loggerInstance.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
		return exitFailure
	}
	return exitOK
}

// newService wires the upstream client and relay options from cfg.
func newService(cfg *config.Config, log logger.Logger) *app.Service {
	client := upstream.New(cfg.UpstreamURL,
		upstream.WithTimeout(cfg.UpstreamTimeout),
		upstream.WithMaxResponseBytes(cfg.MaxResponseBytes),
		upstream.WithLogger(log.Named("upstream")),
	)

	return app.New(
		app.WithLogger(log),
		app.WithForwarder(client),
		app.WithRelayAddr(cfg.Addr),
		app.WithOpsAddr(cfg.OpsAddr),
		app.WithWriteTimeout(relayWriteTimeout(cfg.UpstreamTimeout)),
		app.WithAPIOptions(
			api.WithAllowedOrigin(cfg.AllowedOrigin),
			api.WithPreflightMaxAge(cfg.PreflightMaxAge),
			api.WithMaxBodyBytes(cfg.MaxBodyBytes),
		),
	)
}

// relayWriteTimeout leaves room to relay an upstream answer that arrives just
// before the upstream timeout. No upstream timeout means no write timeout.
func relayWriteTimeout(upstreamTimeout time.Duration) time.Duration {
	if upstreamTimeout <= 0 {
		return 0
	}
	return upstreamTimeout + writeTimeoutMargin
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		// Average GC pause time
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
