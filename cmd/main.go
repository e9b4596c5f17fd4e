package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hedvall/vakthund/internal/adapters/feed"
	"github.com/hedvall/vakthund/internal/adapters/http/api"
	"github.com/hedvall/vakthund/internal/adapters/repository"
	"github.com/hedvall/vakthund/internal/app"
	"github.com/hedvall/vakthund/internal/config"
	"github.com/hedvall/vakthund/internal/domain/scoring"
	"github.com/hedvall/vakthund/pkg/logger"
	"github.com/hedvall/vakthund/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 60 * time.Second // manual sync fetches the feed inline
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics;
	// the system metrics updater covers what we need.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input).
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	var store repository.Store
	switch cfg.StoreDriver {
	case "memory":
		store = repository.NewMemoryStore()
		log.Info(ctx, "using in-memory store")
	default:
		sqlStore, err := repository.OpenSQLite(cfg.DataDir)
		if err != nil {
			os.Stderr.WriteString("failed to open store: " + err.Error() + "\n")
			return
		}
		store = sqlStore
		log.Info(ctx, "using sqlite store", logger.String("dataDir", cfg.DataDir))
	}

	feedClient := feed.New(cfg.FeedBaseURL,
		feed.WithRequestTimeout(time.Duration(cfg.FeedTimeoutSeconds)*time.Second),
	)
	scorer := scoring.New(
		scoring.WithTriggerPhrases(cfg.TriggerPhrases),
	)

	svc := app.New(
		app.WithLogger(log),
		app.WithStore(store),
		app.WithFeed(feedClient),
		app.WithScorer(scorer),
		app.WithSyncInterval(time.Duration(cfg.SyncIntervalMinutes)*time.Minute),
		app.WithBackfillDays(cfg.BackfillDays),
		app.WithBackfillDelay(time.Duration(cfg.BackfillDelayMS)*time.Millisecond),
		app.WithRetention(time.Duration(cfg.RetentionDays)*24*time.Hour),
		app.WithRecentLimit(cfg.MaxIncidentsLimit),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// startSystemMetricsUpdater periodically refreshes system-level metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			metrics.UpdateSystemMemoryUsage(m.Alloc)
			metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
		}
	}
}
