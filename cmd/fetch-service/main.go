package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mediagrab/fetch-api/internal/api/handler"
	"github.com/mediagrab/fetch-api/internal/api/router"
	"github.com/mediagrab/fetch-api/internal/cleanup"
	"github.com/mediagrab/fetch-api/internal/config"
	"github.com/mediagrab/fetch-api/internal/fetch"
	"github.com/mediagrab/fetch-api/internal/jobs"
	"github.com/mediagrab/fetch-api/shared/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("FETCH_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/fetch-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting fetch service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Job lifecycle core
	store := jobs.NewStore()
	runner := jobs.NewRunner(&jobs.RunnerConfig{
		Logger:    appLogger.Logger,
		Store:     store,
		MaxActive: int64(cfg.Download.MaxActive),
	})

	engine := fetch.NewYTDLPEngine(appLogger.Logger)
	fetcher := fetch.NewFetcher(&fetch.FetcherConfig{
		Logger:   appLogger.Logger,
		Store:    store,
		Engine:   engine,
		MediaExt: cfg.Download.MediaExt,
		TempDir:  cfg.Download.TempDir,
	})

	cleanupWorker := cleanup.NewWorker(appLogger.Logger, cfg.Cleanup.QueueSize)
	cleanupWorker.Start(ctx)

	if cfg.Jobs.Retention > 0 {
		go pruneLoop(ctx, appLogger.Logger, store, cfg.Jobs.Retention, cfg.Jobs.PruneInterval)
	}

	r := initRouter(cfg, appLogger.Logger, store, runner, fetcher, cleanupWorker)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("Fetch service is running",
		slog.String("address", addr),
		slog.Int("max_active_jobs", cfg.Download.MaxActive),
	)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
	}

	if err := runner.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("Runner shutdown incomplete",
			slog.Any("error", err),
		)
	}

	cancel()
	cleanupWorker.Stop()

	appLogger.Info("Server shutdown complete")
	return nil
}

// pruneLoop periodically evicts terminal job records older than the
// configured retention.
func pruneLoop(ctx context.Context, logger *slog.Logger, store *jobs.Store, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := store.Prune(retention); removed > 0 {
				logger.Info("Pruned finished jobs",
					slog.Int("removed", removed),
				)
			}
		}
	}
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(
	cfg *config.Config,
	logger *slog.Logger,
	store *jobs.Store,
	runner *jobs.Runner,
	fetcher *fetch.Fetcher,
	cleanupWorker *cleanup.Worker,
) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(&handler.Dependencies{
		Logger:     logger,
		Store:      store,
		Runner:     runner,
		Fetcher:    fetcher,
		Cleanup:    cleanupWorker,
		DefaultDir: cfg.Download.Dir,
	})
}
