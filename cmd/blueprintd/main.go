package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/joho/godotenv"

	"github.com/innergy/blueprint-detection/internal/async"
	"github.com/innergy/blueprint-detection/internal/blob"
	"github.com/innergy/blueprint-detection/internal/blueprints"
	"github.com/innergy/blueprint-detection/internal/common"
	"github.com/innergy/blueprint-detection/internal/detector"
	"github.com/innergy/blueprint-detection/internal/export"
	"github.com/innergy/blueprint-detection/internal/intake"
	"github.com/innergy/blueprint-detection/internal/pipeline"
	"github.com/innergy/blueprint-detection/internal/repository"
	"github.com/innergy/blueprint-detection/internal/server"
)

func main() {
	// .env is optional; real deployments configure through the environment
	_ = godotenv.Load()

	cfg := common.LoadConfig()
	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, uploads, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open blob store", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}

	index, err := openIndex(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open lookup index", "driver", cfg.Index.Driver, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := index.Close(); err != nil {
			logger.Error("failed to close lookup index", "error", err)
		}
	}()

	records := repository.NewRecordStore(store, logger)
	resolver := repository.NewResolver(store, index, logger)

	client := detector.NewClient(detector.Config{
		Endpoint: cfg.Detector.Endpoint,
		Timeout:  cfg.Detector.Timeout,
	}, logger)
	invoker := detector.NewInvoker(client, detector.RetryConfig{
		MaxAttempts: cfg.Detector.MaxAttempts,
		BaseDelay:   cfg.Detector.BaseDelay,
	}, logger)
	pipe := pipeline.NewPipeline(records, invoker, cfg.Detector.ModelVersion, logger)

	queue := async.NewRunnerQueue(pipe, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithRunTimeout(cfg.Queue.ProcessTimeout),
	)

	srv := &server.Server{
		Intake:     intake.NewService(records, store, index, cfg.Storage.PresignTTL, logger),
		Blueprints: blueprints.NewService(resolver, records, logger),
		Exports:    export.NewService(logger),
		Runner:     pipe,
		Queue:      queue,
		Store:      store,
		Index:      index,
		Uploads:    uploads,
		BaseURL:    cfg.Server.BaseURL,
		Logger:     logger,
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router(),
	}

	go func() {
		logger.Info("blueprintd listening",
			"addr", cfg.Server.Addr,
			"storage_backend", cfg.Storage.Backend,
			"index_driver", cfg.Index.Driver,
			"detector_endpoint", cfg.Detector.Endpoint,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Drain in-flight detection runs before closing the listener so their
	// final status writes land.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// openStore builds the configured blob store. The second return is non-nil
// only for the local backend, which serves uploads through the daemon.
func openStore(ctx context.Context, cfg *common.Config) (blob.Store, *blob.LocalFS, error) {
	if cfg.Storage.Backend == "s3" {
		store, err := blob.NewS3(ctx, cfg.Storage.Bucket, cfg.Storage.Prefix)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
	lfs, err := blob.NewLocalFS(cfg.Storage.LocalDir, cfg.Server.BaseURL, cfg.Storage.SigningSecret)
	if err != nil {
		return nil, nil, err
	}
	return lfs, lfs, nil
}

func openIndex(ctx context.Context, cfg *common.Config, logger *slog.Logger) (repository.Index, error) {
	if cfg.Index.Driver == "postgres" {
		return repository.NewPostgresIndex(ctx, cfg.Index.DSN, logger)
	}
	return repository.NewSQLiteIndex(cfg.Index.Path, logger)
}
