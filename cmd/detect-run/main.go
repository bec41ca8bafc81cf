package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"log/slog"

	"github.com/joho/godotenv"

	"github.com/innergy/blueprint-detection/constants"
	"github.com/innergy/blueprint-detection/internal/blob"
	"github.com/innergy/blueprint-detection/internal/common"
	"github.com/innergy/blueprint-detection/internal/detector"
	"github.com/innergy/blueprint-detection/internal/pipeline"
	"github.com/innergy/blueprint-detection/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		jobID      = flag.String("job", "", "blueprint id to run (required)")
		sessionID  = flag.String("session", "", "session id (resolved via the index when omitted)")
		confidence = flag.Float64("confidence", constants.DefaultConfidence, "detection confidence threshold")
	)
	flag.Parse()

	if *jobID == "" {
		printError("Error: -job is required\n")
		os.Exit(1)
	}

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	store, err := openStore(ctx, cfg)
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

	sess := *sessionID
	if sess == "" {
		resolver := repository.NewResolver(store, index, logger)
		ref, err := resolver.Find(ctx, *jobID)
		if err != nil {
			logger.Error("failed to resolve blueprint session", "blueprint_id", *jobID, "error", err)
			os.Exit(1)
		}
		sess = ref.SessionID
		logger.Info("resolved session", "blueprint_id", *jobID, "session_id", sess)
	}

	client := detector.NewClient(detector.Config{
		Endpoint: cfg.Detector.Endpoint,
		Timeout:  cfg.Detector.Timeout,
	}, logger)
	invoker := detector.NewInvoker(client, detector.RetryConfig{
		MaxAttempts: cfg.Detector.MaxAttempts,
		BaseDelay:   cfg.Detector.BaseDelay,
	}, logger)
	pipe := pipeline.NewPipeline(records, invoker, cfg.Detector.ModelVersion, logger)

	results, err := pipe.Run(ctx, sess, *jobID, *confidence)
	if err != nil {
		logger.Error("detection run failed", "blueprint_id", *jobID, "error", err)
		os.Exit(1)
	}

	fmt.Printf("Detection complete!\n")
	fmt.Printf("- Blueprint: %s\n", results.BlueprintID)
	fmt.Printf("- Detections: %d\n", results.Statistics.TotalDetections)
	fmt.Printf("- Rooms: %d\n", results.Statistics.TotalRooms)
	fmt.Printf("- Avg confidence: %.2f\n", results.Statistics.AvgConfidence)
	fmt.Printf("- Processing time: %.2fs\n", results.ProcessingTime)

	classes := make([]string, 0, len(results.Statistics.ElementCounts))
	for class := range results.Statistics.ElementCounts {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	for _, class := range classes {
		fmt.Printf("- %s: %d\n", class, results.Statistics.ElementCounts[class])
	}
}

func openStore(ctx context.Context, cfg *common.Config) (blob.Store, error) {
	if cfg.Storage.Backend == "s3" {
		return blob.NewS3(ctx, cfg.Storage.Bucket, cfg.Storage.Prefix)
	}
	return blob.NewLocalFS(cfg.Storage.LocalDir, cfg.Server.BaseURL, cfg.Storage.SigningSecret)
}

func openIndex(ctx context.Context, cfg *common.Config, logger *slog.Logger) (repository.Index, error) {
	if cfg.Index.Driver == "postgres" {
		return repository.NewPostgresIndex(ctx, cfg.Index.DSN, logger)
	}
	return repository.NewSQLiteIndex(cfg.Index.Path, logger)
}
