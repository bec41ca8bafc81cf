package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"log/slog"

	"github.com/joho/godotenv"

	"github.com/innergy/blueprint-detection/internal/blob"
	"github.com/innergy/blueprint-detection/internal/common"
	"github.com/innergy/blueprint-detection/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: FAIL (%v)", err)
	}

	// keep constructor noise on stderr, probe results on the default logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	failed := false
	check := func(name string, err error) {
		if err != nil {
			log.Printf("%s: FAIL (%v)", name, err)
			failed = true
			return
		}
		log.Printf("%s: OK", name)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("blob store open: FAIL (%v)", err)
	}
	log.Printf("blob store open: OK (%s)", cfg.Storage.Backend)

	probeKey := fmt.Sprintf("healthcheck/probe-%d", time.Now().UnixNano())
	probeBody := []byte("storehealth probe")

	check("blob store write", store.Put(ctx, probeKey, probeBody, "text/plain"))

	body, err := store.Get(ctx, probeKey)
	if err == nil && !bytes.Equal(body, probeBody) {
		err = fmt.Errorf("read back %d bytes, want %d", len(body), len(probeBody))
	}
	check("blob store read", err)

	check("blob store delete", store.Delete(ctx, probeKey))

	index, err := openIndex(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("index open: FAIL (%v)", err)
	}
	defer index.Close()
	log.Printf("index open: OK (%s)", cfg.Index.Driver)

	probeID := fmt.Sprintf("healthcheck-%d", time.Now().UnixNano())
	check("index write", index.Put(ctx, probeID, "healthcheck"))

	sess, err := index.Lookup(ctx, probeID)
	if err == nil && sess != "healthcheck" {
		err = fmt.Errorf("lookup returned %q", sess)
	}
	check("index lookup", err)

	if failed {
		os.Exit(1)
	}
	log.Println("storehealth: all checks passed")
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
