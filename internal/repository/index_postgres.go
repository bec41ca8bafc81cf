package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/innergy/blueprint-detection/internal/common"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS blueprint_index (
	blueprint_id TEXT PRIMARY KEY,
	session_id   TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`

type postgresIndex struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresIndex connects a pgx pool and ensures the index table exists.
func NewPostgresIndex(ctx context.Context, dsn string, logger *slog.Logger) (Index, error) {
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse index dsn: %w", err)
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "blueprint-detection"

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to index database", "error", err)
		return nil, err
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init index schema: %w", err)
	}
	logger.Info("connected to index database")
	return &postgresIndex{pool: pool, logger: logger}, nil
}

func (i *postgresIndex) Put(ctx context.Context, blueprintID, sessionID string) error {
	_, err := i.pool.Exec(ctx,
		`INSERT INTO blueprint_index (blueprint_id, session_id) VALUES ($1, $2)
		 ON CONFLICT (blueprint_id) DO NOTHING`,
		blueprintID, sessionID)
	if err != nil {
		i.logger.Error("failed to index blueprint", "blueprint_id", blueprintID, "error", err)
		return err
	}
	return nil
}

func (i *postgresIndex) Lookup(ctx context.Context, blueprintID string) (string, error) {
	var sessionID string
	err := i.pool.QueryRow(ctx,
		`SELECT session_id FROM blueprint_index WHERE blueprint_id = $1`,
		blueprintID).Scan(&sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", common.NotFoundf("blueprint %s not indexed", blueprintID)
	}
	if err != nil {
		i.logger.Error("failed to look up blueprint", "blueprint_id", blueprintID, "error", err)
		return "", err
	}
	return sessionID, nil
}

func (i *postgresIndex) Close() error {
	i.pool.Close()
	return nil
}
