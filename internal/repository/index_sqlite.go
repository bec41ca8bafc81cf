package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/innergy/blueprint-detection/internal/common"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS blueprint_index (
	blueprint_id TEXT PRIMARY KEY,
	session_id   TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

type sqliteIndex struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteIndex opens the single-file index database, creating the file and
// schema on first use.
func NewSQLiteIndex(path string, logger *slog.Logger) (Index, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index dir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init index schema: %w", err)
	}
	return &sqliteIndex{db: db, logger: logger}, nil
}

func (i *sqliteIndex) Put(ctx context.Context, blueprintID, sessionID string) error {
	_, err := i.db.ExecContext(ctx,
		`INSERT INTO blueprint_index (blueprint_id, session_id) VALUES (?, ?)
		 ON CONFLICT(blueprint_id) DO NOTHING`,
		blueprintID, sessionID)
	if err != nil {
		i.logger.Error("failed to index blueprint", "blueprint_id", blueprintID, "error", err)
		return err
	}
	return nil
}

func (i *sqliteIndex) Lookup(ctx context.Context, blueprintID string) (string, error) {
	var sessionID string
	err := i.db.QueryRowContext(ctx,
		`SELECT session_id FROM blueprint_index WHERE blueprint_id = ?`,
		blueprintID).Scan(&sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.NotFoundf("blueprint %s not indexed", blueprintID)
	}
	if err != nil {
		i.logger.Error("failed to look up blueprint", "blueprint_id", blueprintID, "error", err)
		return "", err
	}
	return sessionID, nil
}

func (i *sqliteIndex) Close() error {
	return i.db.Close()
}
