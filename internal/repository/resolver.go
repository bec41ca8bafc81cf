package repository

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/innergy/blueprint-detection/internal/blob"
	"github.com/innergy/blueprint-detection/internal/common"
)

const (
	scanPrefix = "uploads/"

	// scanMaxKeys bounds the fallback scan to a single listing page. Jobs
	// beyond the page are not found by the scan; the index exists so this
	// limitation is not load-bearing.
	scanMaxKeys int32 = 100
)

// Resolver resolves a blueprint id to its job namespace when the caller has
// no session id.
type Resolver interface {
	Find(ctx context.Context, blueprintID string) (JobRef, error)
}

type resolver struct {
	store  blob.Store
	index  Index
	logger *slog.Logger
}

// NewResolver builds a resolver over the blob store and an optional index
// (nil index means scan-only).
func NewResolver(store blob.Store, index Index, logger *slog.Logger) Resolver {
	return &resolver{
		store:  store,
		index:  index,
		logger: logger,
	}
}

func (r *resolver) Find(ctx context.Context, blueprintID string) (JobRef, error) {
	if r.index != nil {
		sessionID, err := r.index.Lookup(ctx, blueprintID)
		switch {
		case err == nil:
			return JobRef{SessionID: sessionID, BlueprintID: blueprintID}, nil
		case errors.Is(err, common.ErrNotFound):
			// not indexed, fall back to the scan
		default:
			r.logger.Warn("index lookup failed, falling back to scan",
				"blueprint_id", blueprintID, "error", err)
		}
	}
	return r.scan(ctx, blueprintID)
}

// scan lists at most one page of keys under the uploads prefix and returns
// the namespace of the first document key belonging to the blueprint. A hit
// backfills the index.
func (r *resolver) scan(ctx context.Context, blueprintID string) (JobRef, error) {
	keys, err := r.store.List(ctx, scanPrefix, scanMaxKeys)
	if err != nil {
		r.logger.Error("failed to scan job namespace", "blueprint_id", blueprintID, "error", err)
		return JobRef{}, err
	}
	for _, key := range keys {
		if !strings.Contains(key, blueprintID) {
			continue
		}
		ref, ok := parseKey(key)
		if !ok || ref.BlueprintID != blueprintID {
			continue
		}
		if r.index != nil {
			if err := r.index.Put(ctx, ref.BlueprintID, ref.SessionID); err != nil {
				r.logger.Warn("index backfill failed", "blueprint_id", blueprintID, "error", err)
			}
		}
		return ref, nil
	}
	return JobRef{}, common.NotFoundf("blueprint %s", blueprintID)
}

// parseKey extracts a job reference from an uploads/{session}/{id}/{doc} key.
func parseKey(key string) (JobRef, bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 4 || parts[0] != "uploads" || parts[1] == "" || parts[2] == "" {
		return JobRef{}, false
	}
	switch {
	case strings.HasSuffix(parts[3], ".json"), strings.HasPrefix(parts[3], "original."):
		return JobRef{SessionID: parts[1], BlueprintID: parts[2]}, true
	}
	return JobRef{}, false
}
