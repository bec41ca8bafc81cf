package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/innergy/blueprint-detection/internal/blob"
	"github.com/innergy/blueprint-detection/internal/common"
	"github.com/innergy/blueprint-detection/internal/entity"
)

// DocType names one of the three documents stored per job.
type DocType string

const (
	DocMetadata DocType = "metadata"
	DocStatus   DocType = "status"
	DocResults  DocType = "results"
)

// JobRef locates one job's namespace in blob storage.
type JobRef struct {
	SessionID   string
	BlueprintID string
}

// Key returns the blob key for one of the job's documents.
func (r JobRef) Key(doc DocType) string {
	return fmt.Sprintf("uploads/%s/%s/%s.json", r.SessionID, r.BlueprintID, doc)
}

// SourceKey returns the blob key for the uploaded artifact.
func (r JobRef) SourceKey(ext string) string {
	return fmt.Sprintf("uploads/%s/%s/original.%s", r.SessionID, r.BlueprintID, ext)
}

// RecordStore mediates every read and write of a job's documents. Puts
// replace the stored document wholesale; there is no partial update.
type RecordStore interface {
	PutMetadata(ctx context.Context, ref JobRef, m *entity.Metadata) error
	GetMetadata(ctx context.Context, ref JobRef) (*entity.Metadata, error)
	PutStatus(ctx context.Context, ref JobRef, s *entity.Status) error
	GetStatus(ctx context.Context, ref JobRef) (*entity.Status, error)
	PutResults(ctx context.Context, ref JobRef, res *entity.Results) error
	GetResults(ctx context.Context, ref JobRef) (*entity.Results, error)
	SourceExists(ctx context.Context, m *entity.Metadata) (bool, error)
	SourceURI(m *entity.Metadata) string
}

type recordStore struct {
	store  blob.Store
	logger *slog.Logger
}

func NewRecordStore(store blob.Store, logger *slog.Logger) RecordStore {
	return &recordStore{
		store:  store,
		logger: logger,
	}
}

func (r *recordStore) put(ctx context.Context, ref JobRef, doc DocType, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s document: %w", doc, err)
	}
	if err := r.store.Put(ctx, ref.Key(doc), body, "application/json"); err != nil {
		r.logger.Error("failed to write job document", "key", ref.Key(doc), "error", err)
		return err
	}
	return nil
}

func (r *recordStore) get(ctx context.Context, ref JobRef, doc DocType, v interface{}) error {
	body, err := r.store.Get(ctx, ref.Key(doc))
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return common.NotFoundf("%s document for %s", doc, ref.BlueprintID)
		}
		r.logger.Error("failed to read job document", "key", ref.Key(doc), "error", err)
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s document for %s: %w", doc, ref.BlueprintID, err)
	}
	return nil
}

func (r *recordStore) PutMetadata(ctx context.Context, ref JobRef, m *entity.Metadata) error {
	return r.put(ctx, ref, DocMetadata, m)
}

func (r *recordStore) GetMetadata(ctx context.Context, ref JobRef) (*entity.Metadata, error) {
	var m entity.Metadata
	if err := r.get(ctx, ref, DocMetadata, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *recordStore) PutStatus(ctx context.Context, ref JobRef, s *entity.Status) error {
	return r.put(ctx, ref, DocStatus, s)
}

func (r *recordStore) GetStatus(ctx context.Context, ref JobRef) (*entity.Status, error) {
	var s entity.Status
	if err := r.get(ctx, ref, DocStatus, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *recordStore) PutResults(ctx context.Context, ref JobRef, res *entity.Results) error {
	return r.put(ctx, ref, DocResults, res)
}

func (r *recordStore) GetResults(ctx context.Context, ref JobRef) (*entity.Results, error) {
	var res entity.Results
	if err := r.get(ctx, ref, DocResults, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *recordStore) SourceExists(ctx context.Context, m *entity.Metadata) (bool, error) {
	ok, err := r.store.Exists(ctx, m.SourceKey)
	if err != nil {
		r.logger.Error("failed to check source artifact", "key", m.SourceKey, "error", err)
		return false, err
	}
	return ok, nil
}

// SourceURI renders the storage URI of the uploaded artifact, in whatever
// scheme the backing store speaks.
func (r *recordStore) SourceURI(m *entity.Metadata) string {
	return r.store.URI(m.SourceKey)
}
