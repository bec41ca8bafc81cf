// Package intake admits new blueprint jobs: validation, identity minting,
// the upload authorization, and the job's initial documents.
package intake

import (
	"context"
	"encoding/hex"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/innergy/blueprint-detection/constants"
	"github.com/innergy/blueprint-detection/internal/blob"
	"github.com/innergy/blueprint-detection/internal/common"
	"github.com/innergy/blueprint-detection/internal/entity"
	"github.com/innergy/blueprint-detection/internal/repository"
)

// Fixed client-facing rejection strings; the front-end matches on them.
const (
	msgMissingFields = "Missing required fields: fileName, fileType, fileSize, sessionId"
	msgInvalidType   = "Invalid file type. Only PNG, JPG, and PDF are allowed."
	msgTooLarge      = "File size exceeds 10MB limit."
)

// CreateRequest is the client-declared upload intent.
type CreateRequest struct {
	FileName  string `json:"fileName"`
	FileType  string `json:"fileType"`
	FileSize  int64  `json:"fileSize"`
	SessionID string `json:"sessionId"`
}

// CreateResponse carries the job identity and the upload authorization.
type CreateResponse struct {
	BlueprintID string `json:"blueprintId"`
	UploadURL   string `json:"uploadUrl"`
	Key         string `json:"key"`
	ExpiresIn   int    `json:"expiresIn"`
}

// Service admits new jobs.
type Service struct {
	records    repository.RecordStore
	store      blob.Store
	index      repository.Index
	presignTTL time.Duration
	logger     *slog.Logger
}

func NewService(records repository.RecordStore, store blob.Store, index repository.Index, presignTTL time.Duration, logger *slog.Logger) *Service {
	if presignTTL <= 0 {
		presignTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		records:    records,
		store:      store,
		index:      index,
		presignTTL: presignTTL,
		logger:     logger,
	}
}

// Create validates the upload intent, mints the job id, presigns the upload,
// and writes the job's initial documents. Nothing is written when validation
// rejects.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	if err := validate(req); err != nil {
		s.logger.Info("intake.rejected",
			"file_name", req.FileName,
			"file_type", req.FileType,
			"file_size", req.FileSize,
			"error", err,
		)
		return nil, err
	}

	blueprintID := newBlueprintID()
	ref := repository.JobRef{SessionID: req.SessionID, BlueprintID: blueprintID}

	ext := constants.NormalizeExt(filepath.Ext(req.FileName))
	if ext == "" {
		ext = constants.ExtForContentType(req.FileType)
	}
	sourceKey := ref.SourceKey(ext)

	// Presign before any write so a signing failure leaves no orphan records.
	uploadURL, err := s.store.PresignPut(ctx, sourceKey, req.FileType, s.presignTTL)
	if err != nil {
		s.logger.Error("intake.presign_error", "key", sourceKey, "error", err)
		return nil, common.NewAppError("UPLOAD_URL_ERROR", "Failed to generate upload URL", err)
	}

	meta := &entity.Metadata{
		BlueprintID: blueprintID,
		SessionID:   req.SessionID,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		Format:      ext,
		SourceKey:   sourceKey,
		UploadedAt:  time.Now().UTC(),
	}
	if err := s.records.PutMetadata(ctx, ref, meta); err != nil {
		return nil, err
	}
	if err := s.records.PutStatus(ctx, ref, entity.NewStatus(blueprintID, constants.StageUpload, "")); err != nil {
		return nil, err
	}

	// The index write is advisory: the listing scan still finds the job.
	if err := s.index.Put(ctx, blueprintID, req.SessionID); err != nil {
		s.logger.Warn("intake.index_write_error", "blueprint_id", blueprintID, "error", err)
	}

	s.logger.Info("intake.created",
		"blueprint_id", blueprintID,
		"session_id", req.SessionID,
		"file_name", req.FileName,
		"format", ext,
		"file_size", req.FileSize,
	)
	return &CreateResponse{
		BlueprintID: blueprintID,
		UploadURL:   uploadURL,
		Key:         sourceKey,
		ExpiresIn:   int(s.presignTTL.Seconds()),
	}, nil
}

// validate applies the intake rules in order: required fields, then the
// type allow-list, then the size cap.
func validate(req CreateRequest) error {
	v := common.NewValidator().
		Field("fileName", req.FileName, common.Required).
		Field("fileType", req.FileType, common.Required).
		Field("fileSize", req.FileSize, common.Positive).
		Field("sessionId", req.SessionID, common.Required)
	if v.HasErrors() {
		return common.NewAppError("VALIDATION_ERROR", msgMissingFields, common.ErrValidation)
	}
	if !constants.ContentTypeAllowed(req.FileType) {
		return common.NewAppError("VALIDATION_ERROR", msgInvalidType, common.ErrValidation)
	}
	if req.FileSize > constants.MaxUploadBytes {
		return common.NewAppError("VALIDATION_ERROR", msgTooLarge, common.ErrValidation)
	}
	return nil
}

// newBlueprintID mints a job id: "blueprint-" plus the first 12 hex chars
// of a v4 UUID.
func newBlueprintID() string {
	u := uuid.New()
	return "blueprint-" + hex.EncodeToString(u[:])[:12]
}
