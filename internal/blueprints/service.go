// Package blueprints answers job queries by id alone: namespace resolution,
// status, and results.
package blueprints

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/innergy/blueprint-detection/constants"
	"github.com/innergy/blueprint-detection/internal/common"
	"github.com/innergy/blueprint-detection/internal/entity"
	"github.com/innergy/blueprint-detection/internal/repository"
)

// Service handles job query business logic.
type Service struct {
	resolver repository.Resolver
	records  repository.RecordStore
	logger   *slog.Logger
}

func NewService(resolver repository.Resolver, records repository.RecordStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		resolver: resolver,
		records:  records,
		logger:   logger,
	}
}

// Resolve finds the job's storage namespace from its id alone.
func (s *Service) Resolve(ctx context.Context, blueprintID string) (repository.JobRef, error) {
	id := strings.TrimSpace(blueprintID)
	if id == "" {
		return repository.JobRef{}, common.NewAppError("VALIDATION_ERROR", "Missing blueprintId parameter", common.ErrValidation)
	}
	return s.resolver.Find(ctx, id)
}

// Status returns the job's status document. When no status is stored but
// results exist, the job demonstrably completed, so a terminal status is
// synthesized from that fact alone.
func (s *Service) Status(ctx context.Context, blueprintID string) (*entity.Status, error) {
	ref, err := s.Resolve(ctx, blueprintID)
	if err != nil {
		return nil, err
	}

	st, err := s.records.GetStatus(ctx, ref)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if _, rerr := s.records.GetResults(ctx, ref); rerr != nil {
		return nil, err
	}

	s.logger.Info("blueprints.status.synthesized", "blueprint_id", ref.BlueprintID)
	return synthesizedComplete(ref.BlueprintID), nil
}

// Results returns the job's results document.
func (s *Service) Results(ctx context.Context, blueprintID string) (*entity.Results, error) {
	ref, err := s.Resolve(ctx, blueprintID)
	if err != nil {
		return nil, err
	}
	return s.records.GetResults(ctx, ref)
}

// synthesizedComplete reconstructs the terminal status implied by a stored
// results document. UpdatedAt stays unset: nothing records when the run
// actually finished.
func synthesizedComplete(blueprintID string) *entity.Status {
	return &entity.Status{
		BlueprintID: blueprintID,
		Status:      constants.StageComplete.State(),
		Stage:       constants.StageComplete,
		Progress:    constants.StageComplete.Progress(),
		Message:     constants.StageComplete.Message(),
	}
}
