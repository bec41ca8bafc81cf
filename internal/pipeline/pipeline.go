// Package pipeline coordinates one blueprint detection job: stage
// transitions, inference invocation, statistics, and results persistence.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/innergy/blueprint-detection/constants"
	"github.com/innergy/blueprint-detection/internal/common"
	"github.com/innergy/blueprint-detection/internal/detector"
	"github.com/innergy/blueprint-detection/internal/entity"
	"github.com/innergy/blueprint-detection/internal/repository"
)

// Invoker is the retrying inference invocation.
type Invoker interface {
	Invoke(ctx context.Context, req detector.Request) (*detector.Response, error)
}

// Pipeline drives one job from uploaded artifact to persisted results.
// It is the sole writer of status and results documents.
type Pipeline struct {
	Records      repository.RecordStore
	Invoker      Invoker
	ModelVersion string
	Logger       *slog.Logger
}

func NewPipeline(records repository.RecordStore, invoker Invoker, modelVersion string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Records: records, Invoker: invoker, ModelVersion: modelVersion, Logger: logger}
}

// Run executes the pipeline for one job. The confidence threshold is
// forwarded to the model as given. Missing metadata or a missing source
// artifact return not-found without touching the job's documents; once the
// first transition is written, Run never exits with the job in a
// processing stage.
func (p *Pipeline) Run(ctx context.Context, sessionID, blueprintID string, confidence float64) (*entity.Results, error) {
	ref := repository.JobRef{SessionID: sessionID, BlueprintID: blueprintID}

	meta, err := p.Records.GetMetadata(ctx, ref)
	if err != nil {
		return nil, err
	}
	ok, err := p.Records.SourceExists(ctx, meta)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.NotFoundf("source artifact for blueprint %s", blueprintID)
	}

	start := time.Now()
	cur := constants.StageUpload

	if cur, err = p.advance(ctx, ref, cur, constants.StagePreprocessing); err != nil {
		p.fail(ctx, ref, err.Error())
		return nil, err
	}

	req := detector.Request{
		ArtifactURI: p.Records.SourceURI(meta),
		Confidence:  confidence,
	}
	p.Logger.Info("pipeline.invoke",
		"blueprint_id", blueprintID,
		"artifact_uri", req.ArtifactURI,
		"confidence", req.Confidence,
	)

	if cur, err = p.advance(ctx, ref, cur, constants.StageInference); err != nil {
		p.fail(ctx, ref, err.Error())
		return nil, err
	}

	resp, err := p.Invoker.Invoke(ctx, req)
	if err != nil {
		p.fail(ctx, ref, InvokeFailureMessage(err))
		return nil, err
	}

	if cur, err = p.advance(ctx, ref, cur, constants.StagePostprocess); err != nil {
		p.fail(ctx, ref, err.Error())
		return nil, err
	}

	results := BuildResults(blueprintID, p.ModelVersion, resp, time.Since(start))
	if err := p.Records.PutResults(ctx, ref, results); err != nil {
		p.fail(ctx, ref, err.Error())
		return nil, err
	}

	if _, err = p.advance(ctx, ref, cur, constants.StageComplete); err != nil {
		p.fail(ctx, ref, err.Error())
		return nil, err
	}

	p.Logger.Info("pipeline.complete",
		"blueprint_id", blueprintID,
		"detections", results.Statistics.TotalDetections,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return results, nil
}

// advance validates and writes the next stage transition, returning the new
// current stage.
func (p *Pipeline) advance(ctx context.Context, ref repository.JobRef, from, to constants.Stage) (constants.Stage, error) {
	if !constants.CanTransition(from, to) {
		return from, common.Internalf("illegal stage transition %s -> %s", from, to)
	}
	st := entity.NewStatus(ref.BlueprintID, to, "")
	if err := p.Records.PutStatus(ctx, ref, st); err != nil {
		return from, err
	}
	p.Logger.Info("pipeline.stage.advance", "blueprint_id", ref.BlueprintID, "stage", to, "progress", st.Progress)
	return to, nil
}

// fail writes the terminal failed status. Best effort, detached from the
// caller's cancellation so a timed-out run still records its outcome.
func (p *Pipeline) fail(ctx context.Context, ref repository.JobRef, message string) {
	st := entity.NewStatus(ref.BlueprintID, constants.StageFailed, message)
	if err := p.Records.PutStatus(context.WithoutCancel(ctx), ref, st); err != nil {
		p.Logger.Error("pipeline.fail_write_error", "blueprint_id", ref.BlueprintID, "error", err)
	}
}

// InvokeFailureMessage renders the user-facing diagnostic for an
// invocation failure. Terminal model rejections and transport-level
// failures read differently to the client; the status document and the
// HTTP response carry the same text.
func InvokeFailureMessage(err error) string {
	if errors.Is(err, detector.ErrTerminal) {
		return "Model inference failed: " + err.Error()
	}
	return "Failed to invoke detection endpoint: " + err.Error()
}
