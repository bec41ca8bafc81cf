package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innergy/blueprint-detection/constants"
	"github.com/innergy/blueprint-detection/internal/blob"
	"github.com/innergy/blueprint-detection/internal/common"
	"github.com/innergy/blueprint-detection/internal/detector"
	"github.com/innergy/blueprint-detection/internal/entity"
	"github.com/innergy/blueprint-detection/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingStore wraps a RecordStore and logs every status stage written.
type recordingStore struct {
	repository.RecordStore
	stages []constants.Stage
}

func (r *recordingStore) PutStatus(ctx context.Context, ref repository.JobRef, s *entity.Status) error {
	r.stages = append(r.stages, s.Stage)
	return r.RecordStore.PutStatus(ctx, ref, s)
}

type fixture struct {
	store   *blob.Memory
	records *recordingStore
	ref     repository.JobRef
}

// seedJob writes the metadata document and source artifact intake would
// have produced.
func seedJob(t *testing.T) fixture {
	t.Helper()
	store := blob.NewMemory()
	records := &recordingStore{RecordStore: repository.NewRecordStore(store, discardLogger())}
	ref := repository.JobRef{SessionID: "sess-1", BlueprintID: "blueprint-7c1a22ab90ff"}

	meta := &entity.Metadata{
		BlueprintID: ref.BlueprintID,
		SessionID:   ref.SessionID,
		FileName:    "floor-plan.png",
		FileSize:    2048,
		Format:      "png",
		SourceKey:   ref.SourceKey("png"),
		UploadedAt:  time.Now().UTC(),
	}
	require.NoError(t, records.PutMetadata(context.Background(), ref, meta))
	require.NoError(t, store.Put(context.Background(), meta.SourceKey, []byte("fake png bytes"), "image/png"))
	return fixture{store: store, records: records, ref: ref}
}

func newPipeline(records repository.RecordStore, endpoint string) *Pipeline {
	client := detector.NewClient(detector.Config{Endpoint: endpoint}, discardLogger())
	inv := detector.NewInvoker(client, detector.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}, discardLogger())
	return NewPipeline(records, inv, "1.0.0", discardLogger())
}

func TestRunHappyPath(t *testing.T) {
	fx := seedJob(t)

	var gotReq detector.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{
			"detections": [
				{"class": "wall", "confidence": 0.9, "boundingBox": {"x": 0, "y": 0, "width": 120, "height": 8}},
				{"class": "wall", "confidence": 0.8, "boundingBox": {"x": 0, "y": 90, "width": 120, "height": 8}},
				{"class": "door", "confidence": 0.6, "boundingBox": {"x": 50, "y": 0, "width": 10, "height": 8}}
			],
			"dimensions": {"width": 800, "height": 600},
			"totalRooms": 2,
			"avgConfidence": 0.7666666666666667
		}`))
	}))
	defer srv.Close()

	p := newPipeline(fx.records, srv.URL)
	results, err := p.Run(context.Background(), fx.ref.SessionID, fx.ref.BlueprintID, 0.83)
	require.NoError(t, err)

	// Request carries the artifact URI and the caller's threshold untouched.
	assert.Equal(t, "mem://"+fx.ref.SourceKey("png"), gotReq.ArtifactURI)
	assert.InDelta(t, 0.83, gotReq.Confidence, 1e-9)

	// Stage transitions in order, no skipping.
	assert.Equal(t, []constants.Stage{
		constants.StagePreprocessing,
		constants.StageInference,
		constants.StagePostprocess,
		constants.StageComplete,
	}, fx.records.stages)

	assert.Equal(t, 3, results.Statistics.TotalDetections)
	assert.Equal(t, map[string]int{"wall": 2, "door": 1}, results.Statistics.ElementCounts)
	assert.InDelta(t, 0.77, results.Statistics.AvgConfidence, 1e-9)
	assert.Equal(t, 2, results.Statistics.TotalRooms)
	assert.Equal(t, []string{"upload", "inference", "postprocess"}, results.Statistics.ProcessingSteps)
	assert.Equal(t, 800, results.Dimensions.Width)
	assert.Equal(t, "1.0.0", results.ModelVersion)

	// Both terminal documents are readable afterwards.
	stored, err := fx.records.GetResults(context.Background(), fx.ref)
	require.NoError(t, err)
	assert.Equal(t, results.Statistics, stored.Statistics)

	status, err := fx.records.GetStatus(context.Background(), fx.ref)
	require.NoError(t, err)
	assert.Equal(t, constants.StateCompleted, status.Status)
	assert.Equal(t, constants.StageComplete, status.Stage)
	assert.Equal(t, 100, status.Progress)
	assert.Equal(t, "Processing completed successfully", status.Message)
}

func TestRunMissingMetadataMutatesNothing(t *testing.T) {
	store := blob.NewMemory()
	records := &recordingStore{RecordStore: repository.NewRecordStore(store, discardLogger())}

	p := newPipeline(records, "http://unused.invalid")
	_, err := p.Run(context.Background(), "sess-1", "blueprint-unknown00000", 0.5)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Empty(t, records.stages)
	assert.Equal(t, 0, store.Len())
}

func TestRunMissingArtifactMutatesNothing(t *testing.T) {
	fx := seedJob(t)
	require.NoError(t, fx.store.Delete(context.Background(), fx.ref.SourceKey("png")))
	before := fx.store.Len()

	p := newPipeline(fx.records, "http://unused.invalid")
	_, err := p.Run(context.Background(), fx.ref.SessionID, fx.ref.BlueprintID, 0.5)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Empty(t, fx.records.stages)
	assert.Equal(t, before, fx.store.Len())

	// The job is still runnable later: no failed status was recorded.
	_, err = fx.records.GetStatus(context.Background(), fx.ref)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRunTerminalModelFailure(t *testing.T) {
	fx := seedJob(t)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "unable to parse blueprint image"}`))
	}))
	defer srv.Close()

	p := newPipeline(fx.records, srv.URL)
	_, err := p.Run(context.Background(), fx.ref.SessionID, fx.ref.BlueprintID, 0.5)
	require.Error(t, err)
	assert.ErrorIs(t, err, detector.ErrTerminal)
	assert.Equal(t, int32(1), hits.Load(), "terminal failures must not be retried")

	status, err := fx.records.GetStatus(context.Background(), fx.ref)
	require.NoError(t, err)
	assert.Equal(t, constants.StateFailed, status.Status)
	assert.Equal(t, constants.StageFailed, status.Stage)
	assert.Equal(t, 0, status.Progress)
	assert.Equal(t, "Model inference failed: unable to parse blueprint image", status.Message)

	// No results document on any failure path.
	_, err = fx.records.GetResults(context.Background(), fx.ref)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRunRetryExhaustion(t *testing.T) {
	fx := seedJob(t)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := newPipeline(fx.records, srv.URL)
	_, err := p.Run(context.Background(), fx.ref.SessionID, fx.ref.BlueprintID, 0.5)
	require.Error(t, err)
	assert.Equal(t, int32(3), hits.Load())

	status, gerr := fx.records.GetStatus(context.Background(), fx.ref)
	require.NoError(t, gerr)
	assert.Equal(t, constants.StageFailed, status.Stage)
	assert.Contains(t, status.Message, "Failed to invoke detection endpoint:")
	assert.Contains(t, status.Message, "after 3 attempts")
}

func TestRunTransientThenRecovers(t *testing.T) {
	fx := seedJob(t)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"detections": []}`))
	}))
	defer srv.Close()

	p := newPipeline(fx.records, srv.URL)
	results, err := p.Run(context.Background(), fx.ref.SessionID, fx.ref.BlueprintID, 0.5)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, 0, results.Statistics.TotalDetections)

	status, err := fx.records.GetStatus(context.Background(), fx.ref)
	require.NoError(t, err)
	assert.Equal(t, constants.StageComplete, status.Stage)
}
