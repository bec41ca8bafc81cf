package detector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(Config{Endpoint: url}, discardLogger())
}

func TestClientInvokeDecodesResponse(t *testing.T) {
	var gotBody Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"detections": [
				{"roomId": 1, "class": "wall", "confidence": 0.98, "boundingBox": {"x": 0, "y": 0, "width": 100, "height": 10}, "area": 1000},
				{"roomId": 2, "class": "door", "confidence": 0.81, "boundingBox": {"x": 40, "y": 0, "width": 8, "height": 10}}
			],
			"dimensions": {"width": 1024, "height": 768},
			"totalRooms": 3,
			"avgConfidence": 0.895
		}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).Invoke(context.Background(), Request{ArtifactURI: "s3://bucket/uploads/s/b/original.png", Confidence: 0.5})
	require.NoError(t, err)

	assert.Equal(t, "s3://bucket/uploads/s/b/original.png", gotBody.ArtifactURI)
	assert.InDelta(t, 0.5, gotBody.Confidence, 1e-9)

	require.Len(t, resp.Detections, 2)
	assert.Equal(t, "wall", resp.Detections[0].Class)
	assert.InDelta(t, 0.98, resp.Detections[0].Confidence, 1e-9)
	assert.InDelta(t, 100.0, resp.Detections[0].BoundingBox.Width, 1e-9)
	assert.Equal(t, 1024, resp.Dimensions.Width)
	assert.Equal(t, 3, resp.TotalRooms)
	assert.InDelta(t, 0.895, resp.AvgConfidence, 1e-9)
}

func TestClientModelErrorIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "unable to parse blueprint image"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Invoke(context.Background(), Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTerminal)
	assert.Equal(t, "unable to parse blueprint image", err.Error())
}

func TestClientServerErrorsAreTransient(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := newTestClient(srv.URL).Invoke(context.Background(), Request{})
		srv.Close()
		require.Error(t, err, "status %d", status)
		assert.ErrorIs(t, err, ErrTransient, "status %d", status)
	}
}

func TestClientSchemaViolationIsTerminal(t *testing.T) {
	// Detection without class or bounding box must never reach the pipeline.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"detections": [{"confidence": 0.7}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Invoke(context.Background(), Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTerminal)
	assert.Contains(t, err.Error(), "does not match schema")
}

func TestClientMalformedBodyIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Invoke(context.Background(), Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTerminal)
}

func TestValidateResponseJSONAcceptsMinimalResponse(t *testing.T) {
	assert.NoError(t, ValidateResponseJSON([]byte(`{"detections": []}`)))
}

func TestValidateResponseJSONRequiresDetections(t *testing.T) {
	err := ValidateResponseJSON([]byte(`{"totalRooms": 2}`))
	require.Error(t, err)
}
