package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innergy/blueprint-detection/constants"
	"github.com/innergy/blueprint-detection/internal/blob"
)

func newUploadRouter(t *testing.T) (http.Handler, *blob.LocalFS) {
	t.Helper()
	lfs, err := blob.NewLocalFS(t.TempDir(), "", "test-signing-secret")
	require.NoError(t, err)
	srv := &Server{
		Uploads: lfs,
		Store:   lfs,
		Logger:  discardLogger(),
	}
	return srv.Router(), lfs
}

func putBody(router http.Handler, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "image/png")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestUploadRoundTrip(t *testing.T) {
	router, lfs := newUploadRouter(t)
	key := "uploads/sess-1/blueprint-aaa111bbb222/original.png"

	url, err := lfs.PresignPut(context.Background(), key, "image/png", 5*time.Minute)
	require.NoError(t, err)

	rec := putBody(router, url, []byte("png bytes"))
	require.Equal(t, http.StatusNoContent, rec.Code)

	stored, err := lfs.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, []byte("png bytes"), stored)
}

func TestUploadRejectsTamperedSignature(t *testing.T) {
	router, lfs := newUploadRouter(t)
	key := "uploads/sess-1/blueprint-aaa111bbb222/original.png"

	url, err := lfs.PresignPut(context.Background(), key, "image/png", 5*time.Minute)
	require.NoError(t, err)

	rec := putBody(router, url+"ff", []byte("png bytes"))
	require.Equal(t, http.StatusForbidden, rec.Code)

	_, err = lfs.Get(context.Background(), key)
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestUploadRejectsExpired(t *testing.T) {
	router, lfs := newUploadRouter(t)
	key := "uploads/sess-1/blueprint-aaa111bbb222/original.png"

	url, err := lfs.PresignPut(context.Background(), key, "image/png", -time.Minute)
	require.NoError(t, err)

	rec := putBody(router, url, []byte("png bytes"))
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "upload authorization expired", errBody(t, rec))
}

func TestUploadRejectsOversizedBody(t *testing.T) {
	router, lfs := newUploadRouter(t)
	key := "uploads/sess-1/blueprint-aaa111bbb222/original.png"

	url, err := lfs.PresignPut(context.Background(), key, "image/png", 5*time.Minute)
	require.NoError(t, err)

	rec := putBody(router, url, bytes.Repeat([]byte("x"), int(constants.MaxUploadBytes)+1))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "File size exceeds 10MB limit.", errBody(t, rec))
}

func TestUploadRouteUnmountedWithoutLocalBackend(t *testing.T) {
	h := newServerHarness(t) // no Uploads configured

	rec := putBody(h.router, "/v1/uploads/uploads/s/b/original.png?exp=1&sig=x", []byte("png"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
