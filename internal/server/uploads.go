package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/innergy/blueprint-detection/constants"
)

const msgUploadTooLarge = "File size exceeds 10MB limit."

// handleUpload receives the artifact bytes for a presigned local-backend
// upload URL. The signature covers the key and expiry, so the URL authorizes
// exactly one destination for a bounded time.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if key == "" {
		respondErrorMsg(w, http.StatusBadRequest, "Missing upload key")
		return
	}

	exp, err := strconv.ParseInt(r.URL.Query().Get("exp"), 10, 64)
	if err != nil {
		respondErrorMsg(w, http.StatusBadRequest, "Invalid upload authorization")
		return
	}
	if err := s.Uploads.VerifyUpload(key, exp, r.URL.Query().Get("sig")); err != nil {
		respondErrorMsg(w, http.StatusForbidden, err.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, constants.MaxUploadBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondErrorMsg(w, http.StatusRequestEntityTooLarge, msgUploadTooLarge)
			return
		}
		respondErrorMsg(w, http.StatusBadRequest, "Failed to read upload body")
		return
	}

	if err := s.Uploads.Put(r.Context(), key, body, r.Header.Get("Content-Type")); err != nil {
		s.Logger.Error("upload.store_error", "key", key, "error", err)
		respondErrorMsg(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}

	s.Logger.Info("upload.stored", "key", key, "bytes", len(body))
	w.WriteHeader(http.StatusNoContent)
}
