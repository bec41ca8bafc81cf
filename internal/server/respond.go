package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/innergy/blueprint-detection/internal/async"
	"github.com/innergy/blueprint-detection/internal/common"
	"github.com/innergy/blueprint-detection/internal/detector"
	"github.com/innergy/blueprint-detection/internal/pipeline"
)

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondErrorMsg(w http.ResponseWriter, code int, msg string) {
	respondJSON(w, code, map[string]string{"error": msg})
}

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}

// respondError maps a service error onto the HTTP contract. notFound is the
// route's fixed client-facing message for lookup misses; everything the
// client matches on is a stable string, diagnostics stay in the logs.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var appErr *common.AppError
	switch {
	case errors.As(err, &appErr):
		code := http.StatusInternalServerError
		if errors.Is(err, common.ErrValidation) || errors.Is(err, common.ErrInvalidInput) {
			code = http.StatusBadRequest
		}
		respondErrorMsg(w, code, appErr.Message)
	case isNotFound(err):
		respondErrorMsg(w, http.StatusNotFound, notFound)
	case errors.Is(err, detector.ErrTerminal), errors.Is(err, detector.ErrTransient):
		respondErrorMsg(w, http.StatusBadGateway, pipeline.InvokeFailureMessage(err))
	case errors.Is(err, async.ErrQueueFull):
		respondErrorMsg(w, http.StatusServiceUnavailable, "Detection queue is full, please retry later")
	case errors.Is(err, async.ErrQueueClosed):
		respondErrorMsg(w, http.StatusServiceUnavailable, "Service is shutting down")
	default:
		s.Logger.Error("http.internal_error", "method", r.Method, "path", r.URL.Path, "error", err)
		respondErrorMsg(w, http.StatusInternalServerError, "Internal server error")
	}
}
