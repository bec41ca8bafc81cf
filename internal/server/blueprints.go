package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/innergy/blueprint-detection/constants"
	"github.com/innergy/blueprint-detection/internal/async"
	"github.com/innergy/blueprint-detection/internal/intake"
)

// Fixed client-facing strings; the front-end matches on them.
const (
	msgInvalidBody         = "Invalid request body"
	msgMissingDetectFields = "Missing required fields: blueprintId, sessionId"
	msgMetadataNotFound    = "Blueprint metadata not found"
	msgStatusNotFound      = "Blueprint not found or processing not started"
	msgResultsNotFound     = "Results not found for this blueprint ID"
)

// decodeBody parses a JSON request body. An absent body decodes as the zero
// request so field validation reports what is missing.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) handleCreateBlueprint(w http.ResponseWriter, r *http.Request) {
	var req intake.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondErrorMsg(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	resp, err := s.Intake.Create(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err, msgMetadataNotFound)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

type detectRequest struct {
	SessionID string `json:"sessionId"`

	// Confidence distinguishes absent from an explicit zero; absent selects
	// the default threshold, any supplied value passes through unclamped.
	Confidence *float64 `json:"confidence"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req detectRequest
	if err := decodeBody(r, &req); err != nil {
		respondErrorMsg(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if id == "" || strings.TrimSpace(req.SessionID) == "" {
		respondErrorMsg(w, http.StatusBadRequest, msgMissingDetectFields)
		return
	}

	confidence := constants.DefaultConfidence
	if req.Confidence != nil {
		confidence = *req.Confidence
	}

	if r.URL.Query().Get("mode") == "async" {
		job := async.Job{
			BlueprintID: id,
			SessionID:   req.SessionID,
			Confidence:  confidence,
			SubmittedAt: time.Now().UTC(),
		}
		if err := s.Queue.Enqueue(r.Context(), job); err != nil {
			s.respondError(w, r, err, msgMetadataNotFound)
			return
		}
		respondJSON(w, http.StatusAccepted, map[string]string{
			"blueprintId": id,
			"statusUrl":   strings.TrimRight(s.BaseURL, "/") + "/v1/blueprints/" + id + "/status",
		})
		return
	}

	results, err := s.Runner.Run(r.Context(), req.SessionID, id, confidence)
	if err != nil {
		s.respondError(w, r, err, msgMetadataNotFound)
		return
	}
	respondJSON(w, http.StatusOK, results)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.Blueprints.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, msgStatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.Blueprints.Results(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, msgResultsNotFound)
		return
	}
	respondJSON(w, http.StatusOK, results)
}
