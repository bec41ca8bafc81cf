// Package server is the HTTP surface of the detection service: routing,
// middleware, and the JSON contract the front-end consumes.
package server

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/innergy/blueprint-detection/internal/async"
	"github.com/innergy/blueprint-detection/internal/blob"
	"github.com/innergy/blueprint-detection/internal/blueprints"
	"github.com/innergy/blueprint-detection/internal/export"
	"github.com/innergy/blueprint-detection/internal/intake"
	"github.com/innergy/blueprint-detection/internal/repository"
)

// Server carries the wired services behind the HTTP handlers.
type Server struct {
	Intake     *intake.Service
	Blueprints *blueprints.Service
	Exports    *export.Service
	Runner     async.Runner
	Queue      async.Queue
	Store      blob.Store
	Index      repository.Index

	// Uploads enables the dev-mode direct upload endpoint; nil (the s3
	// backend) leaves it unmounted and clients PUT straight to storage.
	Uploads *blob.LocalFS

	BaseURL string
	Logger  *slog.Logger
}

func (s *Server) Router() http.Handler {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.Logger))
	r.Use(cors)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/blueprints", s.handleCreateBlueprint)
		r.Post("/blueprints/{id}/detect", s.handleDetect)
		r.Get("/blueprints/{id}/status", s.handleStatus)
		r.Get("/blueprints/{id}/results", s.handleResults)
		r.Get("/blueprints/{id}/export", s.handleExport)
		if s.Uploads != nil {
			r.Put("/uploads/*", s.handleUpload)
		}
	})

	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http.request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// handleHealthz probes the blob store and the lookup index. A missing probe
// key is the healthy outcome; only transport failures degrade the check.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := map[string]string{"store": "ok", "index": "ok"}
	healthy := true

	if _, err := s.Store.Exists(ctx, "healthcheck/probe"); err != nil {
		checks["store"] = err.Error()
		healthy = false
	}
	if s.Index != nil {
		if _, err := s.Index.Lookup(ctx, "healthcheck"); err != nil && !isNotFound(err) {
			checks["index"] = err.Error()
			healthy = false
		}
	} else {
		checks["index"] = "disabled"
	}

	if !healthy {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": checks})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "checks": checks})
}
