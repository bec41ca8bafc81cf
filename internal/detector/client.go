package detector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/innergy/blueprint-detection/internal/entity"
)

// Request is the invocation payload understood by the inference service.
// Confidence is the caller's detection threshold, forwarded as given.
type Request struct {
	ArtifactURI string  `json:"artifactUri"`
	Confidence  float64 `json:"confidence"`
}

// Response is the decoded inference answer. Dimensions, TotalRooms and
// AvgConfidence are optional on the wire and zero-valued when absent.
type Response struct {
	Detections    []entity.Detection `json:"detections"`
	Dimensions    entity.Dimensions  `json:"dimensions"`
	TotalRooms    int                `json:"totalRooms"`
	AvgConfidence float64            `json:"avgConfidence"`
}

// Config controls the inference client.
type Config struct {
	// Endpoint is the full URL of the detection inference service.
	Endpoint string
	// Timeout bounds a single invocation attempt.
	Timeout time.Duration
}

// Client calls the blueprint detection inference service over HTTP.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

var _ Caller = (*Client)(nil)

// NewClient builds a Client, applying defaults for unset config values.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Invoke performs one invocation attempt: post the payload, check the
// status, validate and decode the body. Failures come back classified.
func (c *Client) Invoke(ctx context.Context, req Request) (*Response, error) {
	raw, status, err := postJSON(ctx, c.http, c.cfg.Endpoint, req, c.logger)
	if err != nil {
		return nil, Classify(err)
	}

	switch {
	case status == http.StatusTooManyRequests || status/100 == 5:
		return nil, asTransient(fmt.Errorf("endpoint returned status %d: %s", status, errDetail(raw, status)))
	case status/100 != 2:
		// The model rejected this input outright.
		return nil, asTerminal(errors.New(errDetail(raw, status)))
	}

	if err := ValidateResponseJSON(raw); err != nil {
		return nil, asTerminal(err)
	}
	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, asTerminal(fmt.Errorf("decode response: %w", err))
	}
	return &out, nil
}

// errDetail pulls a readable failure message out of an error response body.
func errDetail(raw []byte, status int) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		if len(s) > 300 {
			s = s[:300]
		}
		return s
	}
	return fmt.Sprintf("status %d with empty body", status)
}
