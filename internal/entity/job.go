package entity

import (
	"time"

	"github.com/innergy/blueprint-detection/constants"
)

// Metadata describes an uploaded blueprint. Written once at intake, never
// rewritten by the pipeline.
type Metadata struct {
	BlueprintID string    `json:"blueprintId"`
	SessionID   string    `json:"sessionId"`
	FileName    string    `json:"fileName"`
	FileSize    int64     `json:"fileSize"`
	Format      string    `json:"format"`
	SourceKey   string    `json:"sourceKey"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// Status is the mutable pipeline-position document. Every stage transition
// overwrites it wholesale; it is never merged or patched.
type Status struct {
	BlueprintID            string             `json:"blueprintId"`
	Status                 constants.JobState `json:"status"`
	Stage                  constants.Stage    `json:"stage"`
	Progress               int                `json:"progress"`
	EstimatedTimeRemaining int                `json:"estimatedTimeRemaining"`
	Message                string             `json:"message"`
	UpdatedAt              time.Time          `json:"updatedAt,omitzero"`
}

// NewStatus builds the status document for a stage. An empty message selects
// the stage's default; failed stages should always pass a diagnostic.
func NewStatus(blueprintID string, stage constants.Stage, message string) *Status {
	if message == "" {
		message = stage.Message()
	}
	return &Status{
		BlueprintID:            blueprintID,
		Status:                 stage.State(),
		Stage:                  stage,
		Progress:               stage.Progress(),
		EstimatedTimeRemaining: stage.ETA(),
		Message:                message,
		UpdatedAt:              time.Now().UTC(),
	}
}
