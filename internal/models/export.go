package models

import (
	"time"

	"github.com/google/uuid"
)

// Template export lifecycle.
const (
	ExportStatusPending    = "pending"
	ExportStatusProcessing = "processing"
	ExportStatusCompleted  = "completed"
	ExportStatusFailed     = "failed"
)

// TemplateExport is a JSON snapshot of a survey template stored in S3.
type TemplateExport struct {
	ID           uuid.UUID `json:"id"`
	SurveyID     uuid.UUID `json:"survey_id"`
	Status       string    `json:"status"`
	S3Key        string    `json:"s3_key,omitempty"`
	FileSize     int64     `json:"file_size"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
