package models

import "github.com/google/uuid"

// UploadStatus is the transient outcome of an upload batch.
// The zero value means no status is being shown.
type UploadStatus string

const (
	UploadStatusNone      UploadStatus = ""
	UploadStatusSucceeded UploadStatus = "succeeded"
	UploadStatusFailed    UploadStatus = "failed"
)

// UploadProgress is a point-in-time snapshot of the ingestor.
// Completed counts documents created so far in the active (or last) batch.
type UploadProgress struct {
	BatchID   uuid.UUID    `json:"batch_id"`
	Completed int          `json:"completed"`
	Total     int          `json:"total"`
	Active    bool         `json:"active"`
	Status    UploadStatus `json:"status,omitempty"`
	Error     string       `json:"error,omitempty"`
}
