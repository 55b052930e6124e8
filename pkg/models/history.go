package models

import (
	"time"

	"github.com/google/uuid"
)

// BatchRecord is the persisted outcome of one upload batch.
type BatchRecord struct {
	ID         uuid.UUID    `db:"id"          json:"id"`
	Total      int          `db:"total"       json:"total"`
	Completed  int          `db:"completed"   json:"completed"`
	Status     UploadStatus `db:"status"      json:"status"`
	Error      *string      `db:"error"       json:"error,omitempty"`
	StartedAt  time.Time    `db:"started_at"  json:"started_at"`
	FinishedAt time.Time    `db:"finished_at" json:"finished_at"`
}

// TopicRun is the persisted outcome of one topic generation run that
// reached done or cancelled.
type TopicRun struct {
	ID         uuid.UUID `db:"id"          json:"id"`
	Phase      JobPhase  `db:"phase"       json:"phase"`
	Result     []Topic   `db:"result"      json:"result,omitempty"`
	StartedAt  time.Time `db:"started_at"  json:"started_at"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`
}
