package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobPhase is the client-side lifecycle phase of the topic generation job.
type JobPhase int

const (
	JobPhaseIdle JobPhase = iota
	JobPhaseRunning
	JobPhaseDone
	JobPhaseCancelled
)

func (p JobPhase) String() string {
	switch p {
	case JobPhaseIdle:
		return "idle"
	case JobPhaseRunning:
		return "running"
	case JobPhaseDone:
		return "done"
	case JobPhaseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (p JobPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *JobPhase) UnmarshalText(b []byte) error {
	parsed, err := ParseJobPhase(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParseJobPhase is the inverse of JobPhase.String.
func ParseJobPhase(s string) (JobPhase, error) {
	switch s {
	case "idle":
		return JobPhaseIdle, nil
	case "running":
		return JobPhaseRunning, nil
	case "done":
		return JobPhaseDone, nil
	case "cancelled":
		return JobPhaseCancelled, nil
	}
	return JobPhaseIdle, fmt.Errorf("unknown job phase %q", s)
}

// Topic is an ordered list of terms extracted by the backend.
type Topic []string

// Wire statuses reported by the backend's topic endpoint.
const (
	TopicStatusRunning   = "running"
	TopicStatusDone      = "done"
	TopicStatusCancelled = "cancelled"
)

// TopicPoll is one response of the topic job status endpoint.
// Progress is meaningful for running, Result for done.
type TopicPoll struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress,omitempty"`
	Result   []Topic `json:"result,omitempty"`
}

// JobSnapshot is what the view layer renders for the topic job.
// Result is non-nil only when Phase is JobPhaseDone.
type JobSnapshot struct {
	RunID      uuid.UUID  `json:"run_id,omitempty"`
	Phase      JobPhase   `json:"phase"`
	Progress   float64    `json:"progress"`
	Result     []Topic    `json:"result,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
