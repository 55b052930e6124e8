package topics

import (
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/termscope/pkg/models"
)

// State is the client-side view of the topic job. Every transition method
// returns a new State; events that do not apply to the current phase return
// the receiver unchanged.
type State struct {
	RunID      uuid.UUID
	Phase      models.JobPhase
	Progress   float64
	Result     []models.Topic
	LastError  string
	StartedAt  time.Time
	FinishedAt time.Time
}

// started begins a fresh run. It applies from any phase.
func (s State) started(id uuid.UUID, at time.Time) State {
	return State{
		RunID:     id,
		Phase:     models.JobPhaseRunning,
		StartedAt: at,
	}
}

// startFailed records a rejected start. The job is left idle.
func (s State) startFailed(err error) State {
	return State{
		Phase:     models.JobPhaseIdle,
		LastError: err.Error(),
	}
}

// progressed records a running poll. Progress never decreases and stays in [0, 1].
func (s State) progressed(p float64) State {
	if s.Phase != models.JobPhaseRunning {
		return s
	}
	p = clamp(p)
	if p > s.Progress {
		s.Progress = p
	}
	return s
}

func (s State) completed(result []models.Topic, at time.Time) State {
	if s.Phase != models.JobPhaseRunning {
		return s
	}
	if result == nil {
		result = []models.Topic{}
	}
	s.Phase = models.JobPhaseDone
	s.Progress = 1
	s.Result = result
	s.FinishedAt = at
	return s
}

func (s State) cancelConfirmed(at time.Time) State {
	if s.Phase != models.JobPhaseRunning {
		return s
	}
	s.Phase = models.JobPhaseCancelled
	s.Progress = 0
	s.Result = nil
	s.FinishedAt = at
	return s
}

// withError annotates the state without changing phase.
func (s State) withError(err error) State {
	if err == nil {
		s.LastError = ""
	} else {
		s.LastError = err.Error()
	}
	return s
}

// Snapshot converts the state to its presentation form.
func (s State) Snapshot() models.JobSnapshot {
	snap := models.JobSnapshot{
		RunID:     s.RunID,
		Phase:     s.Phase,
		Progress:  s.Progress,
		LastError: s.LastError,
	}
	if s.Phase == models.JobPhaseDone {
		snap.Result = append([]models.Topic(nil), s.Result...)
		if snap.Result == nil {
			snap.Result = []models.Topic{}
		}
	}
	if !s.StartedAt.IsZero() {
		t := s.StartedAt
		snap.StartedAt = &t
	}
	if !s.FinishedAt.IsZero() {
		t := s.FinishedAt
		snap.FinishedAt = &t
	}
	return snap
}

func clamp(p float64) float64 {
	switch {
	case p != p || p < 0: // NaN or negative
		return 0
	case p > 1:
		return 1
	}
	return p
}
