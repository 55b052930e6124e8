package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kiranshivaraju/termscope/internal/backend"
	"github.com/kiranshivaraju/termscope/internal/topics"
	"github.com/kiranshivaraju/termscope/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTopicJob struct {
	snap      models.JobSnapshot
	startErr  error
	cancelErr error
}

func (s *stubTopicJob) Start(context.Context) (models.JobSnapshot, error) {
	if s.startErr != nil {
		return s.snap, s.startErr
	}
	s.snap = models.JobSnapshot{Phase: models.JobPhaseRunning}
	return s.snap, nil
}

func (s *stubTopicJob) Cancel(context.Context) (models.JobSnapshot, error) {
	if s.cancelErr != nil {
		return s.snap, s.cancelErr
	}
	s.snap = models.JobSnapshot{Phase: models.JobPhaseCancelled}
	return s.snap, nil
}

func (s *stubTopicJob) Snapshot() models.JobSnapshot { return s.snap }

func TestStartTopics_Accepted(t *testing.T) {
	job := &stubTopicJob{}
	rec := httptest.NewRecorder()
	NewStartTopicsHandler(job)(rec, httptest.NewRequest(http.MethodPost, "/api/v1/topics", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var snap models.JobSnapshot
	decodeData(t, rec, &snap)
	assert.Equal(t, models.JobPhaseRunning, snap.Phase)
}

func TestStartTopics_BackendDown(t *testing.T) {
	job := &stubTopicJob{startErr: fmt.Errorf("starting topic job: %w", backend.ErrUnreachable)}
	rec := httptest.NewRecorder()
	NewStartTopicsHandler(job)(rec, httptest.NewRequest(http.MethodPost, "/api/v1/topics", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "BACKEND_UNAVAILABLE", errorCode(t, rec))
}

func TestTopicsStatus_Done(t *testing.T) {
	job := &stubTopicJob{snap: models.JobSnapshot{
		Phase:    models.JobPhaseDone,
		Progress: 1,
		Result:   []models.Topic{{"a", "b"}, {"c"}},
	}}
	rec := httptest.NewRecorder()
	NewTopicsStatusHandler(job)(rec, httptest.NewRequest(http.MethodGet, "/api/v1/topics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"phase":"done"`)

	var snap models.JobSnapshot
	decodeData(t, rec, &snap)
	assert.Equal(t, []models.Topic{{"a", "b"}, {"c"}}, snap.Result)
}

func TestCancelTopics(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"confirmed", nil, http.StatusOK, ""},
		{"not running", topics.ErrNotRunning, http.StatusConflict, "JOB_NOT_RUNNING"},
		{"not confirmed", fmt.Errorf("%w: backend reported %q", topics.ErrCancelNotConfirmed, "running"),
			http.StatusConflict, "CANCEL_NOT_CONFIRMED"},
		{"timeout", fmt.Errorf("cancelling topic job: %w", backend.ErrTimeout),
			http.StatusGatewayTimeout, "BACKEND_TIMEOUT"},
		{"closed", topics.ErrClosed, http.StatusServiceUnavailable, "SHUTTING_DOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &stubTopicJob{snap: models.JobSnapshot{Phase: models.JobPhaseRunning}, cancelErr: tt.err}
			rec := httptest.NewRecorder()
			NewCancelTopicsHandler(job)(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/topics", nil))

			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, rec))
				return
			}
			assert.Contains(t, rec.Body.String(), `"phase":"cancelled"`)
		})
	}
}
