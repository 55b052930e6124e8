package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/termscope/internal/store"
	"github.com/kiranshivaraju/termscope/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHistory struct {
	batches  []models.BatchRecord
	runs     []models.TopicRun
	gotLimit int
	err      error
}

func (s *stubHistory) ListBatches(_ context.Context, limit int) ([]models.BatchRecord, error) {
	s.gotLimit = limit
	return s.batches, s.err
}

func (s *stubHistory) ListTopicRuns(_ context.Context, limit int) ([]models.TopicRun, error) {
	s.gotLimit = limit
	return s.runs, s.err
}

func (s *stubHistory) LatestTopicRun(_ context.Context, phase models.JobPhase) (*models.TopicRun, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, r := range s.runs {
		if r.Phase == phase {
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func TestUploadHistory_Limit(t *testing.T) {
	h := &stubHistory{batches: []models.BatchRecord{{ID: uuid.New(), Total: 2, Completed: 2, Status: models.UploadStatusSucceeded}}}

	tests := []struct {
		query  string
		status int
		limit  int
	}{
		{"", http.StatusOK, store.DefaultListLimit},
		{"?limit=5", http.StatusOK, 5},
		{"?limit=5000", http.StatusOK, maxHistoryLimit},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?limit=abc", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			h.gotLimit = 0
			rec := httptest.NewRecorder()
			NewListUploadHistoryHandler(h)(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history/uploads"+tt.query, nil))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.limit, h.gotLimit)
		})
	}
}

func TestTopicHistory(t *testing.T) {
	h := &stubHistory{runs: []models.TopicRun{{ID: uuid.New(), Phase: models.JobPhaseCancelled, FinishedAt: time.Now()}}}
	rec := httptest.NewRecorder()
	NewListTopicHistoryHandler(h)(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history/topics?limit=3", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"phase":"cancelled"`)
	assert.Contains(t, rec.Body.String(), `"limit":3`)
}

func TestTopicHistory_StoreError(t *testing.T) {
	h := &stubHistory{err: errors.New("connection refused")}
	rec := httptest.NewRecorder()
	NewListTopicHistoryHandler(h)(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history/topics", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLatestTopics(t *testing.T) {
	done := models.TopicRun{ID: uuid.New(), Phase: models.JobPhaseDone, Result: []models.Topic{{"a"}}}
	h := &stubHistory{runs: []models.TopicRun{done}}
	rec := httptest.NewRecorder()
	NewLatestTopicsHandler(h)(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history/topics/latest", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.TopicRun
	decodeData(t, rec, &got)
	assert.Equal(t, done.ID, got.ID)
	assert.Equal(t, []models.Topic{{"a"}}, got.Result)
}

func TestLatestTopics_NoneRecorded(t *testing.T) {
	rec := httptest.NewRecorder()
	NewLatestTopicsHandler(&stubHistory{})(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history/topics/latest", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
}
