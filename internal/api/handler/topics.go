package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/kiranshivaraju/termscope/internal/api/response"
	"github.com/kiranshivaraju/termscope/internal/topics"
	"github.com/kiranshivaraju/termscope/pkg/models"
)

// TopicJob defines the controller operations the topic handlers depend on.
type TopicJob interface {
	Start(ctx context.Context) (models.JobSnapshot, error)
	Cancel(ctx context.Context) (models.JobSnapshot, error)
	Snapshot() models.JobSnapshot
}

// NewStartTopicsHandler returns an http.HandlerFunc for POST /api/v1/topics.
func NewStartTopicsHandler(job TopicJob) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := job.Start(r.Context())
		if err != nil {
			if errors.Is(err, topics.ErrClosed) {
				writeClosed(w)
				return
			}
			writeBackendError(w, err)
			return
		}
		response.Accepted(w, snap)
	}
}

// NewTopicsStatusHandler returns an http.HandlerFunc for GET /api/v1/topics.
func NewTopicsStatusHandler(job TopicJob) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, job.Snapshot())
	}
}

// NewCancelTopicsHandler returns an http.HandlerFunc for DELETE /api/v1/topics.
// An unconfirmed cancel leaves the job running and answers 409; the caller
// may retry.
func NewCancelTopicsHandler(job TopicJob) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := job.Cancel(r.Context())
		if err != nil {
			switch {
			case errors.Is(err, topics.ErrNotRunning):
				response.Error(w, http.StatusConflict, "JOB_NOT_RUNNING", "No topic job is running", snap)
			case errors.Is(err, topics.ErrCancelNotConfirmed):
				response.Error(w, http.StatusConflict, "CANCEL_NOT_CONFIRMED",
					"The backend did not confirm the cancellation", snap)
			case errors.Is(err, topics.ErrClosed):
				writeClosed(w)
			default:
				writeBackendError(w, err)
			}
			return
		}
		response.JSON(w, snap)
	}
}
