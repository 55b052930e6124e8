package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/kiranshivaraju/termscope/internal/api/response"
	"github.com/kiranshivaraju/termscope/internal/store"
	"github.com/kiranshivaraju/termscope/pkg/models"
)

const maxHistoryLimit = 100

// History defines the run-history store operations the handlers depend on.
type History interface {
	ListBatches(ctx context.Context, limit int) ([]models.BatchRecord, error)
	ListTopicRuns(ctx context.Context, limit int) ([]models.TopicRun, error)
	LatestTopicRun(ctx context.Context, phase models.JobPhase) (*models.TopicRun, error)
}

// NewListUploadHistoryHandler returns an http.HandlerFunc for GET /api/v1/history/uploads.
func NewListUploadHistoryHandler(h History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := parseLimit(w, r)
		if !ok {
			return
		}
		batches, err := h.ListBatches(r.Context(), limit)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		response.List(w, batches, response.ListMeta{Count: len(batches), Limit: limit})
	}
}

// NewListTopicHistoryHandler returns an http.HandlerFunc for GET /api/v1/history/topics.
func NewListTopicHistoryHandler(h History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := parseLimit(w, r)
		if !ok {
			return
		}
		runs, err := h.ListTopicRuns(r.Context(), limit)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		response.List(w, runs, response.ListMeta{Count: len(runs), Limit: limit})
	}
}

// NewLatestTopicsHandler returns an http.HandlerFunc for GET /api/v1/history/topics/latest,
// the most recent completed topic result.
func NewLatestTopicsHandler(h History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := h.LatestTopicRun(r.Context(), models.JobPhaseDone)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "No completed topic run recorded", nil)
				return
			}
			writeStoreError(w, err)
			return
		}
		response.JSON(w, run)
	}
}

// parseLimit reads ?limit=, defaulting to store.DefaultListLimit and
// capping at maxHistoryLimit.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return store.DefaultListLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer", nil)
		return 0, false
	}
	return min(limit, maxHistoryLimit), true
}

func writeStoreError(w http.ResponseWriter, err error) {
	slog.Error("history query failed", "error", err)
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
}
