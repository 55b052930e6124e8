package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/termscope/internal/api/response"
	"github.com/kiranshivaraju/termscope/internal/backend"
)

// writeBackendError maps a failed backend call to an error response.
func writeBackendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backend.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Resource not found on the backend", nil)
	case errors.Is(err, backend.ErrInvalidArgument):
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case errors.Is(err, backend.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		response.Error(w, http.StatusGatewayTimeout, "BACKEND_TIMEOUT",
			"The document backend did not answer in time", nil)
	case errors.Is(err, backend.ErrUnreachable), errors.Is(err, backend.ErrStatus):
		response.Error(w, http.StatusBadGateway, "BACKEND_UNAVAILABLE",
			"The document backend is not available", map[string]string{"cause": err.Error()})
	default:
		slog.Error("unhandled backend error", "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}

func writeClosed(w http.ResponseWriter) {
	response.Error(w, http.StatusServiceUnavailable, "SHUTTING_DOWN", "The console is shutting down", nil)
}
