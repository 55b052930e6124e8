package handler

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/termscope/internal/api/response"
)

// Check is one dependency probed by the health endpoint.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health.
// Any failing check makes the response 503 with the per-check status.
func NewHealthHandler(checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := make(map[string]string, len(checks))
		degraded := false
		for _, c := range checks {
			if err := c.Ping(r.Context()); err != nil {
				status[c.Name] = "degraded"
				degraded = true
				continue
			}
			status[c.Name] = "ok"
		}

		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", status)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": status,
		})
	}
}
