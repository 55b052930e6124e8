package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/kiranshivaraju/termscope/internal/api/middleware"
	"github.com/kiranshivaraju/termscope/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
// RateLimit is optional; a nil handler answers 501.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	StartUploadHandler    http.HandlerFunc
	UploadProgressHandler http.HandlerFunc

	StartTopicsHandler  http.HandlerFunc
	TopicsStatusHandler http.HandlerFunc
	CancelTopicsHandler http.HandlerFunc

	SetTrendsHandler     http.HandlerFunc
	GetTrendsHandler     http.HandlerFunc
	RefreshTrendsHandler http.HandlerFunc

	ListDocuments   http.HandlerFunc
	GetDocument     http.HandlerFunc
	PreviewDocument http.HandlerFunc
	UpdateDocument  http.HandlerFunc
	DeleteDocument  http.HandlerFunc

	UploadHistory http.HandlerFunc
	TopicHistory  http.HandlerFunc
	LatestTopics  http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Post("/api/v1/uploads", orNotImplemented(deps.StartUploadHandler))
		r.Get("/api/v1/uploads", orNotImplemented(deps.UploadProgressHandler))

		r.Post("/api/v1/topics", orNotImplemented(deps.StartTopicsHandler))
		r.Get("/api/v1/topics", orNotImplemented(deps.TopicsStatusHandler))
		r.Delete("/api/v1/topics", orNotImplemented(deps.CancelTopicsHandler))

		r.Put("/api/v1/trends", orNotImplemented(deps.SetTrendsHandler))
		r.Get("/api/v1/trends", orNotImplemented(deps.GetTrendsHandler))
		r.Post("/api/v1/trends/refresh", orNotImplemented(deps.RefreshTrendsHandler))

		r.Route("/api/v1/documents", func(r chi.Router) {
			r.Get("/", orNotImplemented(deps.ListDocuments))
			r.Get("/{id}", orNotImplemented(deps.GetDocument))
			r.Get("/{id}/preview", orNotImplemented(deps.PreviewDocument))
			r.Put("/{id}", orNotImplemented(deps.UpdateDocument))
			r.Delete("/{id}", orNotImplemented(deps.DeleteDocument))
		})

		r.Get("/api/v1/history/uploads", orNotImplemented(deps.UploadHistory))
		r.Get("/api/v1/history/topics", orNotImplemented(deps.TopicHistory))
		r.Get("/api/v1/history/topics/latest", orNotImplemented(deps.LatestTopics))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not available", nil)
	}
}
