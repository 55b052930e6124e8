package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/termscope/internal/api/response"
	"github.com/kiranshivaraju/termscope/pkg/models"
)

// Documents defines the document service operations the handlers depend on.
type Documents interface {
	List(ctx context.Context) ([]models.Document, error)
	Content(ctx context.Context, id string) (string, error)
	Preview(ctx context.Context, id string) (models.DocumentPreview, error)
	Update(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
}

// NewListDocumentsHandler returns an http.HandlerFunc for GET /api/v1/documents.
func NewListDocumentsHandler(docs Documents) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := docs.List(r.Context())
		if err != nil {
			writeBackendError(w, err)
			return
		}
		response.List(w, list, response.ListMeta{Count: len(list)})
	}
}

// NewGetDocumentHandler returns an http.HandlerFunc for GET /api/v1/documents/{id}.
func NewGetDocumentHandler(docs Documents) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		content, err := docs.Content(r.Context(), id)
		if err != nil {
			writeBackendError(w, err)
			return
		}
		response.JSON(w, map[string]string{"id": id, "content": content})
	}
}

// NewPreviewDocumentHandler returns an http.HandlerFunc for GET /api/v1/documents/{id}/preview.
func NewPreviewDocumentHandler(docs Documents) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := docs.Preview(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeBackendError(w, err)
			return
		}
		response.JSON(w, p)
	}
}

// NewUpdateDocumentHandler returns an http.HandlerFunc for PUT /api/v1/documents/{id}.
// onChange, if set, runs after a successful update.
func NewUpdateDocumentHandler(docs Documents, onChange func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Content *string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Content == nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "content is required", nil)
			return
		}

		id := chi.URLParam(r, "id")
		if err := docs.Update(r.Context(), id, *req.Content); err != nil {
			writeBackendError(w, err)
			return
		}
		if onChange != nil {
			onChange()
		}
		response.JSON(w, map[string]string{"id": id})
	}
}

// NewDeleteDocumentHandler returns an http.HandlerFunc for DELETE /api/v1/documents/{id}.
// onChange, if set, runs after a successful delete.
func NewDeleteDocumentHandler(docs Documents, onChange func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := docs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeBackendError(w, err)
			return
		}
		if onChange != nil {
			onChange()
		}
		response.NoContent(w)
	}
}
