package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/kiranshivaraju/termscope/internal/api/response"
	"github.com/kiranshivaraju/termscope/internal/ingest"
	"github.com/kiranshivaraju/termscope/pkg/models"
)

const maxUploadMemory = 32 << 20

// Uploads defines the ingestor operations the upload handlers depend on.
type Uploads interface {
	Start(files []ingest.File) error
	Progress() models.UploadProgress
}

// NewStartUploadHandler returns an http.HandlerFunc for POST /api/v1/uploads.
// The request is multipart with one or more "files" parts; the batch runs in
// the background and the response carries its first snapshot.
func NewStartUploadHandler(u Uploads) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Expected a multipart form", nil)
			return
		}
		defer r.MultipartForm.RemoveAll()

		files, err := formFiles(r.MultipartForm.File["files"])
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		if err := u.Start(files); err != nil {
			switch {
			case errors.Is(err, ingest.ErrEmptyBatch):
				response.Error(w, http.StatusBadRequest, "EMPTY_BATCH", "At least one file is required", nil)
			case errors.Is(err, ingest.ErrUploadInProgress):
				response.Error(w, http.StatusConflict, "UPLOAD_IN_PROGRESS",
					"An upload batch is already running", u.Progress())
			case errors.Is(err, ingest.ErrClosed):
				writeClosed(w)
			default:
				writeBackendError(w, err)
			}
			return
		}

		response.Accepted(w, u.Progress())
	}
}

// NewUploadProgressHandler returns an http.HandlerFunc for GET /api/v1/uploads.
func NewUploadProgressHandler(u Uploads) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, u.Progress())
	}
}

// formFiles buffers the uploaded parts so the batch can outlive the request.
func formFiles(headers []*multipart.FileHeader) ([]ingest.File, error) {
	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", fh.Filename, err)
		}
		files = append(files, ingest.BytesFile(fh.Filename, data))
	}
	return files, nil
}
