package handler

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/termscope/internal/ingest"
	"github.com/kiranshivaraju/termscope/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUploads struct {
	mu       sync.Mutex
	err      error
	got      []ingest.File
	progress models.UploadProgress
}

func (s *stubUploads) Start(files []ingest.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.got = files
	s.progress = models.UploadProgress{BatchID: uuid.New(), Total: len(files), Active: true}
	return nil
}

func (s *stubUploads) Progress() models.UploadProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func multipartUpload(t *testing.T, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestStartUpload_Accepted(t *testing.T) {
	u := &stubUploads{}
	rec := httptest.NewRecorder()
	NewStartUploadHandler(u)(rec, multipartUpload(t, map[string]string{"a.txt": "alpha"}))

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var p models.UploadProgress
	decodeData(t, rec, &p)
	assert.Equal(t, 1, p.Total)
	assert.True(t, p.Active)

	require.Len(t, u.got, 1)
	assert.Equal(t, "a.txt", u.got[0].Name())
	rc, err := u.got[0].Open()
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "alpha", string(body))
}

func TestStartUpload_NotMultipart(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", strings.NewReader(`{}`))
	r.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	NewStartUploadHandler(&stubUploads{})(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, rec))
}

func TestStartUpload_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"empty", ingest.ErrEmptyBatch, http.StatusBadRequest, "EMPTY_BATCH"},
		{"busy", ingest.ErrUploadInProgress, http.StatusConflict, "UPLOAD_IN_PROGRESS"},
		{"closed", ingest.ErrClosed, http.StatusServiceUnavailable, "SHUTTING_DOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewStartUploadHandler(&stubUploads{err: tt.err})(rec, multipartUpload(t, map[string]string{"a.txt": "x"}))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestUploadProgress(t *testing.T) {
	u := &stubUploads{progress: models.UploadProgress{Completed: 2, Total: 3, Status: models.UploadStatusFailed, Error: "uploading c.txt: backend unreachable"}}
	rec := httptest.NewRecorder()
	NewUploadProgressHandler(u)(rec, httptest.NewRequest(http.MethodGet, "/api/v1/uploads", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var p models.UploadProgress
	decodeData(t, rec, &p)
	assert.Equal(t, 2, p.Completed)
	assert.Equal(t, models.UploadStatusFailed, p.Status)
	assert.Contains(t, p.Error, "c.txt")
}

func TestUploadProgress_Idle(t *testing.T) {
	rec := httptest.NewRecorder()
	NewUploadProgressHandler(&stubUploads{})(rec, httptest.NewRequest(http.MethodGet, "/api/v1/uploads", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"status"`)
}
