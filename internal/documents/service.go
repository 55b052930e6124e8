// Package documents browses and edits documents stored on the backend,
// with an optional read-through cache in front of it.
package documents

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/kiranshivaraju/termscope/internal/cache"
	"github.com/kiranshivaraju/termscope/pkg/models"
)

// PreviewLength is the number of characters shown in a document preview.
const PreviewLength = 300

const defaultTTL = 5 * time.Minute

// Backend is the document part of the backend client.
type Backend interface {
	ListDocuments(ctx context.Context) ([]models.Document, error)
	GetDocument(ctx context.Context, id string) (string, error)
	UpdateDocument(ctx context.Context, id, content string) error
	DeleteDocument(ctx context.Context, id string) error
}

type Option func(*Service)

// WithCache enables read-through caching. A nil cache disables it.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service is safe for concurrent use. Cache failures are logged and never
// fail the operation.
type Service struct {
	backend Backend
	cache   cache.Cache
	ttl     time.Duration
	logger  *slog.Logger
}

func NewService(backend Backend, opts ...Option) *Service {
	s := &Service{
		backend: backend,
		ttl:     defaultTTL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context) ([]models.Document, error) {
	if raw, ok := s.cached(ctx, cache.DocumentListKey); ok {
		var docs []models.Document
		if err := json.Unmarshal(raw, &docs); err == nil {
			return docs, nil
		}
	}

	docs, err := s.backend.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(docs); err == nil {
		s.store(ctx, cache.DocumentListKey, raw)
	}
	return docs, nil
}

func (s *Service) Content(ctx context.Context, id string) (string, error) {
	key := cache.DocumentContentKey(id)
	if raw, ok := s.cached(ctx, key); ok {
		return string(raw), nil
	}

	content, err := s.backend.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	s.store(ctx, key, []byte(content))
	return content, nil
}

// Preview returns the first PreviewLength characters of the document.
func (s *Service) Preview(ctx context.Context, id string) (models.DocumentPreview, error) {
	content, err := s.Content(ctx, id)
	if err != nil {
		return models.DocumentPreview{}, err
	}
	text, truncated := Truncate(content, PreviewLength)
	return models.DocumentPreview{ID: id, Preview: text, Truncated: truncated}, nil
}

func (s *Service) Update(ctx context.Context, id, content string) error {
	if err := s.backend.UpdateDocument(ctx, id, content); err != nil {
		return err
	}
	s.invalidate(ctx, cache.DocumentContentKey(id))
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.backend.DeleteDocument(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cache.DocumentContentKey(id), cache.DocumentListKey)
	return nil
}

// InvalidateList drops the cached listing, e.g. after an upload.
func (s *Service) InvalidateList(ctx context.Context) {
	s.invalidate(ctx, cache.DocumentListKey)
}

// Truncate cuts text to at most n characters.
func Truncate(text string, n int) (string, bool) {
	if utf8.RuneCountInString(text) <= n {
		return text, false
	}
	i, count := 0, 0
	for i = range text {
		if count == n {
			break
		}
		count++
	}
	return text[:i], true
}

func (s *Service) cached(ctx context.Context, key string) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("document cache read failed", "key", key, "error", err)
		return nil, false
	}
	return raw, found
}

func (s *Service) store(ctx context.Context, key string, raw []byte) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.logger.Warn("document cache write failed", "key", key, "error", err)
	}
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("document cache invalidation failed", "keys", keys, "error", err)
	}
}
