package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kiranshivaraju/termscope/pkg/models"
	"golang.org/x/time/rate"
)

// Sentinel errors for backend client failures.
var (
	ErrUnreachable     = errors.New("backend unreachable")
	ErrTimeout         = errors.New("backend request timeout")
	ErrStatus          = errors.New("backend returned error status")
	ErrNotFound        = errors.New("backend resource not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Client is the interface for the remote document-analysis service.
type Client interface {
	ListDocuments(ctx context.Context) ([]models.Document, error)
	GetDocument(ctx context.Context, id string) (string, error)
	CreateDocument(ctx context.Context, content string, skipRecompute bool) (string, error)
	UpdateDocument(ctx context.Context, id, content string) error
	DeleteDocument(ctx context.Context, id string) error
	RecomputeIndex(ctx context.Context) error

	StartTopicJob(ctx context.Context) error
	PollTopicJob(ctx context.Context) (models.TopicPoll, error)
	CancelTopicJob(ctx context.Context) (string, error)

	TrendSeries(ctx context.Context, granularity models.Granularity, term string, bin models.Bin) (map[string]int, error)

	Ready(ctx context.Context) error
}

// HTTPClient implements Client using the backend's JSON HTTP API.
type HTTPClient struct {
	baseURL string
	limiter *rate.Limiter
	client  *http.Client
}

// NewHTTPClient creates a new backend HTTP client. A nil limiter disables throttling.
func NewHTTPClient(baseURL string, timeout time.Duration, limiter *rate.Limiter) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: limiter,
		client:  &http.Client{Timeout: timeout},
	}
}

// NewLimiter builds the optional request throttle; perSecond <= 0 means unlimited.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (c *HTTPClient) ListDocuments(ctx context.Context) ([]models.Document, error) {
	var resp listDocumentsResponse
	if err := c.do(ctx, http.MethodGet, "/doc", nil, &resp); err != nil {
		return nil, err
	}

	docs := make([]models.Document, 0, len(resp.Documents))
	for _, d := range resp.Documents {
		date, err := parseDocumentDate(d.Date)
		if err != nil {
			return nil, fmt.Errorf("decoding document %s date: %w", d.ID, err)
		}
		docs = append(docs, models.Document{ID: d.ID, Date: date})
	}
	return docs, nil
}

func (c *HTTPClient) GetDocument(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: document id is required", ErrInvalidArgument)
	}
	var resp documentContentResponse
	if err := c.do(ctx, http.MethodGet, "/doc/"+url.PathEscape(id), nil, &resp); err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (c *HTTPClient) CreateDocument(ctx context.Context, content string, skipRecompute bool) (string, error) {
	var resp createDocumentResponse
	req := createDocumentRequest{Content: content, SkipRecompute: skipRecompute}
	if err := c.do(ctx, http.MethodPost, "/doc", req, &resp); err != nil {
		return "", err
	}
	return resp.DocUUID, nil
}

func (c *HTTPClient) UpdateDocument(ctx context.Context, id, content string) error {
	if id == "" {
		return fmt.Errorf("%w: document id is required", ErrInvalidArgument)
	}
	return c.do(ctx, http.MethodPut, "/doc/"+url.PathEscape(id), documentContentResponse{Content: content}, nil)
}

func (c *HTTPClient) DeleteDocument(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: document id is required", ErrInvalidArgument)
	}
	return c.do(ctx, http.MethodDelete, "/doc/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) RecomputeIndex(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/rpc/recompute_index", nil, nil)
}

func (c *HTTPClient) StartTopicJob(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/topics", nil, nil)
}

func (c *HTTPClient) PollTopicJob(ctx context.Context) (models.TopicPoll, error) {
	var resp models.TopicPoll
	if err := c.do(ctx, http.MethodGet, "/topics", nil, &resp); err != nil {
		return models.TopicPoll{}, err
	}
	return resp, nil
}

func (c *HTTPClient) CancelTopicJob(ctx context.Context) (string, error) {
	var resp models.TopicPoll
	if err := c.do(ctx, http.MethodDelete, "/topics", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

func (c *HTTPClient) TrendSeries(ctx context.Context, granularity models.Granularity, term string, bin models.Bin) (map[string]int, error) {
	if term == "" {
		return nil, fmt.Errorf("%w: term is required", ErrInvalidArgument)
	}
	path := fmt.Sprintf("/trends/%s/%s?%s",
		url.PathEscape(string(granularity)),
		url.PathEscape(term),
		url.Values{"bin_type": {string(bin)}}.Encode())

	var resp trendResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return map[string]int{}, nil
	}
	return resp.Data, nil
}

// Ready checks that the backend answers its document listing.
func (c *HTTPClient) Ready(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/doc", nil, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return nil
}

// do sends one JSON request and decodes the response into out when out is non-nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: throttled: %v", ErrTimeout, err)
		}
	}

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s: status %d", ErrStatus, method, path, resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// parseDocumentDate accepts the listing's YYYY-MM-DD dates and full RFC3339 timestamps.
func parseDocumentDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// --- backend wire types ---

type listDocumentsResponse struct {
	Documents []documentEntry `json:"documents"`
}

type documentEntry struct {
	ID   string `json:"id"`
	Date string `json:"date"`
}

type documentContentResponse struct {
	Content string `json:"content"`
}

type createDocumentRequest struct {
	Content       string `json:"content"`
	SkipRecompute bool   `json:"skip_recompute"`
}

type createDocumentResponse struct {
	DocUUID string `json:"doc_uuid"`
}

type trendResponse struct {
	Data map[string]int `json:"data"`
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
