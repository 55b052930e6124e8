package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kiranshivaraju/termscope/internal/backend"
	"github.com/kiranshivaraju/termscope/internal/cache"
	"github.com/kiranshivaraju/termscope/internal/config"
	"github.com/kiranshivaraju/termscope/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── fake document-analysis backend ─────────────────────────────────────────

type fakeBackend struct {
	mu         sync.Mutex
	docs       map[string]string
	next       int
	recomputes int
	topicPolls int
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{docs: map[string]string{}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /doc", func(w http.ResponseWriter, _ *http.Request) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		entries := []map[string]string{}
		for id := range fb.docs {
			entries = append(entries, map[string]string{"id": id, "date": "2021-06-01"})
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": entries})
	})
	mux.HandleFunc("POST /doc", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Content string `json:"content"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		fb.mu.Lock()
		fb.next++
		id := fmt.Sprintf("doc-%d", fb.next)
		fb.docs[id] = req.Content
		fb.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]string{"doc_uuid": id})
	})
	mux.HandleFunc("GET /doc/{id}", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		content, ok := fb.docs[r.PathValue("id")]
		fb.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"content": content})
	})
	mux.HandleFunc("POST /rpc/recompute_index", func(w http.ResponseWriter, _ *http.Request) {
		fb.mu.Lock()
		fb.recomputes++
		fb.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /topics", func(w http.ResponseWriter, _ *http.Request) {
		fb.mu.Lock()
		fb.topicPolls = 0
		fb.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /topics", func(w http.ResponseWriter, _ *http.Request) {
		fb.mu.Lock()
		fb.topicPolls++
		polls := fb.topicPolls
		fb.mu.Unlock()
		if polls < 2 {
			writeJSON(w, http.StatusOK, map[string]any{"status": "running", "progress": 0.5})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "done", "result": [][]string{{"a", "b"}, {"c"}}})
	})
	mux.HandleFunc("GET /trends/{g}/{term}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]int{"2021-06-01": len(r.PathValue("term"))}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fb, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ─── in-memory cache ────────────────────────────────────────────────────────

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *memCache) Ping(context.Context) error { return nil }

func (c *memCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 1, nil
}

var _ cache.Cache = (*memCache)(nil)

// ─── helpers ────────────────────────────────────────────────────────────────

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		API: config.APIConfig{BaseURL: baseURL, Timeout: 2 * time.Second},
		Workflow: config.WorkflowConfig{
			PollInterval:     5 * time.Millisecond,
			StatusClearDelay: time.Minute,
			TrendConcurrency: 2,
			PreviewTTL:       time.Minute,
		},
	}
}

func newTestConsole(t *testing.T, baseURL string, c cache.Cache) *console {
	t.Helper()
	cfg := testConfig(baseURL)
	client := backend.NewHTTPClient(cfg.API.BaseURL, cfg.API.Timeout, nil)
	con := newConsole(cfg, client, nil, c)
	t.Cleanup(con.Close)
	return con
}

func do(t *testing.T, h http.Handler, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func data(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	env := struct {
		Data any `json:"data"`
	}{Data: out}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
}

// ─── console wiring tests ───────────────────────────────────────────────────

func TestConsole_UploadInvalidatesListAndRefreshesTrends(t *testing.T) {
	fb, srv := newFakeBackend(t)
	mc := &memCache{entries: map[string][]byte{}}
	con := newTestConsole(t, srv.URL, mc)

	// Prime the cached listing and a trend query.
	w := do(t, con.router, "GET", "/api/v1/documents", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)

	w = do(t, con.router, "PUT", "/api/v1/trends", "application/json", []byte(`{"terms":"cost"}`))
	require.Equal(t, http.StatusAccepted, w.Code)
	_, err := con.trends.Wait(context.Background())
	require.NoError(t, err)
	genBefore := con.trends.Dataset().Generation

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"f1.txt", "f2.txt"} {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, _ = part.Write([]byte("contents of " + name))
	}
	require.NoError(t, mw.Close())

	w = do(t, con.router, "POST", "/api/v1/uploads", mw.FormDataContentType(), buf.Bytes())
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	require.Eventually(t, func() bool {
		return con.ingestor.Progress().Status == models.UploadStatusSucceeded
	}, 2*time.Second, 5*time.Millisecond)

	fb.mu.Lock()
	assert.Equal(t, 1, fb.recomputes)
	assert.Len(t, fb.docs, 2)
	fb.mu.Unlock()

	require.Eventually(t, func() bool {
		w := do(t, con.router, "GET", "/api/v1/documents", "", nil)
		return w.Code == http.StatusOK && strings.Contains(w.Body.String(), `"count":2`)
	}, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return con.trends.Dataset().Generation > genBefore
	}, 2*time.Second, 5*time.Millisecond)
}

func TestConsole_TopicJobRunsToDone(t *testing.T) {
	_, srv := newFakeBackend(t)
	con := newTestConsole(t, srv.URL, nil)

	w := do(t, con.router, "POST", "/api/v1/topics", "", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := con.topics.Wait(ctx)
	require.NoError(t, err)

	w = do(t, con.router, "GET", "/api/v1/topics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap models.JobSnapshot
	data(t, w, &snap)
	assert.Equal(t, models.JobPhaseDone, snap.Phase)
	assert.Equal(t, []models.Topic{{"a", "b"}, {"c"}}, snap.Result)
}

func TestConsole_TrendsOrderedWithColours(t *testing.T) {
	_, srv := newFakeBackend(t)
	con := newTestConsole(t, srv.URL, nil)

	w := do(t, con.router, "PUT", "/api/v1/trends", "application/json", []byte(`{"terms":"event,cost","bin":"day"}`))
	require.Equal(t, http.StatusAccepted, w.Code)
	_, err := con.trends.Wait(context.Background())
	require.NoError(t, err)

	w = do(t, con.router, "GET", "/api/v1/trends", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Less(t, strings.Index(body, `"term":"event"`), strings.Index(body, `"term":"cost"`))
	assert.Contains(t, body, `"color":"red"`)
	assert.Contains(t, body, `"color":"orange"`)
}

func TestConsole_HistoryDisabledWithoutDatabase(t *testing.T) {
	_, srv := newFakeBackend(t)
	con := newTestConsole(t, srv.URL, nil)

	w := do(t, con.router, "GET", "/api/v1/history/uploads", "", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestConsole_Health(t *testing.T) {
	_, srv := newFakeBackend(t)
	con := newTestConsole(t, srv.URL, &memCache{entries: map[string][]byte{}})

	w := do(t, con.router, "GET", "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"backend":"ok"`)
	assert.Contains(t, w.Body.String(), `"cache":"ok"`)
}

func TestConsole_HealthBackendDown(t *testing.T) {
	_, srv := newFakeBackend(t)
	url := srv.URL
	srv.Close()
	con := newTestConsole(t, url, nil)

	w := do(t, con.router, "GET", "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"backend":"degraded"`)
}

func TestConsole_AuthEnabledByHash(t *testing.T) {
	_, srv := newFakeBackend(t)
	cfg := testConfig(srv.URL)
	cfg.Server.APIKeyHash = "$2a$04$abcdefghijklmnopqrstuuJ0Lq9Yb1kC3pQmY3C2b6xAq9mUQbK4e"
	con := newConsole(cfg, backend.NewHTTPClient(srv.URL, time.Second, nil), nil, nil)
	t.Cleanup(con.Close)

	assert.True(t, con.authEnabled)
	w := do(t, con.router, "GET", "/api/v1/topics", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// ─── run() config validation tests ──────────────────────────────────────────

func TestRun_FailsOnMissingConfig(t *testing.T) {
	t.Setenv("TERMSCOPE_API_BASE_URL", "")
	t.Setenv("TERMSCOPE_API_HOST", "")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestRun_FailsOnInvalidDatabaseURL(t *testing.T) {
	t.Setenv("TERMSCOPE_API_BASE_URL", "http://localhost:5000")
	t.Setenv("DATABASE_URL", "not-a-valid-url")
	t.Setenv("REDIS_URL", "")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect database")
}

func TestRun_FailsOnUnreachableRedis(t *testing.T) {
	t.Setenv("TERMSCOPE_API_BASE_URL", "http://localhost:5000")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://127.0.0.1:1")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestShutdownTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, shutdownTimeout)
}
