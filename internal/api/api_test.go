package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/nlp"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/tools"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

type fakeBus struct {
	mu       sync.Mutex
	pushed   []*types.Job
	jobs     map[string]*types.Job
	results  map[string]*types.ToolResult
	statsErr error
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		jobs:    make(map[string]*types.Job),
		results: make(map[string]*types.ToolResult),
	}
}

func (f *fakeBus) Push(ctx context.Context, job *types.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.ID = fmt.Sprintf("job-%d", len(f.pushed)+1)
	job.Status = types.JobStatusPending
	f.pushed = append(f.pushed, job)
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeBus) Pop(ctx context.Context, workerID string) (*types.Job, error) {
	return nil, core.ErrNoJob
}

func (f *fakeBus) Complete(ctx context.Context, jobID string, result *types.ToolResult) error {
	return nil
}

func (f *fakeBus) Fail(ctx context.Context, jobID string, reason string) error { return nil }
func (f *fakeBus) Retry(ctx context.Context, jobID string) error               { return nil }

func (f *fakeBus) GetStatus(ctx context.Context, jobID string) (*types.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[jobID]; ok {
		return job, nil
	}
	return nil, core.ErrJobNotFound
}

func (f *fakeBus) GetResult(ctx context.Context, jobID string) (*types.ToolResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if result, ok := f.results[jobID]; ok {
		return result, nil
	}
	return nil, core.ErrJobNotFound
}

func (f *fakeBus) GetPending(ctx context.Context) ([]*types.Job, error) { return nil, nil }

func (f *fakeBus) Stats(ctx context.Context) (*types.QueueStats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return &types.QueueStats{Pending: 2, Processing: 1}, nil
}

func (f *fakeBus) Close() error { return nil }

type fakeStore struct {
	mu        sync.Mutex
	scans     map[string]*types.ScanRecord
	list      []*types.ScanRecord
	findings  map[string][]types.Finding
	gotFilter core.ScanFilter
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		scans:    make(map[string]*types.ScanRecord),
		findings: make(map[string][]types.Finding),
	}
}

func (f *fakeStore) SaveScan(ctx context.Context, scan *types.ScanRecord) error   { return nil }
func (f *fakeStore) UpdateScan(ctx context.Context, scan *types.ScanRecord) error { return nil }

func (f *fakeStore) GetScan(ctx context.Context, scanID string) (*types.ScanRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if scan, ok := f.scans[scanID]; ok {
		return scan, nil
	}
	return nil, core.ErrScanNotFound
}

func (f *fakeStore) ListScans(ctx context.Context, filter core.ScanFilter) ([]*types.ScanRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotFilter = filter
	return f.list, nil
}

func (f *fakeStore) SaveFindings(ctx context.Context, findings []types.Finding) error { return nil }

func (f *fakeStore) GetFindings(ctx context.Context, scanID string) ([]types.Finding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findings[scanID], nil
}

func (f *fakeStore) GetFindingStats(ctx context.Context) (*core.FindingStats, error) {
	return &core.FindingStats{}, nil
}

func (f *fakeStore) SearchFindings(ctx context.Context, term string, limit int) ([]types.Finding, error) {
	return nil, nil
}

func (f *fakeStore) Close() error { return nil }

type stubTool struct {
	name string
	out  string
}

func (s *stubTool) Name() string                      { return s.name }
func (s *stubTool) Category() types.ToolCategory      { return types.CategoryNetwork }
func (s *stubTool) IsAvailable() bool                 { return true }
func (s *stubTool) Version(ctx context.Context) string { return "stub" }

func (s *stubTool) Run(ctx context.Context, op, target string, opts map[string]string) (*types.ToolResult, error) {
	return &types.ToolResult{
		Tool:      s.name,
		Operation: op,
		Target:    target,
		Success:   true,
		Output:    s.out,
	}, nil
}

func (s *stubTool) HandleQuery(ctx context.Context, query string) (*types.QueryResult, error) {
	return nil, core.ErrUnknownOperation
}

func (s *stubTool) Status() *types.ToolStatus {
	return &types.ToolStatus{Name: s.name, Available: true}
}

type testAPI struct {
	engine *gin.Engine
	bus    *fakeBus
	store  *fakeStore
	hub    *Hub
}

func newTestAPI(t *testing.T, register ...core.SecurityTool) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New(config.LoggerConfig{Level: "error", Format: "console"})
	require.NoError(t, err)

	registry := tools.NewRegistry()
	for _, tool := range register {
		require.NoError(t, registry.Register(tool))
	}

	bus := newFakeBus()
	store := newFakeStore()
	hub := NewHub(log)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	router := nlp.NewRouter(registry, nil, log)
	handlers := NewHandlers(bus, store, registry, router, hub, log)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/health", HealthHandler(bus, nil, "test"))
	v1 := engine.Group("/api/v1")
	handlers.Register(v1)

	return &testAPI{engine: engine, bus: bus, store: store, hub: hub}
}

func (a *testAPI) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			panic(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	assert.Equal(t, true, resp["healthy"])

	checks := resp["checks"].(map[string]interface{})
	bus := checks["bus"].(map[string]interface{})
	assert.Equal(t, "healthy", bus["status"])
	assert.Equal(t, float64(2), bus["pending"])
}

func TestHealth_BusDown(t *testing.T) {
	api := newTestAPI(t)
	api.bus.statsErr = errors.New("connection refused")

	w := api.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	resp := decode(t, w)
	assert.Equal(t, false, resp["healthy"])
}

func TestQuery_Executes(t *testing.T) {
	api := newTestAPI(t, &stubTool{name: "nmap", out: "80/tcp open http"})

	w := api.do(http.MethodPost, "/api/v1/query", map[string]interface{}{
		"query": "quick scan 10.0.0.5",
	})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	parsed := resp["parsed"].(map[string]interface{})
	assert.Equal(t, "nmap", parsed["tool"])
	assert.Equal(t, "quick", parsed["operation"])
	assert.Equal(t, "10.0.0.5", parsed["target"])

	result := resp["result"].(map[string]interface{})
	assert.Equal(t, true, result["success"])
}

func TestQuery_ConfirmationRequired(t *testing.T) {
	api := newTestAPI(t, &stubTool{name: "sqlmap", out: "no injection found"})

	w := api.do(http.MethodPost, "/api/v1/query", map[string]interface{}{
		"query": "test sql injection on http://shop.example.com",
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	resp := decode(t, w)
	assert.Equal(t, "CONFIRMATION_REQUIRED", resp["status"])
	parsed := resp["parsed"].(map[string]interface{})
	assert.Equal(t, "sqlmap", parsed["tool"])
	assert.Equal(t, true, parsed["requires_confirmation"])

	// Same query with the confirmation flag runs.
	w = api.do(http.MethodPost, "/api/v1/query", map[string]interface{}{
		"query":        "test sql injection on http://shop.example.com",
		"auto_confirm": true,
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode(t, w)
	assert.NotNil(t, resp["result"])
}

func TestQuery_UnknownTool(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/v1/query", map[string]interface{}{
		"query": "quick scan 10.0.0.5",
	})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuery_BadRequest(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/v1/query", map[string]interface{}{})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateScan(t *testing.T) {
	api := newTestAPI(t, &stubTool{name: "nmap"})

	w := api.do(http.MethodPost, "/api/v1/scans", map[string]interface{}{
		"tool":      "nmap",
		"operation": "quick",
		"target":    "10.0.0.8",
		"priority":  10,
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	resp := decode(t, w)
	assert.NotEmpty(t, resp["job_id"])
	assert.Equal(t, "pending", resp["status"])

	api.bus.mu.Lock()
	require.Len(t, api.bus.pushed, 1)
	assert.Equal(t, "nmap", api.bus.pushed[0].Tool)
	assert.Equal(t, 10, api.bus.pushed[0].Priority)
	api.bus.mu.Unlock()
}

func TestCreateScan_UnknownTool(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/v1/scans", map[string]interface{}{
		"tool":      "ghost",
		"operation": "scan",
		"target":    "10.0.0.8",
	})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateScan_InvalidTarget(t *testing.T) {
	api := newTestAPI(t, &stubTool{name: "nmap"})

	w := api.do(http.MethodPost, "/api/v1/scans", map[string]interface{}{
		"tool":      "nmap",
		"operation": "quick",
		"target":    "10.0.0.8; rm -rf /",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	api.bus.mu.Lock()
	assert.Empty(t, api.bus.pushed)
	api.bus.mu.Unlock()
}

func TestCreateScan_PublicTargetWarns(t *testing.T) {
	api := newTestAPI(t, &stubTool{name: "nmap"})

	w := api.do(http.MethodPost, "/api/v1/scans", map[string]interface{}{
		"tool":      "nmap",
		"operation": "quick",
		"target":    "203.0.113.9",
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	resp := decode(t, w)
	warnings, ok := resp["warnings"].([]interface{})
	require.True(t, ok, "expected warnings in response")
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0], "authorized")
}

func TestGetScan(t *testing.T) {
	api := newTestAPI(t)
	api.bus.jobs["abc"] = &types.Job{ID: "abc", Tool: "nmap", Status: types.JobStatusCompleted}
	api.bus.results["abc"] = &types.ToolResult{Tool: "nmap", Success: true, Output: "done"}
	api.store.scans["abc"] = &types.ScanRecord{ID: "abc", Tool: "nmap", Status: types.ScanStatusCompleted}
	api.store.findings["abc"] = []types.Finding{{ID: "f1", ScanID: "abc", Severity: types.SeverityInfo}}

	w := api.do(http.MethodGet, "/api/v1/scans/abc", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	assert.Contains(t, resp, "job")
	assert.Contains(t, resp, "scan")
	assert.Contains(t, resp, "result")
	assert.Contains(t, resp, "findings")
}

func TestGetScan_NotFound(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/v1/scans/missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListScans(t *testing.T) {
	api := newTestAPI(t)
	api.store.list = []*types.ScanRecord{
		{ID: "s1", Tool: "nmap"},
		{ID: "s2", Tool: "nmap"},
	}

	w := api.do(http.MethodGet, "/api/v1/scans?tool=nmap&limit=10&offset=5", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	assert.Equal(t, float64(2), resp["count"])

	assert.Equal(t, "nmap", api.store.gotFilter.Tool)
	assert.Equal(t, 10, api.store.gotFilter.Limit)
	assert.Equal(t, 5, api.store.gotFilter.Offset)
}

func TestListTools(t *testing.T) {
	api := newTestAPI(t, &stubTool{name: "nmap"}, &stubTool{name: "nikto"})

	w := api.do(http.MethodGet, "/api/v1/tools", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	assert.Equal(t, float64(2), resp["total"])

	toolList := resp["tools"].([]interface{})
	first := toolList[0].(map[string]interface{})
	assert.Equal(t, "nmap", first["name"])
	assert.Equal(t, true, first["available"])
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, err := logger.New(config.LoggerConfig{Level: "error", Format: "console"})
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(AuthMiddleware("secret-token", log))
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/api/v1/tools", func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"health needs no token", "/health", "", http.StatusOK},
		{"missing header", "/api/v1/tools", "", http.StatusUnauthorized},
		{"malformed header", "/api/v1/tools", "secret-token", http.StatusUnauthorized},
		{"wrong token", "/api/v1/tools", "Bearer wrong", http.StatusUnauthorized},
		{"valid token", "/api/v1/tools", "Bearer secret-token", http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(RateLimitMiddleware(config.RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1}))
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(CORSMiddleware())
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHub_StreamsEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, err := logger.New(config.LoggerConfig{Level: "error", Format: "console"})
	require.NoError(t, err)

	hub := NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	engine := gin.New()
	engine.GET("/events", hub.ServeWS)
	srv := httptest.NewServer(engine)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(types.Event{Type: "queued", JobID: "job-1", Tool: "nmap", Timestamp: time.Now()})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event types.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "queued", event.Type)
	assert.Equal(t, "job-1", event.JobID)
}
