package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/seenimoa/bris/internal/calculator"
	"github.com/seenimoa/bris/internal/config"
	"github.com/seenimoa/bris/internal/knowledge"
	"github.com/seenimoa/bris/internal/observability"
	"github.com/seenimoa/bris/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

// fakeKB is an in-memory KnowledgeBase. err, when set, is returned by every call.
type fakeKB struct {
	mu       sync.Mutex
	err      error
	lastChat models.ChatRequest
	lastList models.DocumentQuery
	lastID   string
	limit    *int
	overview models.BackendOverview
	pruned   int
}

func (f *fakeKB) record(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastID = id
	return f.err
}

func (f *fakeKB) Chat(_ context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	f.mu.Lock()
	f.lastChat = req
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &models.ChatResponse{Answer: "3%", SessionID: "s-1", Confidence: "high", Sources: []models.Source{}}, nil
}

func (f *fakeKB) History(_ context.Context, id string) (*models.ChatHistory, error) {
	if err := f.record(id); err != nil {
		return nil, err
	}
	return &models.ChatHistory{History: []models.ChatMessage{{Role: "user", Content: "hola"}}}, nil
}

func (f *fakeKB) ClearHistory(_ context.Context, id string) error { return f.record(id) }

func (f *fakeKB) Stats(context.Context) (*models.DocumentStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.DocumentStats{TotalChunks: 10, TotalDocuments: 2}, nil
}

func (f *fakeKB) Topics(context.Context) (*models.TopicList, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.TopicList{Topics: []string{"LCR"}, Counts: map[string]int{"LCR": 10}}, nil
}

func (f *fakeKB) Search(_ context.Context, req models.SearchRequest) (*models.SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.SearchResult{Query: req.Query, Results: []models.Source{}, TotalFound: req.TopK}, nil
}

func (f *fakeKB) ListDocuments(_ context.Context, q models.DocumentQuery) (*models.DocumentList, error) {
	f.mu.Lock()
	f.lastList = q
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &models.DocumentList{Documents: []models.DocumentInfo{}, Limit: q.Limit, Offset: q.Offset}, nil
}

func (f *fakeKB) Sources(context.Context) (*models.SourceList, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.SourceList{Sources: []models.RegulatorySource{{ID: "eba", Name: "EBA"}}, Total: 1}, nil
}

func (f *fakeKB) payload(id string) (models.AdminPayload, error) {
	if err := f.record(id); err != nil {
		return nil, err
	}
	return models.AdminPayload(`{"status":"running"}`), nil
}

func (f *fakeKB) Discover(_ context.Context, id string) (models.AdminPayload, error) {
	return f.payload(id)
}

func (f *fakeKB) Scrape(_ context.Context, id string, req models.ScrapeRequest) (*models.ScrapeStatus, error) {
	if err := f.record(id); err != nil {
		return nil, err
	}
	return &models.ScrapeStatus{Source: id, Status: "completed", Errors: []string{}}, nil
}

func (f *fakeKB) ScrapeBackground(_ context.Context, id string, limit *int) (models.AdminPayload, error) {
	f.mu.Lock()
	f.limit = limit
	f.mu.Unlock()
	return f.payload(id)
}

func (f *fakeKB) ScrapeStatus(_ context.Context, id string) (models.AdminPayload, error) {
	return f.payload(id)
}

func (f *fakeKB) CheckUpdates(context.Context) (models.AdminPayload, error) { return f.payload("") }
func (f *fakeKB) IndexedStats(context.Context) (models.AdminPayload, error) { return f.payload("") }

func (f *fakeKB) Reindex(_ context.Context, limit *int) (models.AdminPayload, error) {
	f.mu.Lock()
	f.limit = limit
	f.mu.Unlock()
	return f.payload("")
}

func (f *fakeKB) Overview(context.Context) *models.BackendOverview {
	ov := f.overview
	return &ov
}

func (f *fakeKB) PruneCache() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruned++
	return 1
}

func testConfig() *config.Config {
	return &config.Config{
		API: config.APIConfig{
			CORSOrigins:        []string{"http://localhost:3000"},
			RateLimitPerMinute: 30,
			RequestTimeoutSec:  5,
		},
		Backend: config.BackendConfig{URL: "http://backend.test"},
		Web:     config.WebConfig{URL: "https://bris.example.com"},
	}
}

func testServerWith(t *testing.T, cfg *config.Config, kb *fakeKB) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	srv := newServer(cfg, calculator.New(calculator.DefaultParams()), kb, zerolog.Nop(), reg, observability.NewMetrics(reg))
	go srv.wsHub.Run()
	return srv
}

func testServer(t *testing.T) (*Server, *fakeKB) {
	t.Helper()
	kb := &fakeKB{overview: models.BackendOverview{Reachable: true, RAGStatus: "healthy"}}
	return testServerWith(t, testConfig(), kb), kb
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

// do sends a request through the full router.
func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

// ════════════════════════════════════════════════════════════════════
// APIResponse
// ════════════════════════════════════════════════════════════════════

func TestAPIResponseJSON(t *testing.T) {
	tests := []struct {
		name string
		resp APIResponse
		want string
	}{
		{"success with data", APIResponse{Success: true, Data: map[string]string{"key": "value"}}, `{"success":true,"data":{"key":"value"}}`},
		{"error with code", APIResponse{Success: false, Error: "boom", Code: CodeDivisionByZero}, `{"success":false,"error":"boom","code":"division_by_zero"}`},
		{"success with nil data", APIResponse{Success: true}, `{"success":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.resp)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("got %s, want %s", data, tt.want)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusTooManyRequests, CodeRateLimited, "slow down")

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status: got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	resp := decodeResponse(t, rec)
	if resp.Success || resp.Error != "slow down" || resp.Code != CodeRateLimited {
		t.Errorf("unexpected envelope: %+v", resp)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"range", &calculator.RangeError{Field: "lgd", Reason: "must be <= 1"}, http.StatusBadRequest, CodeInvalidRange},
		{"zero", &calculator.DivisionByZeroError{Quantity: "net_outflows"}, http.StatusUnprocessableEntity, CodeDivisionByZero},
		{"wrapped zero", fmt.Errorf("lcr: %w", &calculator.DivisionByZeroError{Quantity: "net_outflows"}), http.StatusUnprocessableEntity, CodeDivisionByZero},
		{"unavailable", fmt.Errorf("%w: dial tcp", knowledge.ErrUpstreamUnavailable), http.StatusServiceUnavailable, CodeUpstreamUnavailable},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, CodeUpstreamUnavailable},
		{"rejected", &knowledge.StatusError{StatusCode: 404, Detail: "unknown source"}, http.StatusNotFound, CodeUpstreamRejected},
		{"other", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := classify(tt.err)
			if status != tt.status || code != tt.code {
				t.Errorf("classify: got %d %q, want %d %q", status, code, tt.status, tt.code)
			}
		})
	}
}

// ════════════════════════════════════════════════════════════════════
// Operational routes
// ════════════════════════════════════════════════════════════════════

func TestHandleRoot(t *testing.T) {
	srv, _ := testServer(t)
	rec := do(t, srv, "GET", "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	data := decodeResponse(t, rec).Data.(map[string]interface{})
	if data["name"] != "BRIS API" {
		t.Errorf("name: got %v", data["name"])
	}
	if _, ok := data["endpoints"]; !ok {
		t.Error("missing endpoints")
	}
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name string
		ov   models.BackendOverview
		rag  string
	}{
		{"healthy", models.BackendOverview{Reachable: true, RAGStatus: "healthy"}, "healthy"},
		{"empty", models.BackendOverview{Reachable: true, RAGStatus: "empty"}, "empty"},
		{"down", models.BackendOverview{RAGStatus: "error: knowledge: upstream unavailable"}, "error: knowledge: upstream unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServerWith(t, testConfig(), &fakeKB{overview: tt.ov})
			rec := do(t, srv, "GET", "/health", "")

			// The API itself stays healthy when the backend is not.
			if rec.Code != http.StatusOK {
				t.Fatalf("status: got %d", rec.Code)
			}
			data := decodeResponse(t, rec).Data.(map[string]interface{})
			if data["status"] != "healthy" {
				t.Errorf("status: got %v", data["status"])
			}
			services := data["services"].(map[string]interface{})
			if services["rag"] != tt.rag {
				t.Errorf("services.rag: got %v, want %q", services["rag"], tt.rag)
			}
			for _, k := range []string{"timestamp", "version", "uptime"} {
				if _, ok := data[k]; !ok {
					t.Errorf("missing %s", k)
				}
			}
		})
	}
}

func TestHandleReady(t *testing.T) {
	srv, _ := testServer(t)

	rec := do(t, srv, "GET", "/health/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("before ready: got %d, want 503", rec.Code)
	}

	srv.health.SetReady(true)
	rec = do(t, srv, "GET", "/health/ready", "")
	if rec.Code != http.StatusOK {
		t.Errorf("after ready: got %d, want 200", rec.Code)
	}
	data := decodeResponse(t, rec).Data.(map[string]interface{})
	if data["ready"] != true {
		t.Errorf("ready: got %v", data["ready"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	do(t, srv, "POST", "/api/v1/calculator/leverage-ratio", `{"tier1_capital":5,"on_balance_exposures":100}`)

	rec := do(t, srv, "GET", "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`bris_calculations_total{engine="leverage",outcome="ok"} 1`,
		`bris_compliance_results_total{compliant="true",engine="leverage"} 1`,
		`bris_http_requests_total{route="/api/v1/calculator/leverage-ratio",status="2xx"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestCORSOrigins(t *testing.T) {
	srv, _ := testServer(t)
	got := srv.corsOrigins()
	if len(got) != 2 || got[1] != "https://bris.example.com" {
		t.Errorf("corsOrigins: got %v", got)
	}

	cfg := testConfig()
	cfg.Web.URL = "http://localhost:3000"
	srv = testServerWith(t, cfg, &fakeKB{})
	if got := srv.corsOrigins(); len(got) != 1 {
		t.Errorf("frontend URL already listed should not be duplicated: %v", got)
	}

	req := httptest.NewRequest("OPTIONS", "/api/v1/calculator/lcr", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("preflight: Allow-Origin %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	reg := prometheus.NewRegistry()
	srv := newServer(testConfig(), calculator.New(calculator.DefaultParams()), &fakeKB{},
		zerolog.New(&buf), reg, observability.NewMetrics(reg))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	srv.Router().ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("access log is not JSON: %v (%q)", err, buf.String())
	}
	if entry["request_id"] != "req-42" {
		t.Errorf("request_id: got %v", entry["request_id"])
	}
	if entry["status"] != float64(200) || entry["method"] != "GET" {
		t.Errorf("unexpected access log entry: %v", entry)
	}
}

// ════════════════════════════════════════════════════════════════════
// Middleware
// ════════════════════════════════════════════════════════════════════

func TestAdminAuth(t *testing.T) {
	cfg := testConfig()
	cfg.API.AdminToken = "s3cret-admin-token"
	srv := testServerWith(t, cfg, &fakeKB{})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "Bearer nope", http.StatusUnauthorized},
		{"not bearer", "s3cret-admin-token", http.StatusUnauthorized},
		{"valid", "Bearer s3cret-admin-token", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/admin/sources", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized {
				if code := decodeResponse(t, rec).Code; code != CodeUnauthorized {
					t.Errorf("code: got %q", code)
				}
			}
		})
	}
}

func TestAdminOpenWithoutToken(t *testing.T) {
	srv, _ := testServer(t)
	if rec := do(t, srv, "GET", "/api/v1/admin/sources", ""); rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
}

func TestChatRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.API.RateLimitPerMinute = 2
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	srv := newServer(cfg, calculator.New(calculator.DefaultParams()), &fakeKB{}, zerolog.Nop(), reg, m)

	send := func(ip string) int {
		req := httptest.NewRequest("POST", "/api/v1/chat", strings.NewReader(`{"message":"hola"}`))
		req.RemoteAddr = ip + ":5000"
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		return rec.Code
	}

	if send("10.0.0.1") != http.StatusOK || send("10.0.0.1") != http.StatusOK {
		t.Fatal("first two chat requests should pass")
	}
	if got := send("10.0.0.1"); got != http.StatusTooManyRequests {
		t.Errorf("third request: got %d, want 429", got)
	}
	if got := send("10.0.0.2"); got != http.StatusOK {
		t.Errorf("other client: got %d, want 200", got)
	}
	if got := testutil.ToFloat64(m.RateLimited); got != 1 {
		t.Errorf("rate limited counter: got %v", got)
	}

	// Only chat is limited.
	req := httptest.NewRequest("GET", "/api/v1/documents/stats", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("documents should not be rate limited: %d", rec.Code)
	}
}

func TestPrune(t *testing.T) {
	cfg := testConfig()
	cfg.API.RateLimitPerMinute = 1
	srv := testServerWith(t, cfg, &fakeKB{})
	kb := srv.kb.(*fakeKB)

	send := func() int {
		req := httptest.NewRequest("POST", "/api/v1/chat", strings.NewReader(`{"message":"hola"}`))
		req.RemoteAddr = "10.0.0.9:5000"
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		return rec.Code
	}
	if send() != http.StatusOK || send() != http.StatusTooManyRequests {
		t.Fatal("second chat request within a minute should be limited")
	}

	// A recently seen client keeps its bucket.
	srv.prune()
	if send() != http.StatusTooManyRequests {
		t.Error("active client's bucket should survive pruning")
	}
	if kb.pruned != 1 {
		t.Errorf("knowledge cache pruned %d times, want 1", kb.pruned)
	}
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if got := clientKey(req); got != "192.0.2.1" {
		t.Errorf("clientKey: got %q", got)
	}
	req.RemoteAddr = "192.0.2.1"
	if got := clientKey(req); got != "192.0.2.1" {
		t.Errorf("clientKey without port: got %q", got)
	}
}

// ════════════════════════════════════════════════════════════════════
// Config endpoints
// ════════════════════════════════════════════════════════════════════

func TestHandleParameters(t *testing.T) {
	srv, _ := testServer(t)
	rec := do(t, srv, "GET", "/api/v1/calculator/parameters", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}

	var resp struct {
		Data ParametersResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Parameters != calculator.DefaultParams() {
		t.Errorf("parameters: got %+v", resp.Data.Parameters)
	}
}

func TestHandleConfigKeys(t *testing.T) {
	cfg := testConfig()
	cfg.Backend.APIKey = "backend-key-1234567890"
	srv := testServerWith(t, cfg, &fakeKB{})

	rec := do(t, srv, "GET", "/api/v1/admin/keys", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "backend-key-1234567890") {
		t.Error("key status must not leak the raw key")
	}
}

func TestListenAndServeTimeoutDefault(t *testing.T) {
	cfg := testConfig()
	cfg.API.RequestTimeoutSec = 0
	srv := testServerWith(t, cfg, &fakeKB{})
	if got := srv.requestTimeout(); got != 120*time.Second {
		t.Errorf("requestTimeout: got %v", got)
	}
}

func TestNewServerRequiresBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Backend.URL = ""
	if _, err := NewServer(cfg, zerolog.Nop()); err == nil {
		t.Error("expected error without backend.url")
	}

	cfg.Backend.URL = "http://localhost:8001"
	srv, err := NewServer(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if srv.Router() == nil {
		t.Error("router not built")
	}
}
