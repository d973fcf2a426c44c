package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/seenimoa/bris/internal/observability"
	"github.com/seenimoa/bris/pkg/models"
)

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(append([]Option{WithBaseURL(srv.URL + "/")}, opts...)...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestChatFillsSessionAndLanguage(t *testing.T) {
	var got models.ChatRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/chat/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("Authorization: got %q", auth)
		}
		json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusOK, models.ChatResponse{
			Answer:     "El ratio de apalancamiento mínimo es del 3%.",
			Confidence: "high",
		})
	}), WithAPIKey("secret"))

	resp, err := c.Chat(context.Background(), models.ChatRequest{Message: "¿Cuál es el mínimo de apalancamiento?"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if got.Language != "es" {
		t.Errorf("language: got %q, want es", got.Language)
	}
	if _, err := uuid.Parse(got.SessionID); err != nil {
		t.Errorf("session id %q is not a uuid: %v", got.SessionID, err)
	}
	if resp.SessionID != got.SessionID {
		t.Errorf("response session: got %q, want %q", resp.SessionID, got.SessionID)
	}
	if resp.Confidence != "high" {
		t.Errorf("confidence: got %q", resp.Confidence)
	}
}

func TestChatKeepsCallerSession(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.ChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusOK, models.ChatResponse{Answer: "ok", SessionID: req.SessionID})
	}))

	resp, err := c.Chat(context.Background(), models.ChatRequest{Message: "hi", SessionID: "s-1", Language: "en"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.SessionID != "s-1" {
		t.Errorf("session: got %q, want s-1", resp.SessionID)
	}
}

func TestHistoryAndClear(t *testing.T) {
	var deleted atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/chat/history/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "empty" {
			writeJSON(w, http.StatusOK, map[string]any{"history": nil})
			return
		}
		writeJSON(w, http.StatusOK, models.ChatHistory{History: []models.ChatMessage{
			{Role: "user", Content: "q"},
			{Role: "assistant", Content: "a"},
		}})
	})
	mux.HandleFunc("DELETE /api/v1/chat/history/{id}", func(w http.ResponseWriter, r *http.Request) {
		deleted.Store(true)
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	})
	c := newTestClient(t, mux)

	h, err := c.History(context.Background(), "abc")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(h.History) != 2 || h.History[1].Role != "assistant" {
		t.Errorf("History: got %+v", h.History)
	}

	h, err = c.History(context.Background(), "empty")
	if err != nil {
		t.Fatalf("History(empty): %v", err)
	}
	if h.History == nil || len(h.History) != 0 {
		t.Errorf("empty history should be a non-nil empty slice, got %#v", h.History)
	}

	if err := c.ClearHistory(context.Background(), "abc"); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}
	if !deleted.Load() {
		t.Error("DELETE was not sent")
	}
}

func TestStatsAndTopicsAreCached(t *testing.T) {
	var statsCalls, topicCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/documents/stats", func(w http.ResponseWriter, r *http.Request) {
		statsCalls.Add(1)
		writeJSON(w, http.StatusOK, models.DocumentStats{TotalChunks: 120, TotalDocuments: 8})
	})
	mux.HandleFunc("/api/v1/documents/topics", func(w http.ResponseWriter, r *http.Request) {
		topicCalls.Add(1)
		writeJSON(w, http.StatusOK, models.TopicList{Topics: []string{"CRR", "MREL"}, Counts: map[string]int{"CRR": 80, "MREL": 40}})
	})
	mux.HandleFunc("/api/v1/admin/reindex", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s, err := c.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		if s.TotalChunks != 120 {
			t.Errorf("TotalChunks: got %d", s.TotalChunks)
		}
		if _, err := c.Topics(ctx); err != nil {
			t.Fatalf("Topics: %v", err)
		}
	}
	if statsCalls.Load() != 1 || topicCalls.Load() != 1 {
		t.Errorf("backend calls: stats=%d topics=%d, want 1 each", statsCalls.Load(), topicCalls.Load())
	}

	if _, err := c.Reindex(ctx, nil); err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	c.Stats(ctx)
	if statsCalls.Load() != 2 {
		t.Errorf("reindex should drop cached stats, calls=%d", statsCalls.Load())
	}
}

func TestPruneCacheDropsExpired(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/documents/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.DocumentStats{TotalChunks: 1})
	})
	mux.HandleFunc("/api/v1/documents/topics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.TopicList{Topics: []string{"LCR"}})
	})
	c := newTestClient(t, mux, WithCacheTTL(20*time.Millisecond))
	ctx := context.Background()

	if _, err := c.Stats(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Topics(ctx); err != nil {
		t.Fatal(err)
	}
	if n := c.PruneCache(); n != 0 {
		t.Errorf("fresh entries pruned: %d", n)
	}

	time.Sleep(40 * time.Millisecond)
	if n := c.PruneCache(); n != 2 {
		t.Errorf("PruneCache: got %d, want 2", n)
	}
}

func TestCacheDisabled(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, models.DocumentStats{})
	}), WithCacheTTL(0))

	c.Stats(context.Background())
	c.Stats(context.Background())
	if calls.Load() != 2 {
		t.Errorf("calls: got %d, want 2", calls.Load())
	}
}

func TestSearchDefaultsTopK(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.SearchRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.TopK != 5 {
			t.Errorf("top_k: got %d, want 5", req.TopK)
		}
		writeJSON(w, http.StatusOK, models.SearchResult{
			Query:      req.Query,
			Results:    []models.Source{{Title: "CRR Art. 429", Excerpt: "leverage ratio"}},
			TotalFound: 1,
		})
	}))

	r, err := c.Search(context.Background(), models.SearchRequest{Query: "leverage ratio"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if r.TotalFound != 1 || r.Results[0].Title != "CRR Art. 429" {
		t.Errorf("Search: got %+v", r)
	}
}

func TestListDocumentsQuery(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("topic") != "MREL" || q.Get("limit") != "50" || q.Get("offset") != "10" {
			t.Errorf("query: got %s", r.URL.RawQuery)
		}
		writeJSON(w, http.StatusOK, models.DocumentList{Total: 0, Limit: 50, Offset: 10})
	}))

	l, err := c.ListDocuments(context.Background(), models.DocumentQuery{Topic: "MREL", Offset: 10})
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if l.Limit != 50 {
		t.Errorf("Limit: got %d", l.Limit)
	}
}

func TestAdminEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/admin/sources", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.SourceList{
			Sources: []models.RegulatorySource{{ID: "eba", Name: "European Banking Authority"}},
			Total:   1,
		})
	})
	mux.HandleFunc("GET /api/v1/admin/sources/{id}/discover", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"source": r.PathValue("id"), "new_documents": 3})
	})
	mux.HandleFunc("POST /api/v1/admin/sources/{id}/scrape", func(w http.ResponseWriter, r *http.Request) {
		var req models.ScrapeRequest
		json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusOK, models.ScrapeStatus{Source: req.SourceID, Status: "completed", DocumentsFound: 4})
	})
	mux.HandleFunc("POST /api/v1/admin/scrape/background/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "running", "limit": r.URL.Query().Get("limit")})
	})
	mux.HandleFunc("GET /api/v1/admin/sources/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"source": r.PathValue("id"), "status": "never_scraped"})
	})
	mux.HandleFunc("GET /api/v1/admin/check-updates", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"total_new": 2})
	})
	mux.HandleFunc("GET /api/v1/admin/indexed-stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"total_chunks": 10})
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	sources, err := c.Sources(ctx)
	if err != nil || sources.Total != 1 || sources.Sources[0].ID != "eba" {
		t.Fatalf("Sources: %+v, %v", sources, err)
	}

	disc, err := c.Discover(ctx, "eba")
	if err != nil || !strings.Contains(string(disc), `"new_documents":3`) {
		t.Errorf("Discover: %s, %v", disc, err)
	}

	st, err := c.Scrape(ctx, "ecb", models.ScrapeRequest{})
	if err != nil || st.Source != "ecb" || st.DocumentsFound != 4 {
		t.Errorf("Scrape: %+v, %v", st, err)
	}

	limit := 7
	bg, err := c.ScrapeBackground(ctx, "bis", &limit)
	if err != nil || !strings.Contains(string(bg), `"limit":"7"`) {
		t.Errorf("ScrapeBackground: %s, %v", bg, err)
	}

	status, err := c.ScrapeStatus(ctx, "bis")
	if err != nil || !strings.Contains(string(status), "never_scraped") {
		t.Errorf("ScrapeStatus: %s, %v", status, err)
	}

	if p, err := c.CheckUpdates(ctx); err != nil || !strings.Contains(string(p), "total_new") {
		t.Errorf("CheckUpdates: %s, %v", p, err)
	}
	if p, err := c.IndexedStats(ctx); err != nil || !strings.Contains(string(p), "total_chunks") {
		t.Errorf("IndexedStats: %s, %v", p, err)
	}
}

// ── Errors ──

func TestUpstreamErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		unavailable bool
		detail      string
	}{
		{"server error", http.StatusInternalServerError, `{"detail":"boom"}`, true, ""},
		{"bad gateway", http.StatusBadGateway, "", true, ""},
		{"not found", http.StatusNotFound, `{"detail":"Unknown source: xyz"}`, false, "Unknown source: xyz"},
		{"validation", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"}]}`, false, `[{"msg":"field required"}]`},
		{"plain text", http.StatusBadRequest, "bad input\n", false, "bad input"},
		{"malformed body", http.StatusOK, "{not json", true, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))

			_, err := c.Sources(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrUpstreamUnavailable); got != tc.unavailable {
				t.Errorf("errors.Is(ErrUpstreamUnavailable): got %v, want %v (err=%v)", got, tc.unavailable, err)
			}
			var se *StatusError
			if tc.unavailable {
				if errors.As(err, &se) {
					t.Errorf("unavailable errors must not be StatusError: %v", err)
				}
				return
			}
			if !errors.As(err, &se) {
				t.Fatalf("expected *StatusError, got %T", err)
			}
			if se.StatusCode != tc.status || se.Detail != tc.detail {
				t.Errorf("StatusError: got %d %q, want %d %q", se.StatusCode, se.Detail, tc.status, tc.detail)
			}
		})
	}
}

func TestUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(WithBaseURL(url), WithTimeout(time.Second))
	if _, err := c.Chat(context.Background(), models.ChatRequest{Message: "hi"}); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("Chat: got %v, want ErrUpstreamUnavailable", err)
	}
}

func TestTimeoutIsUnavailable(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}), WithTimeout(50*time.Millisecond))

	if _, err := c.Search(context.Background(), models.SearchRequest{Query: "slow"}); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("Search: got %v, want ErrUpstreamUnavailable", err)
	}
}

func TestUpstreamMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			writeJSON(w, http.StatusOK, Health{Status: "healthy"})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}), WithMetrics(m))

	c.Health(context.Background())
	c.Sources(context.Background())

	if got := testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("health", "ok")); got != 1 {
		t.Errorf("health ok: got %v", got)
	}
	if got := testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("sources", "rejected")); got != 1 {
		t.Errorf("sources rejected: got %v", got)
	}
}

// ── Overview ──

func TestOverview(t *testing.T) {
	tests := []struct {
		name      string
		healthy   bool
		chunks    int
		statsFail bool
		reachable bool
		status    string
	}{
		{"healthy", true, 42, false, true, "healthy"},
		{"empty corpus", true, 0, false, true, "empty"},
		{"stats failing", true, 0, true, true, "error: "},
		{"down", false, 0, false, false, "error: "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				if !tc.healthy {
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				writeJSON(w, http.StatusOK, Health{Status: "healthy"})
			})
			mux.HandleFunc("/api/v1/documents/stats", func(w http.ResponseWriter, r *http.Request) {
				if tc.statsFail {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				writeJSON(w, http.StatusOK, models.DocumentStats{TotalChunks: tc.chunks})
			})
			mux.HandleFunc("/api/v1/documents/topics", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, models.TopicList{Topics: []string{"LCR"}})
			})
			c := newTestClient(t, mux)

			ov := c.Overview(context.Background())
			if ov.Reachable != tc.reachable {
				t.Errorf("Reachable: got %v, want %v", ov.Reachable, tc.reachable)
			}
			if !strings.HasPrefix(ov.RAGStatus, tc.status) {
				t.Errorf("RAGStatus: got %q, want prefix %q", ov.RAGStatus, tc.status)
			}
			if ov.CheckedAt.IsZero() {
				t.Error("CheckedAt not set")
			}
			if tc.name == "healthy" && (ov.Stats == nil || len(ov.Topics) != 1) {
				t.Errorf("healthy overview should carry stats and topics: %+v", ov)
			}
		})
	}
}
