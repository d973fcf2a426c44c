// Package knowledge is the HTTP client for the external regulatory knowledge
// backend (chat, document search and corpus administration). Retrieval and
// generation happen in the backend; this package only forwards requests and
// classifies failures.
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/bris/internal/infra"
	"github.com/seenimoa/bris/internal/observability"
	"github.com/seenimoa/bris/pkg/models"
)

const (
	defaultBaseURL   = "http://localhost:8001"
	defaultTimeout   = 60 * time.Second
	defaultCacheTTL  = 5 * time.Minute
	defaultLanguage  = "es"
	defaultTopK      = 5
	defaultListLimit = 50
)

// Client talks to the knowledge backend.
type Client struct {
	baseURL  string
	apiKey   string
	timeout  time.Duration
	cacheTTL time.Duration
	client   *http.Client
	metrics  *observability.Metrics

	stats  *infra.Cache[*models.DocumentStats]
	topics *infra.Cache[*models.TopicList]
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the backend root URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithAPIKey sends key as a bearer token on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithTimeout bounds each request. Ignored when WithHTTPClient is used.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithCacheTTL sets how long stats and topics are cached. Zero disables caching.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Client) { c.cacheTTL = d }
}

// WithMetrics records upstream calls on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a knowledge backend client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:  defaultBaseURL,
		timeout:  defaultTimeout,
		cacheTTL: defaultCacheTTL,
	}
	for _, o := range opts {
		o(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: c.timeout}
	}
	c.stats = infra.NewCache[*models.DocumentStats](c.cacheTTL)
	c.topics = infra.NewCache[*models.TopicList](c.cacheTTL)
	return c
}

// BaseURL returns the configured backend URL.
func (c *Client) BaseURL() string { return c.baseURL }

// ── Chat ──

// Chat asks the regulatory assistant a question. A session id is minted when
// the request has none, and the language defaults to Spanish.
func (c *Client) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if req.Language == "" {
		req.Language = defaultLanguage
	}

	var resp models.ChatResponse
	if err := c.do(ctx, "chat", http.MethodPost, "/api/v1/chat/", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.SessionID == "" {
		resp.SessionID = req.SessionID
	}
	return &resp, nil
}

// History returns the stored conversation for a session.
func (c *Client) History(ctx context.Context, sessionID string) (*models.ChatHistory, error) {
	var h models.ChatHistory
	if err := c.do(ctx, "chat_history", http.MethodGet, "/api/v1/chat/history/"+url.PathEscape(sessionID), nil, nil, &h); err != nil {
		return nil, err
	}
	if h.History == nil {
		h.History = []models.ChatMessage{}
	}
	return &h, nil
}

// ClearHistory drops the stored conversation for a session.
func (c *Client) ClearHistory(ctx context.Context, sessionID string) error {
	return c.do(ctx, "chat_clear", http.MethodDelete, "/api/v1/chat/history/"+url.PathEscape(sessionID), nil, nil, nil)
}

// ── Documents ──

// Stats returns corpus statistics, cached for the configured TTL.
func (c *Client) Stats(ctx context.Context) (*models.DocumentStats, error) {
	return c.stats.GetOrLoad(ctx, "stats", func(ctx context.Context) (*models.DocumentStats, error) {
		var s models.DocumentStats
		if err := c.do(ctx, "stats", http.MethodGet, "/api/v1/documents/stats", nil, nil, &s); err != nil {
			return nil, err
		}
		return &s, nil
	})
}

// Topics returns the regulatory topics with chunk counts, cached for the configured TTL.
func (c *Client) Topics(ctx context.Context) (*models.TopicList, error) {
	return c.topics.GetOrLoad(ctx, "topics", func(ctx context.Context) (*models.TopicList, error) {
		var t models.TopicList
		if err := c.do(ctx, "topics", http.MethodGet, "/api/v1/documents/topics", nil, nil, &t); err != nil {
			return nil, err
		}
		return &t, nil
	})
}

// Search runs a free-text document search.
func (c *Client) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error) {
	if req.TopK == 0 {
		req.TopK = defaultTopK
	}
	var r models.SearchResult
	if err := c.do(ctx, "search", http.MethodPost, "/api/v1/documents/search", nil, req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListDocuments pages through indexed documents.
func (c *Client) ListDocuments(ctx context.Context, q models.DocumentQuery) (*models.DocumentList, error) {
	if q.Limit <= 0 {
		q.Limit = defaultListLimit
	}
	params := url.Values{}
	if q.Topic != "" {
		params.Set("topic", q.Topic)
	}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))

	var l models.DocumentList
	if err := c.do(ctx, "documents", http.MethodGet, "/api/v1/documents/list", params, nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// ── Admin ──

// Sources lists the regulatory publishers the backend can scrape.
func (c *Client) Sources(ctx context.Context) (*models.SourceList, error) {
	var l models.SourceList
	if err := c.do(ctx, "sources", http.MethodGet, "/api/v1/admin/sources", nil, nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Discover previews new documents available from a source.
func (c *Client) Discover(ctx context.Context, sourceID string) (models.AdminPayload, error) {
	return c.raw(ctx, "discover", http.MethodGet, "/api/v1/admin/sources/"+url.PathEscape(sourceID)+"/discover", nil, nil)
}

// Scrape downloads (and optionally indexes) documents from a source and
// waits for the result.
func (c *Client) Scrape(ctx context.Context, sourceID string, req models.ScrapeRequest) (*models.ScrapeStatus, error) {
	req.SourceID = sourceID
	var s models.ScrapeStatus
	if err := c.do(ctx, "scrape", http.MethodPost, "/api/v1/admin/sources/"+url.PathEscape(sourceID)+"/scrape", nil, req, &s); err != nil {
		return nil, err
	}
	if req.IndexImmediately {
		c.invalidate()
	}
	return &s, nil
}

// ScrapeBackground starts a scrape and returns the backend acknowledgement.
func (c *Client) ScrapeBackground(ctx context.Context, sourceID string, limit *int) (models.AdminPayload, error) {
	return c.raw(ctx, "scrape_background", http.MethodPost, "/api/v1/admin/scrape/background/"+url.PathEscape(sourceID), limitParam(limit), nil)
}

// ScrapeStatus reports the last scrape of a source.
func (c *Client) ScrapeStatus(ctx context.Context, sourceID string) (models.AdminPayload, error) {
	return c.raw(ctx, "scrape_status", http.MethodGet, "/api/v1/admin/sources/"+url.PathEscape(sourceID)+"/status", nil, nil)
}

// CheckUpdates scans all sources for new documents without downloading.
func (c *Client) CheckUpdates(ctx context.Context) (models.AdminPayload, error) {
	return c.raw(ctx, "check_updates", http.MethodGet, "/api/v1/admin/check-updates", nil, nil)
}

// IndexedStats returns indexed document counts by authority and topic.
func (c *Client) IndexedStats(ctx context.Context) (models.AdminPayload, error) {
	return c.raw(ctx, "indexed_stats", http.MethodGet, "/api/v1/admin/indexed-stats", nil, nil)
}

// Reindex asks the backend to rebuild its index. Cached stats are dropped.
func (c *Client) Reindex(ctx context.Context, limit *int) (models.AdminPayload, error) {
	p, err := c.raw(ctx, "reindex", http.MethodPost, "/api/v1/admin/reindex", limitParam(limit), nil)
	if err != nil {
		return nil, err
	}
	c.invalidate()
	return p, nil
}

// ── Health ──

// Health is the backend's own health report.
type Health struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
	Version  string            `json:"version,omitempty"`
}

// Health calls the backend health endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, "health", http.MethodGet, "/health", nil, nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Overview checks health, stats and topics concurrently. It never fails:
// an unreachable backend is reported in the result.
func (c *Client) Overview(ctx context.Context) *models.BackendOverview {
	ov := &models.BackendOverview{CheckedAt: time.Now().UTC()}

	var (
		mu       sync.Mutex
		statsErr error
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		_, err := c.Health(gctx)
		return err
	})

	g.Go(func() error {
		s, err := c.Stats(gctx)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			statsErr = err
			return nil // non-fatal
		}
		ov.Stats = s
		return nil
	})

	g.Go(func() error {
		t, err := c.Topics(gctx)
		if err != nil {
			return nil
		}
		mu.Lock()
		ov.Topics = t.Topics
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		ov.RAGStatus = "error: " + err.Error()
		ov.Stats, ov.Topics = nil, nil
		return ov
	}

	ov.Reachable = true
	switch {
	case statsErr != nil:
		ov.RAGStatus = "error: " + statsErr.Error()
	case ov.Stats.TotalChunks == 0:
		ov.RAGStatus = "empty"
	default:
		ov.RAGStatus = "healthy"
	}
	return ov
}

// PruneCache drops expired stats and topics entries and returns how many
// were removed.
func (c *Client) PruneCache() int {
	return c.stats.Cleanup() + c.topics.Cleanup()
}

// ── Internal ──

func (c *Client) invalidate() {
	c.stats.Flush()
	c.topics.Flush()
}

func (c *Client) raw(ctx context.Context, op, method, path string, query url.Values, body any) (models.AdminPayload, error) {
	var p json.RawMessage
	if err := c.do(ctx, op, method, path, query, body, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// do sends one request and decodes the JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) (err error) {
	start := time.Now()
	defer func() { c.metrics.ObserveUpstream(op, outcome(err), time.Since(start)) }()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("knowledge: marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("knowledge: build %s request: %w", op, err)
	}
	c.setHeaders(req, body != nil)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrUpstreamUnavailable, op, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if id := middleware.GetReqID(req.Context()); id != "" {
		req.Header.Set(middleware.RequestIDHeader, id)
	}
}

func limitParam(limit *int) url.Values {
	if limit == nil {
		return nil
	}
	return url.Values{"limit": {strconv.Itoa(*limit)}}
}
