// Package api provides the HTTP REST API server for BRIS.
//
// It serves the regulatory calculators in-process, forwards chat, document
// and admin requests to the knowledge backend, and pushes calculation events
// over WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/seenimoa/bris/internal/calculator"
	"github.com/seenimoa/bris/internal/config"
	"github.com/seenimoa/bris/internal/infra"
	"github.com/seenimoa/bris/internal/knowledge"
	"github.com/seenimoa/bris/internal/observability"
	"github.com/seenimoa/bris/pkg/models"
)

// Version is reported by / and /health.
var Version = "1.0.0"

// Calculator is the set of regulatory engines served under /api/v1/calculator.
type Calculator interface {
	Params() calculator.Params
	Securitization(models.SecuritizationInput) (*models.SecuritizationResult, error)
	CompareSecuritization(models.SecuritizationInput) (*models.SecuritizationComparison, error)
	Leverage(models.LeverageInput) (*models.LeverageResult, error)
	LCR(models.LCRInput) (*models.LCRResult, error)
	NSFR(models.NSFRInput) (*models.NSFRResult, error)
	MREL(models.MRELInput) (*models.MRELResult, error)
	IRRBB(models.IRRBBInput) (*models.IRRBBResult, error)
	RWA(models.RWAInput) (*models.RWAResult, error)
	CVA(models.CVAInput) (*models.CVAResult, error)
	LargeExposures(models.LargeExposuresInput) (*models.LargeExposuresResult, error)
}

// KnowledgeBase is the external backend behind the chat, document and admin routes.
type KnowledgeBase interface {
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
	History(ctx context.Context, sessionID string) (*models.ChatHistory, error)
	ClearHistory(ctx context.Context, sessionID string) error

	Stats(ctx context.Context) (*models.DocumentStats, error)
	Topics(ctx context.Context) (*models.TopicList, error)
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error)
	ListDocuments(ctx context.Context, q models.DocumentQuery) (*models.DocumentList, error)

	Sources(ctx context.Context) (*models.SourceList, error)
	Discover(ctx context.Context, sourceID string) (models.AdminPayload, error)
	Scrape(ctx context.Context, sourceID string, req models.ScrapeRequest) (*models.ScrapeStatus, error)
	ScrapeBackground(ctx context.Context, sourceID string, limit *int) (models.AdminPayload, error)
	ScrapeStatus(ctx context.Context, sourceID string) (models.AdminPayload, error)
	CheckUpdates(ctx context.Context) (models.AdminPayload, error)
	IndexedStats(ctx context.Context) (models.AdminPayload, error)
	Reindex(ctx context.Context, limit *int) (models.AdminPayload, error)

	Overview(ctx context.Context) *models.BackendOverview
	PruneCache() int
}

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	calc     Calculator
	kb       KnowledgeBase
	wsHub    *WSHub
	log      zerolog.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics
	health   *observability.HealthChecker
	limiter  *infra.ClientLimiter
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, log zerolog.Logger) (*Server, error) {
	if cfg.Backend.URL == "" {
		return nil, fmt.Errorf("backend.url is required")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := observability.NewMetrics(reg)

	calc := calculator.New(cfg.Regulation.Params())
	kb := knowledge.New(
		knowledge.WithBaseURL(cfg.Backend.URL),
		knowledge.WithAPIKey(cfg.Backend.APIKey),
		knowledge.WithTimeout(time.Duration(cfg.Backend.TimeoutSec)*time.Second),
		knowledge.WithCacheTTL(time.Duration(cfg.Backend.CacheTTL)*time.Second),
		knowledge.WithMetrics(m),
	)

	return newServer(cfg, calc, kb, log, reg, m), nil
}

func newServer(cfg *config.Config, calc Calculator, kb KnowledgeBase, log zerolog.Logger, reg *prometheus.Registry, m *observability.Metrics) *Server {
	srv := &Server{
		cfg:      cfg,
		calc:     calc,
		kb:       kb,
		wsHub:    NewWSHub(),
		log:      log,
		registry: reg,
		metrics:  m,
		health:   observability.NewHealthChecker(),
		limiter:  infra.NewClientLimiter(cfg.API.RateLimitPerMinute),
	}
	srv.wsHub.metrics = m
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.requestTimeout() + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start WebSocket hub
	go s.wsHub.Run()
	go s.pruneLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.health.SetReady(true)
	s.log.Info().Str("addr", addr).Str("backend", s.cfg.Backend.URL).Msg("BRIS API listening")

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.health.SetReady(false)
	s.log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(shutdownCtx)
}

// pruneLoop drops rate-limit buckets of clients idle for ten minutes and
// expired knowledge cache entries.
func (s *Server) pruneLoop(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.prune()
		}
	}
}

func (s *Server) prune() {
	buckets := s.limiter.Prune(10 * time.Minute)
	entries := s.kb.PruneCache()
	if buckets+entries > 0 {
		s.log.Debug().Int("buckets", buckets).Int("cache_entries", entries).Msg("pruned idle state")
	}
}

func (s *Server) requestTimeout() time.Duration {
	if s.cfg.API.RequestTimeoutSec <= 0 {
		return 120 * time.Second
	}
	return time.Duration(s.cfg.API.RequestTimeoutSec) * time.Second
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/health/ready", s.handleReady)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket is long-lived; keep it outside the request timeout.
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.requestTimeout()))

			r.Route("/calculator", func(r chi.Router) {
				r.Get("/parameters", s.handleParameters)
				r.Post("/securitization", s.handleSecuritization)
				r.Post("/securitization/compare", s.handleSecuritizationCompare)
				r.Post("/leverage-ratio", s.handleLeverage)
				r.Post("/lcr", s.handleLCR)
				r.Post("/nsfr", s.handleNSFR)
				r.Post("/mrel", s.handleMREL)
				r.Post("/irrbb", s.handleIRRBB)
				r.Post("/rwa", s.handleRWA)
				r.Post("/cva", s.handleCVA)
				r.Post("/large-exposures", s.handleLargeExposures)
			})

			// Chat
			r.With(s.rateLimit).Post("/chat", s.handleChat)
			r.Get("/chat/history/{sessionID}", s.handleChatHistory)
			r.Delete("/chat/history/{sessionID}", s.handleClearHistory)

			// Documents
			r.Get("/documents/stats", s.handleDocumentStats)
			r.Get("/documents/topics", s.handleDocumentTopics)
			r.Get("/documents/list", s.handleListDocuments)
			r.Post("/documents/search", s.handleSearch)

			// Admin
			r.Route("/admin", func(r chi.Router) {
				r.Use(s.adminAuth)
				r.Get("/sources", s.handleSources)
				r.Get("/sources/{sourceID}/discover", s.handleDiscover)
				r.Post("/sources/{sourceID}/scrape", s.handleScrape)
				r.Get("/sources/{sourceID}/status", s.handleScrapeStatus)
				r.Post("/scrape/background/{sourceID}", s.handleScrapeBackground)
				r.Get("/check-updates", s.handleCheckUpdates)
				r.Get("/indexed-stats", s.handleIndexedStats)
				r.Post("/reindex", s.handleReindex)
				r.Get("/keys", s.handleGetConfigKeys)
			})
		})
	})

	return r
}

// corsOrigins merges the configured origins with the frontend URL.
func (s *Server) corsOrigins() []string {
	origins := append([]string(nil), s.cfg.API.CORSOrigins...)
	if s.cfg.Web.URL != "" {
		found := false
		for _, o := range origins {
			if strings.EqualFold(o, s.cfg.Web.URL) {
				found = true
				break
			}
		}
		if !found {
			origins = append(origins, s.cfg.Web.URL)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}

// ── Operational handlers ──

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"name":        "BRIS API",
			"description": "Banking Regulation Intelligence System",
			"version":     Version,
			"endpoints": map[string]string{
				"calculator": "/api/v1/calculator",
				"chat":       "/api/v1/chat",
				"documents":  "/api/v1/documents",
				"admin":      "/api/v1/admin",
				"health":     "/health",
				"metrics":    "/metrics",
				"websocket":  "/api/v1/ws",
			},
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ov := s.kb.Overview(r.Context())
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   Version,
			"uptime":    s.health.Uptime().String(),
			"services": map[string]string{
				"api": "healthy",
				"rag": ov.RAGStatus,
			},
			"backend": ov,
		},
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ready := s.health.IsReady()
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, APIResponse{
		Success: ready,
		Data: map[string]interface{}{
			"ready":     ready,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// ════════════════════════════════════════════════════════════════════
// Response envelope
// ════════════════════════════════════════════════════════════════════

// Error codes carried in APIResponse.Code.
const (
	CodeInvalidRange        = "invalid_range"
	CodeDivisionByZero      = "division_by_zero"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeUpstreamRejected    = "upstream_rejected"
	CodeBadRequest          = "bad_request"
	CodeRateLimited         = "rate_limited"
	CodeUnauthorized        = "unauthorized"
	CodeInternal            = "internal_error"
)

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
		Code:    code,
	})
}

// classify maps an engine or upstream error to an HTTP status and code.
func classify(err error) (int, string) {
	var se *knowledge.StatusError
	switch {
	case errors.Is(err, calculator.ErrInvalidRange):
		return http.StatusBadRequest, CodeInvalidRange
	case errors.Is(err, calculator.ErrDivisionByZero):
		return http.StatusUnprocessableEntity, CodeDivisionByZero
	case errors.As(err, &se):
		return se.StatusCode, CodeUpstreamRejected
	case errors.Is(err, knowledge.ErrUpstreamUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, CodeUpstreamUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// writeFailure writes err with its mapped status and logs it: client
// mistakes at warn, upstream and internal failures at error.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	ev := s.log.Warn()
	if status >= 500 {
		ev = s.log.Error()
	}
	ev.Err(err).
		Str("code", code).
		Str("path", r.URL.Path).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("request failed")
	writeError(w, status, code, err.Error())
}

const maxBodyBytes = 1 << 20

// decodeBody decodes a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
