package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seenimoa/bris/internal/calculator"
	"github.com/seenimoa/bris/pkg/models"
)

// ── Chat ──

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	resp, err := s.kb.Chat(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeOK(w, resp)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	h, err := s.kb.History(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeOK(w, h)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.kb.ClearHistory(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeOK(w, map[string]string{"status": "cleared"})
}

// ── Documents ──

func (s *Server) handleDocumentStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.kb.Stats(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeOK(w, st)
}

func (s *Server) handleDocumentTopics(w http.ResponseWriter, r *http.Request) {
	t, err := s.kb.Topics(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeOK(w, t)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	q := models.DocumentQuery{Topic: r.URL.Query().Get("topic")}
	var err error
	if q.Limit, err = intParam(r, "limit", 50); err != nil || q.Limit < 1 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "limit must be a positive integer")
		return
	}
	if q.Offset, err = intParam(r, "offset", 0); err != nil || q.Offset < 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "offset must be a non-negative integer")
		return
	}

	l, err := s.kb.ListDocuments(r.Context(), q)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeOK(w, l)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req := models.SearchRequest{TopK: 5}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	res, err := s.kb.Search(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeOK(w, res)
}

// ── Admin ──

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	l, err := s.kb.Sources(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeOK(w, l)
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	s.writePayload(w, r)(s.kb.Discover(r.Context(), chi.URLParam(r, "sourceID")))
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req models.ScrapeRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
			return
		}
	}

	st, err := s.kb.Scrape(r.Context(), chi.URLParam(r, "sourceID"), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeOK(w, st)
}

func (s *Server) handleScrapeBackground(w http.ResponseWriter, r *http.Request) {
	limit, ok := optionalLimit(w, r)
	if !ok {
		return
	}
	s.writePayload(w, r)(s.kb.ScrapeBackground(r.Context(), chi.URLParam(r, "sourceID"), limit))
}

func (s *Server) handleScrapeStatus(w http.ResponseWriter, r *http.Request) {
	s.writePayload(w, r)(s.kb.ScrapeStatus(r.Context(), chi.URLParam(r, "sourceID")))
}

func (s *Server) handleCheckUpdates(w http.ResponseWriter, r *http.Request) {
	s.writePayload(w, r)(s.kb.CheckUpdates(r.Context()))
}

func (s *Server) handleIndexedStats(w http.ResponseWriter, r *http.Request) {
	s.writePayload(w, r)(s.kb.IndexedStats(r.Context()))
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	limit, ok := optionalLimit(w, r)
	if !ok {
		return
	}
	s.writePayload(w, r)(s.kb.Reindex(r.Context(), limit))
}

// writePayload returns a sink for (payload, error) pairs from admin calls.
func (s *Server) writePayload(w http.ResponseWriter, r *http.Request) func(models.AdminPayload, error) {
	return func(p models.AdminPayload, err error) {
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		writeOK(w, p)
	}
}

// ── Helpers ──

// validateRequest checks the validate tags of a gateway request and reports
// the first failing field.
func validateRequest(v interface{}) error {
	err := calculator.Validate(v)
	var re *calculator.RangeError
	if errors.As(err, &re) {
		return fmt.Errorf("%s %s", re.Field, re.Reason)
	}
	return err
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func optionalLimit(w http.ResponseWriter, r *http.Request) (*int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "limit must be a positive integer")
		return nil, false
	}
	return &n, true
}
