// Package transport exposes the feed over HTTP/JSON.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/claradash/marketfeed/internal/observ"
	"github.com/claradash/marketfeed/internal/quote"
	"github.com/claradash/marketfeed/internal/search"
)

// Feed is what the handlers need from the orchestrator.
type Feed interface {
	Snapshot() quote.Snapshot
	Loading() bool
	Refresh(ctx context.Context) quote.Snapshot
	History(ctx context.Context, symbol string, days int) ([]quote.Bar, string)
}

// SourceStatus describes one upstream in the GET /v1/sources payload.
type SourceStatus struct {
	Name          string `json:"name"`
	Configured    bool   `json:"configured"`
	Active        bool   `json:"active"`
	RequestsToday int    `json:"requests_today,omitempty"`
	DailyLimit    int    `json:"daily_limit,omitempty"`
	WithinLimit   bool   `json:"within_limit,omitempty"`
}

// Server wires the feed, search engine and source status into a mux.
type Server struct {
	feed    Feed
	engine  *search.Engine
	sources func() []SourceStatus
}

func NewServer(feed Feed, engine *search.Engine, sources func() []SourceStatus) *Server {
	return &Server{feed: feed, engine: engine, sources: sources}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/quotes", s.handleQuotes)
	mux.HandleFunc("GET /v1/history/{symbol}", s.handleHistory)
	mux.HandleFunc("GET /v1/search", s.handleSearch)
	mux.HandleFunc("GET /v1/sources", s.handleSources)
	mux.HandleFunc("POST /v1/refresh", s.handleRefresh)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", observ.Handler())
	return logRequests(mux)
}

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	snap := s.feed.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"stocks":       snap.Stocks,
		"indices":      snap.Indices,
		"data_source":  snap.DataSource,
		"simulated":    snap.Simulated,
		"warning":      snap.Warning,
		"refreshed_at": snap.RefreshedAt,
		"loading":      s.feed.Loading(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "days must be an integer")
			return
		}
		days = n
	}
	bars, source := s.feed.History(r.Context(), symbol, days)
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol": symbol,
		"source": source,
		"bars":   bars,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}
	hits, err := s.engine.Search(q, limit)
	if err != nil {
		observ.Log("search_failed", map[string]any{"q": q, "error": err.Error()})
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if hits == nil {
		hits = []search.Hit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": q, "results": hits})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sources": s.sources()})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap := s.feed.Refresh(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"data_source":  snap.DataSource,
		"simulated":    snap.Simulated,
		"stocks":       len(snap.Stocks),
		"indices":      len(snap.Indices),
		"refreshed_at": snap.RefreshedAt,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	snap := s.feed.Snapshot()
	status := "ok"
	if len(snap.Stocks) == 0 && len(snap.Indices) == 0 {
		status = "starting"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      status,
		"data_source": snap.DataSource,
		"simulated":   snap.Simulated,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		observ.Log("response_encode_failed", map[string]any{"error": err.Error()})
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		observ.Log("http_request", map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": rec.code,
			"ms":     time.Since(start).Milliseconds(),
		})
		observ.RecordDuration("http_request", time.Since(start), map[string]string{
			"method": r.Method,
			"status": strconv.Itoa(rec.code),
		})
	})
}
