// Package api implements the HTTP search API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nugget/searchhub/internal/buildinfo"
	"github.com/nugget/searchhub/internal/quota"
	"github.com/nugget/searchhub/internal/search"
	"github.com/nugget/searchhub/internal/settings"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response,
// which is not actionable but worth tracking for debugging.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	address      string
	port         int
	orchestrator *search.Orchestrator
	ledger       *quota.Ledger
	runtime      *settings.Runtime
	braveLimit   int
	logger       *slog.Logger
	server       *http.Server
}

// NewServer creates a new API server. The ledger may be nil when no
// quota accounting is configured; a nil runtime makes the settings
// endpoints operate on an in-memory view.
func NewServer(address string, port int, orch *search.Orchestrator, ledger *quota.Ledger, runtime *settings.Runtime, braveLimit int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if runtime == nil {
		runtime = settings.NewRuntime(nil, logger)
	}
	return &Server{
		address:      address,
		port:         port,
		orchestrator: orch,
		ledger:       ledger,
		runtime:      runtime,
		braveLimit:   braveLimit,
		logger:       logger.With("component", "api"),
	}
}

// Start begins serving HTTP requests. It blocks until the listener
// fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // enrichment fetches can be slow
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Handler builds the route table. Exposed separately so tests can
// drive the mux without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/quota", s.handleQuota)
	mux.HandleFunc("GET /api/settings", s.handleSettingsGet)
	mux.HandleFunc("POST /api/settings", s.handleSettingsSet)
	mux.HandleFunc("POST /api/cache/clear", s.handleCacheClear)
	mux.HandleFunc("GET /api/version", s.handleVersion)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /", s.handleRoot)

	return s.withLogging(mux)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"name":    "searchhub",
		"version": buildinfo.Version,
		"status":  "ok",
	}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
}

// SearchRequest is the request body for POST /api/search. Feature
// fields are pointers so an omitted field falls back to the server's
// runtime default instead of silently meaning false.
type SearchRequest struct {
	Query            string           `json:"query"`
	MaxResults       *int             `json:"max_results"`
	IncludeDomains   []string         `json:"include_domains"`
	ExcludeDomains   []string         `json:"exclude_domains"`
	TimeRange        search.TimeRange `json:"time_range"`
	OptimizeQuery    *bool            `json:"optimize_query"`
	FetchFullContent *bool            `json:"fetch_full_content"`
	MultiQuery       *bool            `json:"multi_query"`
	ReRank           *bool            `json:"re_rank"`
	MaxContentLength *int             `json:"max_content_length"`
	ExpertContext    string           `json:"expert_context"`
	Language         string           `json:"language"`
}

// options resolves the request against the runtime defaults.
func (req *SearchRequest) options(rt *settings.Runtime) search.Options {
	opts := search.Options{
		MaxResults:       rt.Int("max_results", 0),
		IncludeDomains:   req.IncludeDomains,
		ExcludeDomains:   req.ExcludeDomains,
		TimeRange:        req.TimeRange,
		OptimizeQuery:    rt.Bool("optimize_query", false),
		FetchFullContent: rt.Bool("fetch_full_content", false),
		MultiQuery:       rt.Bool("multi_query", false),
		ReRank:           rt.Bool("re_rank", true),
		MaxContentLength: rt.Int("max_content_length", 0),
		ExpertContext:    req.ExpertContext,
		Language:         req.Language,
	}
	if req.MaxResults != nil {
		opts.MaxResults = *req.MaxResults
	}
	if req.OptimizeQuery != nil {
		opts.OptimizeQuery = *req.OptimizeQuery
	}
	if req.FetchFullContent != nil {
		opts.FetchFullContent = *req.FetchFullContent
	}
	if req.MultiQuery != nil {
		opts.MultiQuery = *req.MultiQuery
	}
	if req.ReRank != nil {
		opts.ReRank = *req.ReRank
	}
	if req.MaxContentLength != nil {
		opts.MaxContentLength = *req.MaxContentLength
	}
	return opts
}

// SearchResponse is the response body for POST /api/search.
type SearchResponse struct {
	Query   string          `json:"query"`
	Count   int             `json:"count"`
	Results []search.Result `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.errorResponse(w, http.StatusBadRequest, "query is required")
		return
	}

	results := s.orchestrator.Search(r.Context(), req.Query, req.options(s.runtime))
	if results == nil {
		results = []search.Result{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, SearchResponse{
		Query:   req.Query,
		Count:   len(results),
		Results: results,
	}, s.logger)
}

// QuotaResponse is the response body for GET /api/quota.
type QuotaResponse struct {
	Month     string            `json:"month"`
	Limit     int               `json:"limit"`
	Used      int               `json:"used"`
	Remaining int               `json:"remaining"`
	Counters  map[string]string `json:"counters,omitempty"`
}

func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		s.errorResponse(w, http.StatusNotFound, "quota accounting not configured")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, QuotaResponse{
		Month:     s.ledger.Month(),
		Limit:     s.braveLimit,
		Used:      s.ledger.Count("brave"),
		Remaining: s.ledger.Remaining("brave", s.braveLimit),
		Counters:  s.ledger.Snapshot(),
	}, s.logger)
}

// redactedSettings returns the runtime overrides with the API key
// masked so credentials never echo back to clients.
func (s *Server) redactedSettings() map[string]string {
	all := s.runtime.All()
	if _, ok := all["brave_api_key"]; ok {
		all["brave_api_key"] = "(set)"
	}
	return all
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, s.redactedSettings(), s.logger)
}

func (s *Server) handleSettingsSet(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(updates) == 0 {
		s.errorResponse(w, http.StatusBadRequest, "no settings given")
		return
	}

	for key, value := range updates {
		if err := s.runtime.Set(key, value); err != nil {
			s.errorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, s.redactedSettings(), s.logger)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.orchestrator.ClearCaches()
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "cleared"}, s.logger)
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    code,
		},
	}, s.logger)
}
