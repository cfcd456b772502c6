package readapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// RefreshResult is the outcome of one synchronous pipeline run triggered by
// POST /news/refresh.
type RefreshResult struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	FetchedDates []string `json:"fetchedDates"`
}

// Refresher runs one synchronous pipeline pass; POST /news/refresh wires it
// to the orchestrator without this package importing it directly.
type Refresher interface {
	Trigger() RefreshResult
}

// Server is the chi-routed HTTP surface over ReadAPI: one middleware
// stack, one Route tree per resource group.
type Server struct {
	router    *chi.Mux
	api       *ReadAPI
	refresher Refresher
	log       zerolog.Logger
	http      *http.Server
}

// NewServer builds a Server listening on addr (":8080"-style).
func NewServer(addr string, api *ReadAPI, refresher Refresher, devMode bool, log zerolog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		api:       api,
		refresher: refresher,
		log:       log.With().Str("component", "readapi_server").Logger(),
	}
	s.setupMiddleware(devMode)
	s.setupRoutes()
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(30 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/news", s.handleNews)
	s.router.Get("/news/{date}", s.handleNewsForDate)
	s.router.Post("/news/refresh", s.handleNewsRefresh)
	s.router.Route("/market-terminal", func(r chi.Router) {
		r.Get("/", s.handleMarketTerminal)
		r.Get("/latest", s.handleMarketTerminalLatest)
		r.Get("/sentiment", s.handleEntitySentiment)
		r.Get("/history", s.handleMarketHistory)
	})
}

func (s *Server) Start() error { return s.http.ListenAndServe() }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"resource": SampleProcessStats(),
	})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	days, visible, err := s.api.News()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"news": days, "visible": visible})
}

func (s *Server) handleNewsForDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	briefing, clusters, err := s.api.NewsForDate(date)
	if err != nil {
		writeError(w, err)
		return
	}
	if briefing == nil {
		http.Error(w, "no briefing for date", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"briefing": briefing, "clusters": clusters})
}

// handleNewsRefresh triggers one synchronous pipeline run. It blocks for
// the duration of the run and returns {success, message, fetchedDates}
// either way: a fatal pipeline error comes back as success:false with a
// message, never a 500.
func (s *Server) handleNewsRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		http.Error(w, "refresh not available", http.StatusServiceUnavailable)
		return
	}
	result := s.refresher.Trigger()
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMarketTerminal(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", maxTerminalDays)
	history, err := s.api.MarketTerminal(days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleMarketTerminalLatest(w http.ResponseWriter, r *http.Request) {
	point, err := s.api.MarketTerminalLatest()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, point)
}

func (s *Server) handleEntitySentiment(w http.ResponseWriter, r *http.Request) {
	entity := r.URL.Query().Get("entity")
	days := queryInt(r, "days", maxSentimentDays)
	history, err := s.api.EntitySentiment(entity, days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleMarketHistory(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	days := queryInt(r, "days", maxHistoryDays)
	history, err := s.api.MarketHistory(symbol, days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
