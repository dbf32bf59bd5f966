package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tickermark/internal/alerts"
	"tickermark/internal/detect"
	"tickermark/internal/doc"
	"tickermark/internal/domain"
	"tickermark/internal/news"
	"tickermark/internal/page"
	"tickermark/internal/store"
	"tickermark/internal/watchlist"
)

// maxAnnotateBytes bounds the body of POST /api/annotate.
const maxAnnotateBytes = 4 << 20

// Options wires the server's collaborators. Watchlist and News may be nil.
type Options struct {
	Settings  store.SettingsStore
	Watchlist watchlist.Client
	Alerts    *alerts.Requests
	News      store.NewsStore
	Policy    *detect.Policy
	Layout    doc.Layout
	Log       *slog.Logger
}

// Server serves the tickermark HTTP API.
type Server struct {
	settings  store.SettingsStore
	watchlist watchlist.Client
	alerts    *alerts.Requests
	news      store.NewsStore
	policy    *detect.Policy
	layout    doc.Layout
	log       *slog.Logger
	now       func() time.Time
}

// NewServer creates a new API server.
func NewServer(opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	policy := opts.Policy
	if policy == nil {
		policy = detect.DefaultPolicy()
	}
	return &Server{
		settings:  opts.Settings,
		watchlist: opts.Watchlist,
		alerts:    opts.Alerts,
		news:      opts.News,
		policy:    policy,
		layout:    opts.Layout,
		log:       log,
		now:       time.Now,
	}
}

// Handler returns the router with recovery and CORS middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	r.Post("/api/annotate", s.handleAnnotate)

	r.Get("/api/settings", s.handleGetSettings)
	r.Put("/api/settings", s.handlePutSettings)

	r.Get("/api/watchlist", s.handleGetWatchlist)
	r.Get("/api/watchlist/{symbol}", s.handleMembership)
	r.Put("/api/watchlist/{symbol}", s.handleAddWatchlist)
	// DELETE takes the entry ID reported by the membership lookup.
	r.Delete("/api/watchlist/{symbol}", s.handleRemoveWatchlist)

	r.Get("/api/alerts", s.handleListAlerts)
	r.Post("/api/alerts", s.handleCreateAlert)
	r.Get("/api/alerts/events", s.handleAlertEvents)
	r.Post("/api/alerts/{id}/ack", s.handleAckAlert)

	r.Get("/api/news", s.handleNewsDates)
	r.Get("/api/news/{symbol}", s.handleNews)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// ---------------------------------------------------------------------------
// Annotation
// ---------------------------------------------------------------------------

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAnnotateBytes)

	var req AnnotateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := page.AnnotateString(req.HTML, page.AnnotateOptions{
		Policy:      s.policy,
		Layout:      s.layout,
		NoHighlight: req.NoHighlight,
		Log:         s.log,
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, AnnotateResponse(res))
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeJSON(w, domain.DefaultSettings())
		return
	}
	st, err := s.settings.GetSettings(r.Context())
	if err != nil {
		s.log.Warn("reading settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read settings")
		return
	}
	writeJSON(w, st)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusServiceUnavailable, "settings store not configured")
		return
	}
	var st domain.Settings
	if err := decodeJSON(r, &st); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.settings.SaveSettings(r.Context(), st); err != nil {
		s.log.Warn("saving settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, st)
}

// ---------------------------------------------------------------------------
// Watchlist
// ---------------------------------------------------------------------------

func (s *Server) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	if s.watchlist == nil {
		writeJSON(w, WatchlistResponse{Symbols: []string{}})
		return
	}
	symbols, err := s.watchlist.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get watchlist")
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	writeJSON(w, WatchlistResponse{Symbols: symbols})
}

func (s *Server) handleMembership(w http.ResponseWriter, r *http.Request) {
	if s.watchlist == nil {
		writeError(w, http.StatusServiceUnavailable, "watchlist not configured")
		return
	}
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	m, err := s.watchlist.IsInWatchlist(r.Context(), symbol)
	if err != nil {
		writeError(w, watchlistStatus(err), fmt.Sprintf("failed to look up %s: %v", symbol, err))
		return
	}
	writeJSON(w, MembershipResponse(m))
}

func (s *Server) handleAddWatchlist(w http.ResponseWriter, r *http.Request) {
	if s.watchlist == nil {
		writeError(w, http.StatusServiceUnavailable, "watchlist not configured")
		return
	}
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	if err := s.watchlist.Add(r.Context(), symbol); err != nil {
		writeError(w, watchlistStatus(err), fmt.Sprintf("failed to add %s: %v", symbol, err))
		return
	}
	s.log.Info("watchlist add", "symbol", symbol)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	if s.watchlist == nil {
		writeError(w, http.StatusServiceUnavailable, "watchlist not configured")
		return
	}
	id := chi.URLParam(r, "symbol")
	if err := s.watchlist.Remove(r.Context(), id); err != nil {
		writeError(w, watchlistStatus(err), fmt.Sprintf("failed to remove %s: %v", id, err))
		return
	}
	s.log.Info("watchlist remove", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func watchlistStatus(err error) int {
	if errors.Is(err, watchlist.ErrNotConfigured) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// ---------------------------------------------------------------------------
// Alert requests
// ---------------------------------------------------------------------------

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	if s.alerts == nil {
		writeJSON(w, AlertsResponse{Requests: []domain.AlertRequest{}})
		return
	}
	status := domain.AlertRequestStatus(r.URL.Query().Get("status"))
	reqs, err := s.alerts.List(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list alert requests")
		return
	}
	if reqs == nil {
		reqs = []domain.AlertRequest{}
	}
	writeJSON(w, AlertsResponse{Requests: reqs})
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	if s.alerts == nil {
		writeError(w, http.StatusServiceUnavailable, "alerts not configured")
		return
	}
	var body CreateAlertRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req, err := s.alerts.Create(r.Context(), body.Symbol)
	if err != nil {
		if errors.Is(err, alerts.ErrEmptySymbol) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create alert request")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(req)
}

func (s *Server) handleAckAlert(w http.ResponseWriter, r *http.Request) {
	if s.alerts == nil {
		writeError(w, http.StatusServiceUnavailable, "alerts not configured")
		return
	}
	id := chi.URLParam(r, "id")
	req, err := s.alerts.Acknowledge(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "alert request not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to acknowledge alert request")
		return
	}
	writeJSON(w, req)
}

// handleAlertEvents streams alert request events as SSE. The first event is
// a snapshot of the pending requests.
func (s *Server) handleAlertEvents(w http.ResponseWriter, r *http.Request) {
	if s.alerts == nil {
		writeError(w, http.StatusServiceUnavailable, "alerts not configured")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// Subscribe before the snapshot so no request falls in between.
	id, ch := s.alerts.Subscribe(64)
	defer s.alerts.Unsubscribe(id)

	snap, err := s.alerts.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read pending alert requests")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	send := func(e alerts.Event) bool {
		b, err := json.Marshal(e)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, b); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(snap) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-ch:
			if !ok || !send(e) {
				return
			}
		}
	}
}

// ---------------------------------------------------------------------------
// News
// ---------------------------------------------------------------------------

func (s *Server) handleNewsDates(w http.ResponseWriter, r *http.Request) {
	if s.news == nil {
		writeJSON(w, NewsDatesResponse{Dates: []string{}})
		return
	}
	dates, err := s.news.ListNewsDates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list news dates")
		return
	}
	if dates == nil {
		dates = []string{}
	}
	writeJSON(w, NewsDatesResponse{Dates: dates})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	date := r.URL.Query().Get("date")
	if date == "" {
		date = s.now().UTC().Format("2006-01-02")
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	empty := NewsResponse{Symbol: symbol, Date: date, Articles: []news.Annotated{}}
	if s.news == nil {
		writeJSON(w, empty)
		return
	}

	articles, err := s.news.ReadNews(r.Context(), day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read news")
		return
	}
	annotated, err := news.Annotate(articles, page.AnnotateOptions{
		Policy: s.policy,
		Layout: s.layout,
		Log:    s.log,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to annotate news")
		return
	}
	filtered := news.FilterSymbol(annotated, symbol)
	if filtered == nil {
		writeJSON(w, empty)
		return
	}
	writeJSON(w, NewsResponse{Symbol: symbol, Date: date, Articles: filtered})
}
