package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Ghost-ify/Namite/internal/chatcolor"
	"github.com/Ghost-ify/Namite/internal/domain"
	"github.com/Ghost-ify/Namite/internal/pipeline"
	"github.com/Ghost-ify/Namite/internal/stats"
)

// Lookups is the on-demand check surface.
type Lookups interface {
	LookupNow(ctx context.Context, username string) (pipeline.LookupResult, error)
	HuntLength(ctx context.Context, req pipeline.HuntRequest) (pipeline.HuntResult, error)
}

// Records is the read and admin surface of the durable store.
type Records interface {
	Record(ctx context.Context, username string) (domain.CooldownRecord, bool, error)
	RecentAvailable(ctx context.Context, limit int) ([]domain.CooldownRecord, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	CooldownEndsAt(rec domain.CooldownRecord) time.Time
}

// StatsReader serves the hunter's run counters.
type StatsReader interface {
	Snapshot(ctx context.Context) (stats.Stats, error)
}

// Pinger probes the durable store for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	lookups Lookups
	records Records
	stats   StatsReader
	db      Pinger
	log     *zap.Logger
}

func New(lookups Lookups, records Records, st StatsReader, db Pinger, log *zap.Logger) *Server {
	return &Server{lookups: lookups, records: records, stats: st, db: db, log: log}
}

// Routes assembles the HTTP surface.
func (s *Server) Routes() chi.Router {
	rtr := chi.NewRouter()
	rtr.Use(middleware.RequestID)
	rtr.Use(middleware.Recoverer)
	rtr.Use(s.logRequests)

	rtr.Get("/healthz", s.handleHealth)
	rtr.Route("/v1", func(v1 chi.Router) {
		v1.Get("/check/{username}", s.handleCheck)
		v1.Post("/hunts", s.handleHunt)
		v1.Get("/usernames/{username}", s.handleStatus)
		v1.Get("/available", s.handleRecentAvailable)
		v1.Get("/stats", s.handleStats)
		v1.Delete("/records", s.handlePurge)
	})
	return rtr
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)))
	})
}

type checkResponse struct {
	Username  string           `json:"username"`
	Available bool             `json:"available"`
	Color     chatcolor.Color  `json:"color"`
	ColorHex  string           `json:"color_hex"`
	ErrorKind domain.ErrorKind `json:"error_kind"`
	Code      int              `json:"code,omitempty"`
	Message   string           `json:"message,omitempty"`
	CheckedAt time.Time        `json:"checked_at"`
}

func toCheckResponse(res pipeline.LookupResult) checkResponse {
	return checkResponse{
		Username:  res.Outcome.Candidate.Name,
		Available: res.Outcome.Available,
		Color:     res.Color,
		ColorHex:  res.Color.Hex(),
		ErrorKind: res.Outcome.ErrorKind,
		Code:      res.Outcome.Code,
		Message:   res.Outcome.Message,
		CheckedAt: res.Outcome.CheckedAt,
	}
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	res, err := s.lookups.LookupNow(r.Context(), username)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respond(w, http.StatusOK, toCheckResponse(res))
}

type huntResponse struct {
	Results    []checkResponse `json:"results"`
	NextCursor string          `json:"next_cursor"`
	Exhausted  bool            `json:"exhausted"`
}

func (s *Server) handleHunt(w http.ResponseWriter, r *http.Request) {
	var req pipeline.HuntRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	res, err := s.lookups.HuntLength(r.Context(), req)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	out := huntResponse{
		Results:    make([]checkResponse, 0, len(res.Results)),
		NextCursor: res.NextCursor,
		Exhausted:  res.Exhausted,
	}
	for _, lr := range res.Results {
		out.Results = append(out.Results, toCheckResponse(lr))
	}
	s.respond(w, http.StatusOK, out)
}

type statusResponse struct {
	Username       string    `json:"username"`
	Available      bool      `json:"available"`
	StatusCode     int       `json:"status_code"`
	Message        string    `json:"message,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`
	CooldownEndsAt time.Time `json:"cooldown_ends_at"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	rec, found, err := s.records.Record(r.Context(), username)
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "record store unavailable")
		return
	}
	if !found {
		s.respondError(w, http.StatusNotFound, "username has not been checked")
		return
	}
	s.respond(w, http.StatusOK, statusResponse{
		Username:       rec.Username,
		Available:      rec.Available,
		StatusCode:     rec.StatusCode,
		Message:        rec.Message,
		CheckedAt:      rec.CheckedAt,
		CooldownEndsAt: s.records.CooldownEndsAt(rec),
	})
}

type availableEntry struct {
	Username  string          `json:"username"`
	Color     chatcolor.Color `json:"color"`
	ColorHex  string          `json:"color_hex"`
	CheckedAt time.Time       `json:"checked_at"`
}

func (s *Server) handleRecentAvailable(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > 100 {
		limit = 100
	}

	recs, err := s.records.RecentAvailable(r.Context(), limit)
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "record store unavailable")
		return
	}
	out := make([]availableEntry, 0, len(recs))
	for _, rec := range recs {
		color := chatcolor.Predict(rec.Username)
		out = append(out, availableEntry{
			Username:  rec.Username,
			Color:     color,
			ColorHex:  color.Hex(),
			CheckedAt: rec.CheckedAt,
		})
	}
	s.respond(w, http.StatusOK, map[string]interface{}{"usernames": out})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.stats.Snapshot(r.Context())
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "stats unavailable")
		return
	}
	s.respond(w, http.StatusOK, snap)
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	olderThan := 30 * 24 * time.Hour
	if raw := r.URL.Query().Get("older_than"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			s.respondError(w, http.StatusBadRequest, "older_than must be a positive duration")
			return
		}
		olderThan = d
	}

	purged, err := s.records.PurgeOlderThan(r.Context(), time.Now().Add(-olderThan))
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "record store unavailable")
		return
	}
	s.respond(w, http.StatusOK, map[string]int64{"purged": purged})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.respond(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("write response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respond(w, status, map[string]string{"error": msg})
}
