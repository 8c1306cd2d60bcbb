package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"fleet-monitor/telemetry/internal/auth"
	"fleet-monitor/telemetry/internal/chain"
	"fleet-monitor/telemetry/internal/domain"
	"fleet-monitor/telemetry/internal/metrics"
)

const (
	defaultReadingsLimit = 12
	maxReadingsLimit     = 1000
)

// ServerView is the read-only face of a logistic server.
type ServerView interface {
	ID() string
	History() []domain.Reading
}

type StateReader interface {
	GetState(ctx context.Context, vehicleID string) (map[string]string, error)
}

type ReadingReader interface {
	RecentReadings(ctx context.Context, vehicleID string, limit int) ([]domain.Reading, error)
}

// Deps wires the status API. State, Readings, Auth and Stream may be nil.
type Deps struct {
	VehicleID      string
	Servers        []ServerView
	State          StateReader
	Readings       ReadingReader
	Auth           *auth.Authenticator
	Stream         *StreamHub
	RateLimitRPS   float64
	RateLimitBurst int
	Logger         *slog.Logger
}

type handlers struct {
	Deps
}

func NewRouter(d Deps) http.Handler {
	h := &handlers{Deps: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"X-API-Key", "Content-Type"},
		MaxAge:         3600,
	}).Handler)

	r.Get("/healthz", h.health)
	r.Get("/metrics", metrics.HandleMetrics)

	r.Route("/v1", func(r chi.Router) {
		r.Use(RateLimit(d.RateLimitRPS, d.RateLimitBurst))
		r.Use(NewAuthMiddleware(d.Auth).Wrap)

		r.Get("/servers", h.listServers)
		r.Get("/servers/{id}/history", h.serverHistory)
		r.Get("/vehicle/state", h.vehicleState)
		r.Get("/vehicle/readings", h.recentReadings)
		if d.Stream != nil {
			r.Handle("/stream", d.Stream)
		}
	})

	return r
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"vehicle_id": h.VehicleID,
		"servers":    len(h.Servers),
	})
}

type serverSummary struct {
	ID       string `json:"id"`
	Readings int    `json:"readings"`
}

func (h *handlers) listServers(w http.ResponseWriter, r *http.Request) {
	out := make([]serverSummary, len(h.Servers))
	for i, s := range h.Servers {
		out[i] = serverSummary{ID: s.ID(), Readings: len(s.History())}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) serverHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var server ServerView
	for _, s := range h.Servers {
		if s.ID() == id {
			server = s
			break
		}
	}
	if server == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown server "+id)
		return
	}

	history := server.History()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "limit must be a positive integer")
			return
		}
		history = chain.Tail(history, n)
	}
	writeJSON(w, http.StatusOK, toReadingViews(history))
}

func (h *handlers) vehicleState(w http.ResponseWriter, r *http.Request) {
	if h.State == nil {
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "state store disabled")
		return
	}
	state, err := h.State.GetState(r.Context(), h.VehicleID)
	if err != nil {
		h.Logger.Error("failed to read vehicle state", "vehicle_id", h.VehicleID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to read vehicle state")
		return
	}
	if len(state) == 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no state for vehicle "+h.VehicleID)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *handlers) recentReadings(w http.ResponseWriter, r *http.Request) {
	if h.Readings == nil {
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "reading store disabled")
		return
	}

	limit := defaultReadingsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "limit must be a positive integer")
			return
		}
		limit = min(n, maxReadingsLimit)
	}

	readings, err := h.Readings.RecentReadings(r.Context(), h.VehicleID, limit)
	if err != nil {
		h.Logger.Error("failed to query readings", "vehicle_id", h.VehicleID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to query readings")
		return
	}
	writeJSON(w, http.StatusOK, toReadingViews(readings))
}
