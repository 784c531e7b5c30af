// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rotisserie/eris"

	service "github.com/okian/modelfusion/internal/app"
	"github.com/okian/modelfusion/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the orchestrator.
type Dependencies interface {
	StatusDependencies
	ModelDependencies
	RankingDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	statusHandler   *StatusHandler
	modelsHandler   *ModelsHandler
	rankingsHandler *RankingsHandler

	log logger.Logger
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	defaultLimit int
	log          logger.Logger
}

// WithDefaultLimit sets the ranking page size used when no limit is given.
func WithDefaultLimit(n int) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.defaultLimit = n
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := serverConfig{defaultLimit: defaultRankingLimit, log: logger.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		statusHandler:   NewStatusHandler(deps),
		modelsHandler:   NewModelsHandler(deps),
		rankingsHandler: NewRankingsHandler(deps, cfg.defaultLimit),
		log:             cfg.log,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz", s.log))
	mux.Handle("/metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats", s.log))
	mux.HandleFunc("GET /status", MetricsMiddleware(s.statusHandler.HandleStatus, "status", s.log))
	mux.HandleFunc("POST /consolidate", MetricsMiddleware(s.statusHandler.HandleConsolidate, "consolidate", s.log))
	mux.HandleFunc("GET /models/{id}/scores", MetricsMiddleware(s.modelsHandler.HandleGetScores, "model_scores", s.log))
	mux.HandleFunc("GET /rankings/{category}", MetricsMiddleware(s.rankingsHandler.HandleGetRanking, "rankings", s.log))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps orchestrator error kinds to HTTP status codes.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	wrapped := eris.Wrap(err, op)
	switch {
	case errors.Is(err, service.ErrModelNotFound):
		writeError(w, http.StatusNotFound, "not_found", wrapped)
	case errors.Is(err, service.ErrUnknownCategory):
		writeError(w, http.StatusNotFound, "unknown_category", wrapped)
	case errors.Is(err, service.ErrInvalidLimit), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", wrapped)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", wrapped)
	}
}
