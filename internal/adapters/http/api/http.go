// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"

	repository "github.com/okian/groove/internal/adapters/repository"
	"github.com/okian/groove/internal/domain/choreo"
	"github.com/okian/groove/internal/game"
	"github.com/okian/groove/pkg/logger"
)

const defaultMaxLimit = 100

// maxBodyBytes bounds request bodies; an inline choreography is the largest.
const maxBodyBytes = 8 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SessionDependencies
	HistoryDependencies
	LeaderboardDependencies
	RankDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = repository.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	poseHandler        *PoseHandler
	sessionHandler     *SessionHandler
	historyHandler     *HistoryHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	log                logger.Logger
}

// NewServer creates a new API server with all handlers. A maxLimit below one
// uses the default leaderboard cap.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int, log logger.Logger) *Server {
	if maxLimit < 1 {
		maxLimit = defaultMaxLimit
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		poseHandler:        NewPoseHandler(deps),
		sessionHandler:     NewSessionHandler(deps, log),
		historyHandler:     NewHistoryHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
		log:                log,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /pose", MetricsMiddleware(s.poseHandler.HandlePostPose, "pose"))
	mux.HandleFunc("GET /session", MetricsMiddleware(s.sessionHandler.HandleGetSession, "session"))
	mux.HandleFunc("POST /session", MetricsMiddleware(s.sessionHandler.HandleStartSession, "session_start"))
	mux.HandleFunc("POST /session/{action}", MetricsMiddleware(s.sessionHandler.HandleControl, "session_control"))
	mux.HandleFunc("GET /history/{songMD5}", MetricsMiddleware(s.historyHandler.HandleGetHistory, "history"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /leaderboard/{songMD5}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
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

// writeFailure classifies err into a status and code.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, choreo.ErrDecode),
		errors.Is(err, choreo.ErrEmptyChoreography),
		errors.Is(err, os.ErrNotExist):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, ErrNotFound), errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrBackpressure), errors.Is(err, game.ErrStartInProgress):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, game.ErrNoSession):
		writeError(w, http.StatusConflict, "no_session", err)
	case errors.Is(err, ErrConflict),
		errors.Is(err, game.ErrInvalidTransition),
		errors.Is(err, game.ErrSessionClosed):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, game.ErrTransportStart):
		writeError(w, http.StatusBadGateway, "transport_failed", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// songFromPath extracts and checks the {songMD5} path value.
func songFromPath(r *http.Request, op string) (string, error) {
	song := r.PathValue("songMD5")
	if song == "" {
		return "", NewKind(op, ErrBadRequest)
	}
	return song, nil
}
