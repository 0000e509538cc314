package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/groove/internal/domain/model"
	"github.com/okian/groove/internal/game"
	"github.com/okian/groove/pkg/logger"
)

// Session control actions for POST /session/{action}.
const (
	actionPause        = "pause"
	actionResume       = "resume"
	actionPractice     = "practice"
	actionPracticeExit = "practice-exit"
	actionStop         = "stop"
)

// SessionDependencies defines the interface for session operations.
type SessionDependencies interface {
	// Session returns the current session or nil.
	Session() *game.Session
	StartSession(ctx context.Context, req model.SessionRequest) (*game.Session, error)
	StopSession(ctx context.Context) error
}

// SessionHandler handles session requests.
type SessionHandler struct {
	deps SessionDependencies
	log  logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies, log logger.Logger) *SessionHandler {
	return &SessionHandler{deps: deps, log: log}
}

// HandleGetSession handles GET /session requests.
func (h *SessionHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_session"
	sess := h.deps.Session()
	if sess == nil {
		writeFailure(w, Wrap(op, game.ErrNoSession))
		return
	}
	writeJSON(w, http.StatusOK, sess.Status())
}

// HandleStartSession handles POST /session requests: it loads a
// choreography, replaces the current session and returns once the count-in
// is over.
func (h *SessionHandler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_session"
	var req model.SessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Choreography == nil && req.ChoreographyPath == "" {
		writeFailure(w, WrapKind(op, ErrBadRequest, fmt.Errorf("choreography or choreography_path is required")))
		return
	}
	sess, err := h.deps.StartSession(r.Context(), req)
	if err != nil {
		h.log.Warn(r.Context(), "session start failed", logger.Error(err))
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, sess.Status())
}

// HandleControl handles POST /session/{action} requests.
func (h *SessionHandler) HandleControl(w http.ResponseWriter, r *http.Request) {
	op := "api.session_" + r.PathValue("action")
	if r.PathValue("action") == actionStop {
		if err := h.deps.StopSession(r.Context()); err != nil {
			writeFailure(w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, ackResponse{Status: "stopped"})
		return
	}

	sess := h.deps.Session()
	if sess == nil {
		writeFailure(w, Wrap(op, game.ErrNoSession))
		return
	}
	var err error
	switch r.PathValue("action") {
	case actionPause:
		err = sess.Pause()
	case actionResume:
		err = sess.Resume()
	case actionPractice:
		_, err = sess.EnterPractice()
	case actionPracticeExit:
		err = sess.ExitPractice()
	default:
		writeFailure(w, WrapKind(op, ErrNotFound, fmt.Errorf("unknown action %q", r.PathValue("action"))))
		return
	}
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sess.Status())
}
