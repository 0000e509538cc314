package api

import (
	"net/http"

	"github.com/okian/groove/internal/domain/pose"
	"github.com/okian/groove/internal/game"
)

// PoseHandler handles detector samples.
type PoseHandler struct {
	deps SessionDependencies
}

// NewPoseHandler creates a new pose handler.
func NewPoseHandler(deps SessionDependencies) *PoseHandler {
	return &PoseHandler{deps: deps}
}

// HandlePostPose handles POST /pose requests. The body is one detector
// sample: {"joints": {"nose": [x, y], ...}, "confidence": c, "body_count": n}.
// A sample without a usable body is acknowledged as ignored; it still counts
// toward losing tracking.
func (h *PoseHandler) HandlePostPose(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_pose"
	var d pose.Detected
	if err := decodeJSON(w, r, &d); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if d.BodyCount < 0 || d.Confidence < 0 || d.Confidence > 1 {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	sess := h.deps.Session()
	if sess == nil {
		writeFailure(w, Wrap(op, game.ErrNoSession))
		return
	}
	if _, ended := sess.Phase().(game.Ended); ended {
		writeFailure(w, Wrap(op, game.ErrSessionClosed))
		return
	}
	if !sess.SubmitPose(d) {
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "ignored"})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
