package api

import (
	"context"
	"net/http"

	"github.com/okian/groove/internal/domain/model"
)

// HistoryDependencies defines the interface for run history reads.
type HistoryDependencies interface {
	History(ctx context.Context, songMD5 string) ([]model.RunRecord, error)
}

// HistoryHandler handles history requests.
type HistoryHandler struct {
	deps HistoryDependencies
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies) *HistoryHandler {
	return &HistoryHandler{deps: deps}
}

// HandleGetHistory handles GET /history/{songMD5} requests. An unknown song
// has an empty history.
func (h *HistoryHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history"
	song, err := songFromPath(r, op)
	if err != nil {
		writeFailure(w, err)
		return
	}
	runs, err := h.deps.History(r.Context(), song)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if runs == nil {
		runs = []model.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}
