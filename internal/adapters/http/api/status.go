package api

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"

	service "github.com/okian/modelfusion/internal/app"
)

// StatusDependencies defines the interface for status and trigger operations.
type StatusDependencies interface {
	GetStatus(ctx context.Context) service.Status
	TriggerConsolidation(ctx context.Context) service.TriggerResult
}

// StatusHandler handles status and consolidation requests.
type StatusHandler struct {
	deps StatusDependencies
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(deps StatusDependencies) *StatusHandler {
	return &StatusHandler{deps: deps}
}

// HandleStatus handles GET /status requests.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.GetStatus(r.Context()))
}

// HandleConsolidate handles POST /consolidate requests. The pass runs in
// the background; the response only says whether it was queued.
func (h *StatusHandler) HandleConsolidate(w http.ResponseWriter, r *http.Request) {
	const op = "api.consolidate"
	res := h.deps.TriggerConsolidation(r.Context())
	if !res.Accepted {
		writeError(w, http.StatusServiceUnavailable, "unavailable", eris.Wrapf(ErrUnavailable, "%s: %s", op, res.Message))
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}
