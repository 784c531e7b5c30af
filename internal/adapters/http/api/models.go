package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	service "github.com/okian/modelfusion/internal/app"
)

// ModelDependencies defines the interface for point lookups.
type ModelDependencies interface {
	GetModelScores(ctx context.Context, id string) (service.ModelScores, error)
}

// ModelsHandler handles model score requests.
type ModelsHandler struct {
	deps ModelDependencies
}

// NewModelsHandler creates a new models handler.
func NewModelsHandler(deps ModelDependencies) *ModelsHandler {
	return &ModelsHandler{deps: deps}
}

// HandleGetScores handles GET /models/{id}/scores requests.
func (h *ModelsHandler) HandleGetScores(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_model_scores"
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", eris.Wrap(ErrBadRequest, "missing model id"))
		return
	}
	scores, err := h.deps.GetModelScores(r.Context(), id)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}
