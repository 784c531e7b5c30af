package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rotisserie/eris"

	service "github.com/okian/modelfusion/internal/app"
)

const defaultRankingLimit = 10

// RankingDependencies defines the interface for category rankings.
type RankingDependencies interface {
	GetCategoryRanking(ctx context.Context, category string, limit int) (service.Ranking, error)
}

// RankingsHandler handles ranking requests.
type RankingsHandler struct {
	deps         RankingDependencies
	defaultLimit int
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps RankingDependencies, defaultLimit int) *RankingsHandler {
	if defaultLimit <= 0 {
		defaultLimit = defaultRankingLimit
	}
	return &RankingsHandler{deps: deps, defaultLimit: defaultLimit}
}

// HandleGetRanking handles GET /rankings/{category}?limit=N requests.
// Limits above the service maximum are clamped there.
func (h *RankingsHandler) HandleGetRanking(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ranking"
	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", eris.Wrapf(ErrBadRequest, "%s: limit %q", op, raw))
			return
		}
		limit = n
	}
	ranking, err := h.deps.GetCategoryRanking(r.Context(), r.PathValue("category"), limit)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}
