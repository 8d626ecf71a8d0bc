package handler

import (
	"context"
	"net/http"

	"github.com/mcoot/balltoss/internal/api/response"
	"github.com/mcoot/balltoss/internal/model"
)

// MatchLister provides the match directory
type MatchLister interface {
	ListMatches(ctx context.Context) ([]model.MatchSummary, error)
}

// MatchHandler handles match directory endpoints
type MatchHandler struct {
	matches MatchLister
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(matches MatchLister) *MatchHandler {
	return &MatchHandler{matches: matches}
}

// List handles GET /api/v1/matches
func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.matches.ListMatches(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchesFromModel(summaries))
}
