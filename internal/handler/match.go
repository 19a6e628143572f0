package handler

import (
	"net/http"

	"github.com/stumpscore/stumpscore/internal/respond"
	"github.com/stumpscore/stumpscore/internal/service"
)

type MatchHandler struct {
	matchService *service.MatchService
}

func NewMatchHandler(matchService *service.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

func (h *MatchHandler) Live(w http.ResponseWriter, r *http.Request) {
	matches, err := h.matchService.Live(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, matches)
}

func (h *MatchHandler) Predictions(w http.ResponseWriter, r *http.Request) {
	predictions, err := h.matchService.Predictions(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, predictions)
}
