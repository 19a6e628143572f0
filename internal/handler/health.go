package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/stumpscore/stumpscore/internal/respond"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	err := h.db.PingContext(ctx)
	if err != nil {
		respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "message": "Database unreachable"})
		return
	}

	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "StumpScore API is running"})
}
