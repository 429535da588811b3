package api

import (
	"net/http"
	"time"

	respond "github.com/comado-8/EpisodeStocker-sub000/internal/api/respond"
	"github.com/comado-8/EpisodeStocker-sub000/internal/store"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	store store.Store
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(st store.Store) *HealthHandler { return &HealthHandler{store: st} }

// CheckHealth handles GET /api/health
// Always returns 200; body reports healthy/unhealthy. 500 indicates handler failure only.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if err := h.store.HealthPing(r.Context()); err != nil {
		status = "unhealthy"
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
