package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/benson/survivor/logging"
)

// Pinger is the database liveness check the health endpoint needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers liveness probes.
type HealthHandler struct {
	db     Pinger
	logger *logging.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: logging.WithPrefix("Health"),
	}
}

// Healthz handles GET /healthz. The database check gets a short deadline
// so a hung mongo cannot hang the probe.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Errorf("Health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  "database unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
