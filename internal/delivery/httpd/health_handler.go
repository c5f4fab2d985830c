package httpd

import (
	"net/http"
	"time"
)

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	dbStatus := "up"
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			h.logger.Warn().Err(err).Msg("Database health check failed")
			status, code, dbStatus = "degraded", http.StatusServiceUnavailable, "down"
		}
	}

	writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"service":   "urkund-service",
		"database":  dbStatus,
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	})
}

func (h *Handler) GetWorkerStatus(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeError(w, http.StatusServiceUnavailable, "Worker is not running")
		return
	}

	writeSuccess(w, http.StatusOK, h.stats.GetStats())
}
