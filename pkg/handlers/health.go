package handlers

import (
	"net/http"
	"time"

	"oms-backend/pkg/config"
	"oms-backend/pkg/database"
	"oms-backend/pkg/utils"
)

type HealthHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

func NewHealthHandler(cfg *config.Config, db database.DatabaseInterface) *HealthHandler {
	return &HealthHandler{config: cfg, db: db}
}

// GET / and /healthz
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, dbStatus, code := "healthy", "healthy", http.StatusOK
	if err := h.db.HealthCheck(r.Context()); err != nil {
		status, dbStatus, code = "degraded", "unhealthy: "+err.Error(), http.StatusServiceUnavailable
	}
	utils.WriteJSONResponse(w, code, map[string]interface{}{
		"service":     "oms-backend",
		"environment": h.config.Environment,
		"database":    h.databaseBackend(),
		"db_status":   dbStatus,
		"timestamp":   time.Now().Unix(),
		"status":      status,
		"pool":        database.GetConnectionStats(),
	})
}

func (h *HealthHandler) databaseBackend() string {
	switch {
	case h.config.MongoURI != "":
		return "mongodb"
	case h.config.PostgresDSN != "":
		return "postgresql"
	}
	return "local"
}
