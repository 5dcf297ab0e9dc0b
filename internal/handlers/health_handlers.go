package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandlers struct {
	store  Pinger
	driver string
	logger *logrus.Logger
}

func NewHealthHandlers(store Pinger, driver string, logger *logrus.Logger) *HealthHandlers {
	return &HealthHandlers{store: store, driver: driver, logger: logger}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Store    string `json:"store"`
	Database string `json:"database"`
}

// Health handles GET /health
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Store: h.driver, Database: "connected"}
	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		h.logger.WithError(err).Warn("Health check failed")
		resp.Status = "degraded"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}
	respondWithJSON(w, status, resp)
}
