package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/kozaktomas/facescan/internal/logger"
	"go.uber.org/zap"
)

// HealthCheck reports that the process is serving requests.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessResponse is returned by the readiness probe.
type ReadinessResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// NewReadinessHandler returns a probe that fails with 503 while the database
// is unreachable. A nil db means no database is configured.
func NewReadinessHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			respondJSON(w, http.StatusOK, ReadinessResponse{Status: "ready", Database: "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			logger.FromContext(r.Context()).Warn("readiness check failed", zap.Error(err))
			respondJSON(w, http.StatusServiceUnavailable, ReadinessResponse{Status: "unavailable", Database: "unreachable"})
			return
		}
		respondJSON(w, http.StatusOK, ReadinessResponse{Status: "ready", Database: "ok"})
	}
}
