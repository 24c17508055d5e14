package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ACondori95/admin-tarea/logging"
	"github.com/ACondori95/admin-tarea/utils"
)

const healthTimeout = 2 * time.Second

// PingFunc reports whether the backing store is reachable.
type PingFunc func(ctx context.Context) error

func HealthHandler(ping PingFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := ping(ctx); err != nil {
			logging.Logger.Warnf("Event ID: HEALTH_CHECK_FAILED, Description: Database ping failed: %v", err)
			utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
