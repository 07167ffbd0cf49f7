package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/felixgeelhaar/logmyjob/internal/app"
	"github.com/felixgeelhaar/logmyjob/pkg/observability"
)

// HealthHandler serves /healthz with the health registry, queue depth and
// replay statistics, and /readyz with a storage ping.
func HealthHandler(c *app.Container) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		health := c.Health.Check(checkCtx)
		stats := c.Engine.GetStats()
		pending, err := c.Queue.Count(checkCtx)
		response := map[string]any{
			"status":        health.Status,
			"checks":        health.Checks,
			"pending":       pending,
			"online":        c.Monitor.Online(),
			"runner":        c.Runner.IsRunning(),
			"draining":      stats.Draining,
			"drains":        stats.Drains,
			"processed":     stats.ProcessedCount,
			"failed":        stats.FailedCount,
			"skipped":       stats.SkippedCount,
			"last_trigger":  stats.LastTrigger,
			"last_drain_at": stats.LastDrainAt,
			"last_error_at": stats.LastErrorAt,
			"last_error":    stats.LastError,
		}
		if err != nil {
			response["pending_error"] = err.Error()
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == observability.HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(response)
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		w.Header().Set("Content-Type", "application/json")
		if err := c.Backend.Ping(checkCtx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ready"})
	})

	return mux
}
