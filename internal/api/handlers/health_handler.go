package handlers

import (
	"log/slog"
	"net/http"
)

// HealthHandler handles liveness checks. It does not touch the label store or
// the embedding provider.
type HealthHandler struct{}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}

	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health check response", "error", err)
	}
}
