package handler

import (
	"net/http"
	"time"

	"stockvault-api/internal/repository"
	"stockvault-api/pkg/apierror"
	"stockvault-api/pkg/response"
)

// Handler contains shared HTTP handlers and their dependencies.
type Handler struct {
	version string
	ledger  repository.Ledger
}

// New creates a new handler.
func New(version string, ledger repository.Ledger) *Handler {
	return &Handler{version: version, ledger: ledger}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}
	response.OK(w, resp)
}

// Ready handles GET /api/v1/ready. Readiness requires a live store.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	err := h.ledger.View(r.Context(), func(tx repository.Tx) error {
		_, err := tx.IsBanned(0)
		return err
	})
	if err != nil {
		response.Error(w, &apierror.Error{
			StatusCode: http.StatusServiceUnavailable,
			Code:       "NOT_READY",
			Message:    "store unavailable",
		})
		return
	}
	response.OK(w, map[string]string{"status": "ready"})
}

// Status handles GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"service": "stockvault-api",
		"status":  "online",
		"version": h.version,
	})
}
