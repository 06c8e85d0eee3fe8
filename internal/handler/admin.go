package handler

import (
	"net/http"
	"runtime"
	"time"

	"stockvault-api/internal/model"
	"stockvault-api/internal/repository"
	"stockvault-api/internal/service"
	"stockvault-api/pkg/response"
)

// AdminHandler serves operational statistics for the admin surface.
type AdminHandler struct {
	ledger    repository.Ledger
	dbType    string
	access    access
	startTime time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(ledger repository.Ledger, dbType string, entitlements *service.EntitlementService) *AdminHandler {
	return &AdminHandler{
		ledger:    ledger,
		dbType:    dbType,
		access:    access{entitlements: entitlements},
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if _, aerr := h.access.require(r, model.RoleAdmin); aerr != nil {
		response.Error(w, aerr)
		return
	}

	stats := make(map[string]interface{})
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["db_type"] = h.dbType

	if ledgerStats, err := h.ledger.Stats(r.Context()); err == nil {
		stats["ledger"] = ledgerStats
	} else {
		stats["ledger"] = map[string]interface{}{"error": err.Error()}
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
		"alloc_mb":   float64(memStats.Alloc) / 1024 / 1024,
	}

	response.OK(w, stats)
}
