package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"stockvault-api/internal/model"
	"stockvault-api/internal/service"
	"stockvault-api/pkg/apierror"
	"stockvault-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// InventoryHandler handles inventory fetch and stock listing requests.
type InventoryHandler struct {
	inventory *service.InventoryService
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(inventory *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

// FetchRequest represents the request body for an inventory fetch.
type FetchRequest struct {
	UserID   int64  `json:"user_id"`
	Pool     string `json:"pool"`
	Quantity int    `json:"quantity"`
}

// Fetch handles POST /api/v1/fetch
func (h *InventoryHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	var req FetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.UserID <= 0 {
		response.Error(w, apierror.ValidationError("user_id is required"))
		return
	}
	req.Pool = strings.TrimSpace(req.Pool)
	if req.Pool == "" {
		response.Error(w, apierror.ValidationError("pool is required"))
		return
	}
	if req.Quantity < 1 {
		response.Error(w, apierror.ValidationError("quantity must be at least 1"))
		return
	}

	result, err := h.inventory.Fetch(r.Context(), req.UserID, req.Pool, req.Quantity)
	if err != nil {
		response.Error(w, domainError(err))
		return
	}

	response.OK(w, result)
}

// Stock handles GET /api/v1/stock/{kind}
func (h *InventoryHandler) Stock(w http.ResponseWriter, r *http.Request) {
	kind, err := model.ParseKeyKind(chi.URLParam(r, "kind"))
	if err != nil {
		response.Error(w, apierror.ValidationError(err.Error()))
		return
	}

	pools, serr := h.inventory.StockSummary(r.Context(), kind)
	if serr != nil {
		response.Error(w, domainError(serr))
		return
	}

	response.OK(w, map[string]interface{}{
		"kind":  kind,
		"pools": pools,
	})
}
