package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"stockvault-api/internal/service"
	"stockvault-api/pkg/apierror"
	"stockvault-api/pkg/response"
)

// RedeemHandler handles key redemption requests.
type RedeemHandler struct {
	redemption *service.RedemptionService
}

// NewRedeemHandler creates a new redemption handler.
func NewRedeemHandler(redemption *service.RedemptionService) *RedeemHandler {
	return &RedeemHandler{redemption: redemption}
}

// RedeemRequest represents the request body for a redemption.
type RedeemRequest struct {
	UserID int64  `json:"user_id"`
	Code   string `json:"code"`
}

// Redeem handles POST /api/v1/redeem
func (h *RedeemHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.UserID <= 0 {
		response.Error(w, apierror.ValidationError("user_id is required"))
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		response.Error(w, apierror.ValidationError("code is required"))
		return
	}

	result, err := h.redemption.Redeem(r.Context(), req.UserID, req.Code)
	if err != nil {
		response.Error(w, domainError(err))
		return
	}

	response.OK(w, result)
}
