package handler

import (
	"encoding/json"
	"net/http"

	"stockvault-api/internal/model"
	"stockvault-api/internal/service"
	"stockvault-api/pkg/apierror"
	"stockvault-api/pkg/response"
)

// AuthHandler issues operator session tokens.
type AuthHandler struct {
	tokenService *service.TokenService
	entitlements *service.EntitlementService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(tokenService *service.TokenService, entitlements *service.EntitlementService) *AuthHandler {
	return &AuthHandler{
		tokenService: tokenService,
		entitlements: entitlements,
	}
}

// TokenRequest represents the request body for token generation.
type TokenRequest struct {
	UserID int64 `json:"user_id"`
}

// TokenResponse represents the response for token generation.
type TokenResponse struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	ExpiresIn int    `json:"expires_in"`
}

// GenerateToken handles POST /api/v1/auth/token. Only privileged users get
// operator sessions.
func (h *AuthHandler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.UserID <= 0 {
		response.Error(w, apierror.ValidationError("user_id is required"))
		return
	}

	role, err := h.entitlements.RoleOf(r.Context(), req.UserID)
	if err != nil {
		response.Error(w, domainError(err))
		return
	}
	if !role.AtLeast(model.RoleAdmin) {
		response.Error(w, apierror.Forbidden(""))
		return
	}

	token, err := h.tokenService.GenerateToken(r.Context(), model.TokenData{
		UserID: req.UserID,
		Role:   role.String(),
	})
	if err != nil {
		response.Error(w, apierror.InternalError("failed to generate token"))
		return
	}

	response.OK(w, TokenResponse{
		Token:     token,
		Role:      role.String(),
		ExpiresIn: int(service.TokenTTL.Seconds()),
	})
}

// RevokeToken handles POST /api/v1/auth/revoke
func (h *AuthHandler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Token")
	if token == "" {
		response.Error(w, apierror.BadRequest("X-Token header required"))
		return
	}

	if err := h.tokenService.RevokeToken(r.Context(), token); err != nil {
		response.Error(w, apierror.InternalError("failed to revoke token"))
		return
	}

	response.OK(w, map[string]string{"status": "revoked"})
}

// RefreshToken handles POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Token")
	if token == "" {
		response.Error(w, apierror.BadRequest("X-Token header required"))
		return
	}

	if err := h.tokenService.RefreshToken(r.Context(), token); err != nil {
		response.Error(w, apierror.Unauthorized(err.Error()))
		return
	}

	response.OK(w, map[string]interface{}{
		"status":     "refreshed",
		"expires_in": int(service.TokenTTL.Seconds()),
	})
}
