package handler

import (
	"net/http"

	"stockvault-api/internal/model"
	"stockvault-api/internal/service"
	"stockvault-api/pkg/response"
)

// UserHandler handles profile and user-administration requests.
type UserHandler struct {
	entitlements *service.EntitlementService
	access       access
}

// NewUserHandler creates a new user handler.
func NewUserHandler(entitlements *service.EntitlementService) *UserHandler {
	return &UserHandler{
		entitlements: entitlements,
		access:       access{entitlements: entitlements},
	}
}

// Profile handles GET /api/v1/users/{user_id}/profile
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, aerr := userIDParam(r)
	if aerr != nil {
		response.Error(w, aerr)
		return
	}

	profile, err := h.entitlements.Profile(r.Context(), userID)
	if err != nil {
		response.Error(w, domainError(err))
		return
	}
	response.OK(w, profile)
}

// List handles GET /api/v1/admin/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, aerr := h.access.require(r, model.RoleAdmin); aerr != nil {
		response.Error(w, aerr)
		return
	}

	users, err := h.entitlements.ListUsers(r.Context())
	if err != nil {
		response.Error(w, domainError(err))
		return
	}
	response.OK(w, map[string]interface{}{
		"count": len(users),
		"users": users,
	})
}

// Ban handles POST /api/v1/admin/users/{user_id}/ban
func (h *UserHandler) Ban(w http.ResponseWriter, r *http.Request) {
	if _, aerr := h.access.require(r, model.RoleAdmin); aerr != nil {
		response.Error(w, aerr)
		return
	}
	userID, aerr := userIDParam(r)
	if aerr != nil {
		response.Error(w, aerr)
		return
	}

	if err := h.entitlements.Ban(r.Context(), userID); err != nil {
		response.Error(w, domainError(err))
		return
	}
	response.OK(w, map[string]interface{}{"user_id": userID, "banned": true})
}

// Unban handles POST /api/v1/admin/users/{user_id}/unban
func (h *UserHandler) Unban(w http.ResponseWriter, r *http.Request) {
	if _, aerr := h.access.require(r, model.RoleAdmin); aerr != nil {
		response.Error(w, aerr)
		return
	}
	userID, aerr := userIDParam(r)
	if aerr != nil {
		response.Error(w, aerr)
		return
	}

	if err := h.entitlements.Unban(r.Context(), userID); err != nil {
		response.Error(w, domainError(err))
		return
	}
	response.OK(w, map[string]interface{}{"user_id": userID, "banned": false})
}

// RevokePlans handles POST /api/v1/admin/users/{user_id}/revoke-plans
func (h *UserHandler) RevokePlans(w http.ResponseWriter, r *http.Request) {
	if _, aerr := h.access.require(r, model.RoleAdmin); aerr != nil {
		response.Error(w, aerr)
		return
	}
	userID, aerr := userIDParam(r)
	if aerr != nil {
		response.Error(w, aerr)
		return
	}

	if err := h.entitlements.RevokePlans(r.Context(), userID); err != nil {
		response.Error(w, domainError(err))
		return
	}
	response.OK(w, map[string]interface{}{"user_id": userID, "plans_revoked": true})
}

// Promote handles POST /api/v1/admin/admins/{user_id}
func (h *UserHandler) Promote(w http.ResponseWriter, r *http.Request) {
	if _, aerr := h.access.require(r, model.RoleSuperAdmin); aerr != nil {
		response.Error(w, aerr)
		return
	}
	userID, aerr := userIDParam(r)
	if aerr != nil {
		response.Error(w, aerr)
		return
	}

	if err := h.entitlements.PromoteAdmin(r.Context(), userID); err != nil {
		response.Error(w, domainError(err))
		return
	}
	response.OK(w, map[string]interface{}{"user_id": userID, "role": model.RoleAdmin.String()})
}

// Demote handles DELETE /api/v1/admin/admins/{user_id}
func (h *UserHandler) Demote(w http.ResponseWriter, r *http.Request) {
	if _, aerr := h.access.require(r, model.RoleSuperAdmin); aerr != nil {
		response.Error(w, aerr)
		return
	}
	userID, aerr := userIDParam(r)
	if aerr != nil {
		response.Error(w, aerr)
		return
	}

	if err := h.entitlements.DemoteAdmin(r.Context(), userID); err != nil {
		response.Error(w, domainError(err))
		return
	}
	response.OK(w, map[string]interface{}{"user_id": userID, "role": model.RoleUser.String()})
}
