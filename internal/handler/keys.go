package handler

import (
	"encoding/json"
	"net/http"

	"stockvault-api/internal/model"
	"stockvault-api/internal/service"
	"stockvault-api/pkg/apierror"
	"stockvault-api/pkg/response"
)

// KeyHandler handles redemption-key generation requests.
type KeyHandler struct {
	keys   *service.KeyService
	access access
}

// NewKeyHandler creates a new key handler.
func NewKeyHandler(keys *service.KeyService, entitlements *service.EntitlementService) *KeyHandler {
	return &KeyHandler{
		keys:   keys,
		access: access{entitlements: entitlements},
	}
}

// GenerateKeyRequest represents the request body for an explicit key.
type GenerateKeyRequest struct {
	Kind     string `json:"kind"`
	PlanName string `json:"plan_name"`
	MaxUses  int    `json:"max_uses"`
}

// Generate handles POST /api/v1/admin/keys
func (h *KeyHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if _, aerr := h.access.require(r, model.RoleAdmin); aerr != nil {
		response.Error(w, aerr)
		return
	}

	var req GenerateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	kind, err := model.ParseKeyKind(req.Kind)
	if err != nil {
		response.Error(w, apierror.ValidationError(err.Error()))
		return
	}
	if req.PlanName == "" || req.MaxUses < 1 {
		response.Error(w, apierror.ValidationError("plan_name and a positive max_uses are required"))
		return
	}

	key, serr := h.keys.GenerateKey(r.Context(), kind, req.PlanName, req.MaxUses)
	if serr != nil {
		response.Error(w, domainError(serr))
		return
	}
	response.Created(w, key)
}

// GenerateTiers handles POST /api/v1/admin/keys/tiers
func (h *KeyHandler) GenerateTiers(w http.ResponseWriter, r *http.Request) {
	if _, aerr := h.access.require(r, model.RoleAdmin); aerr != nil {
		response.Error(w, aerr)
		return
	}

	keys, err := h.keys.GenerateTierKeys(r.Context())
	if err != nil {
		response.Error(w, domainError(err))
		return
	}
	response.Created(w, map[string]interface{}{"keys": keys})
}

// GenerateSuperPro handles POST /api/v1/admin/keys/superpro
func (h *KeyHandler) GenerateSuperPro(w http.ResponseWriter, r *http.Request) {
	if _, aerr := h.access.require(r, model.RoleAdmin); aerr != nil {
		response.Error(w, aerr)
		return
	}

	key, err := h.keys.GenerateSuperProKey(r.Context())
	if err != nil {
		response.Error(w, domainError(err))
		return
	}
	response.Created(w, key)
}

// GenerateCard handles POST /api/v1/admin/keys/cards
func (h *KeyHandler) GenerateCard(w http.ResponseWriter, r *http.Request) {
	if _, aerr := h.access.require(r, model.RoleAdmin); aerr != nil {
		response.Error(w, aerr)
		return
	}

	key, err := h.keys.GenerateCardKey(r.Context())
	if err != nil {
		response.Error(w, domainError(err))
		return
	}
	response.Created(w, key)
}
