package handler

import (
	"encoding/json"
	"net/http"

	"stockvault-api/internal/ingest"
	"stockvault-api/internal/model"
	"stockvault-api/internal/service"
	"stockvault-api/pkg/apierror"
	"stockvault-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// IngestHandler drives the interactive stock-upload and broadcast flows.
type IngestHandler struct {
	manager *ingest.Manager
	access  access
}

// NewIngestHandler creates a new ingestion handler.
func NewIngestHandler(manager *ingest.Manager, entitlements *service.EntitlementService) *IngestHandler {
	return &IngestHandler{
		manager: manager,
		access:  access{entitlements: entitlements},
	}
}

// FeedRequest represents one inbound admin message for an open session.
type FeedRequest struct {
	Text           string `json:"text,omitempty"`
	AttachmentRef  string `json:"attachment_ref,omitempty"`
	AttachmentKind string `json:"attachment_kind,omitempty"`
	Caption        string `json:"caption,omitempty"`
}

// Start handles POST /api/v1/admin/ingestion/{kind}/start
func (h *IngestHandler) Start(w http.ResponseWriter, r *http.Request) {
	actorID, aerr := h.access.require(r, model.RoleAdmin)
	if aerr != nil {
		response.Error(w, aerr)
		return
	}

	kind, err := model.ParseKeyKind(chi.URLParam(r, "kind"))
	if err != nil {
		response.Error(w, apierror.ValidationError(err.Error()))
		return
	}

	state, serr := h.manager.StartIngestion(actorID, kind)
	if serr != nil {
		response.Error(w, domainError(serr))
		return
	}
	response.OK(w, map[string]string{"state": state.String()})
}

// Feed handles POST /api/v1/admin/ingestion/feed
func (h *IngestHandler) Feed(w http.ResponseWriter, r *http.Request) {
	actorID, aerr := h.access.require(r, model.RoleAdmin)
	if aerr != nil {
		response.Error(w, aerr)
		return
	}

	var req FeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	attachmentKind, err := model.ParseAttachmentKind(req.AttachmentKind)
	if err != nil {
		response.Error(w, apierror.ValidationError(err.Error()))
		return
	}
	if req.AttachmentRef != "" && attachmentKind == model.AttachmentNone {
		response.Error(w, apierror.ValidationError("attachment_kind is required with attachment_ref"))
		return
	}

	result, serr := h.manager.Feed(r.Context(), actorID, ingest.Input{
		Text:           req.Text,
		AttachmentRef:  req.AttachmentRef,
		AttachmentKind: attachmentKind,
		Caption:        req.Caption,
	})
	if serr != nil {
		response.Error(w, domainError(serr))
		return
	}
	response.OK(w, result)
}

// Finish handles POST /api/v1/admin/ingestion/finish
func (h *IngestHandler) Finish(w http.ResponseWriter, r *http.Request) {
	actorID, aerr := h.access.require(r, model.RoleAdmin)
	if aerr != nil {
		response.Error(w, aerr)
		return
	}

	result, err := h.manager.Finish(r.Context(), actorID)
	if err != nil {
		response.Error(w, domainError(err))
		return
	}
	response.OK(w, result)
}

// Cancel handles POST /api/v1/admin/ingestion/cancel
func (h *IngestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actorID, aerr := h.access.require(r, model.RoleAdmin)
	if aerr != nil {
		response.Error(w, aerr)
		return
	}

	if err := h.manager.Cancel(actorID); err != nil {
		response.Error(w, domainError(err))
		return
	}
	response.OK(w, map[string]string{"state": "idle"})
}

// StartBroadcast handles POST /api/v1/admin/broadcast/start. The payload
// arrives through the shared feed endpoint.
func (h *IngestHandler) StartBroadcast(w http.ResponseWriter, r *http.Request) {
	actorID, aerr := h.access.require(r, model.RoleAdmin)
	if aerr != nil {
		response.Error(w, aerr)
		return
	}

	state, err := h.manager.StartBroadcast(actorID)
	if err != nil {
		response.Error(w, domainError(err))
		return
	}
	response.OK(w, map[string]string{"state": state.String()})
}
