package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"stockvault-api/internal/ingest"
	"stockvault-api/internal/model"
	"stockvault-api/internal/repository"
	"stockvault-api/internal/service"
	"stockvault-api/pkg/apierror"

	"github.com/go-chi/chi/v5"
)

// actorHeader carries the chat user id of the caller, set by the gateway.
const actorHeader = "X-Actor-ID"

// domainError maps engine errors onto the API error taxonomy. Anything
// unrecognized is a store failure: logged in full, generic on the wire.
func domainError(err error) *apierror.Error {
	var noPlan *service.NoPlanError
	var noBalance *service.InsufficientBalanceError
	var noStock *service.InsufficientStockError

	switch {
	case errors.Is(err, service.ErrBanned):
		return apierror.Banned("")
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrPoolNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, ingest.ErrNoSession):
		return apierror.NotFound(err.Error())
	case errors.Is(err, service.ErrPlanActive):
		return apierror.PolicyViolation("PLAN_ACTIVE", err.Error())
	case errors.As(err, &noPlan):
		return apierror.PolicyViolation("NO_PLAN", err.Error())
	case errors.As(err, &noBalance):
		return apierror.PolicyViolation("INSUFFICIENT_BALANCE", err.Error())
	case errors.As(err, &noStock):
		return apierror.PolicyViolation("INSUFFICIENT_STOCK", err.Error())
	case errors.Is(err, service.ErrAlreadyBanned),
		errors.Is(err, service.ErrNotBanned),
		errors.Is(err, service.ErrAlreadyAdmin),
		errors.Is(err, service.ErrNotAdmin),
		errors.Is(err, ingest.ErrSessionOpen),
		errors.Is(err, ingest.ErrBadState):
		return apierror.Conflict(err.Error())
	case errors.Is(err, service.ErrSuperAdmin):
		return apierror.Forbidden(err.Error())
	case errors.Is(err, ingest.ErrNoLabel),
		errors.Is(err, ingest.ErrEmptyBuffer),
		errors.Is(err, ingest.ErrEmptyPayload),
		errors.Is(err, service.ErrEmptyPool):
		return apierror.ValidationError(err.Error())
	default:
		log.Printf("[Handler] store failure: %v", err)
		return apierror.InternalError("")
	}
}

// userIDParam parses the {user_id} URL parameter.
func userIDParam(r *http.Request) (int64, *apierror.Error) {
	raw := chi.URLParam(r, "user_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.ValidationError(fmt.Sprintf("invalid user id %q", raw))
	}
	return id, nil
}

// access resolves and enforces caller privilege for admin operations.
type access struct {
	entitlements *service.EntitlementService
}

// require parses the actor header and checks the caller holds at least the
// given role. Privilege is checked once, at operation entry.
func (a access) require(r *http.Request, min model.Role) (int64, *apierror.Error) {
	raw := r.Header.Get(actorHeader)
	actorID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || actorID <= 0 {
		return 0, apierror.ValidationError("missing or invalid " + actorHeader + " header")
	}

	role, rerr := a.entitlements.RoleOf(r.Context(), actorID)
	if rerr != nil {
		return 0, domainError(rerr)
	}
	if !role.AtLeast(min) {
		return 0, apierror.Forbidden("")
	}
	return actorID, nil
}
