package service

import (
	"errors"
	"fmt"
)

// Domain errors. Handlers map these onto the API error taxonomy; none of
// them leaves partial mutations behind (the ledger transaction rolls back).
var (
	ErrBanned        = errors.New("user is banned")
	ErrUserNotFound  = errors.New("user not found")
	ErrPoolNotFound  = errors.New("pool not found")
	ErrPlanActive    = errors.New("a plan of this kind is already active with remaining uses")
	ErrAlreadyBanned = errors.New("user is already banned")
	ErrNotBanned     = errors.New("user is not banned")
	ErrAlreadyAdmin  = errors.New("user is already an admin")
	ErrNotAdmin      = errors.New("user is not an admin")
	ErrSuperAdmin    = errors.New("the super-admin cannot be demoted")
	ErrEmptyPool     = errors.New("pool name and at least one item are required")
)

// NoPlanError reports a fetch against a namespace whose plan is inactive.
type NoPlanError struct {
	Kind string
}

func (e *NoPlanError) Error() string {
	return fmt.Sprintf("no active %s plan", e.Kind)
}

// InsufficientBalanceError reports a fetch beyond the plan's remaining uses.
type InsufficientBalanceError struct {
	Remaining int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: %d uses remaining", e.Remaining)
}

// InsufficientStockError reports a fetch beyond the pool's depth.
type InsufficientStockError struct {
	Pool string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.Pool)
}
