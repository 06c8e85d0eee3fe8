package model

// NoPlanName is the sentinel plan name for an inactive plan.
const NoPlanName = "none"

// PlanState tracks one entitlement plan for a user.
// Invariant: UsedUses <= MaxUses.
type PlanState struct {
	Name     string `json:"name"`
	MaxUses  int    `json:"max_uses"`
	UsedUses int    `json:"used_uses"`
}

// InactivePlan returns the zero-value plan state for a user without a plan.
func InactivePlan() PlanState {
	return PlanState{Name: NoPlanName}
}

// Active reports whether the plan is currently active.
func (p PlanState) Active() bool {
	return p.Name != NoPlanName
}

// Remaining returns the unused balance of the plan.
func (p PlanState) Remaining() int {
	return p.MaxUses - p.UsedUses
}

// User is a known end user with two independent entitlement plans.
// Users are created on first contact and never deleted.
type User struct {
	ID                 int64     `json:"id"`
	Standard           PlanState `json:"standard_plan"`
	Cards              PlanState `json:"cards_plan"`
	InvalidKeyAttempts int       `json:"invalid_key_attempts"`
}

// NewUser returns a fresh user record with both plans inactive.
func NewUser(id int64) *User {
	return &User{
		ID:       id,
		Standard: InactivePlan(),
		Cards:    InactivePlan(),
	}
}

// Plan returns a pointer to the plan of the given kind.
func (u *User) Plan(kind KeyKind) *PlanState {
	if kind == KindCards {
		return &u.Cards
	}
	return &u.Standard
}

// UserSummary is a user row as shown in the admin user listing.
type UserSummary struct {
	ID       int64     `json:"id"`
	Standard PlanState `json:"standard_plan"`
	Cards    PlanState `json:"cards_plan"`
	Banned   bool      `json:"banned"`
}

// Role is the privilege level attached to a caller.
type Role int

const (
	RoleUser Role = iota
	RoleAdmin
	RoleSuperAdmin
)

// String returns the role name for logging and API responses.
func (r Role) String() string {
	switch r {
	case RoleSuperAdmin:
		return "superadmin"
	case RoleAdmin:
		return "admin"
	default:
		return "user"
	}
}

// AtLeast reports whether the role grants at least the given privilege.
func (r Role) AtLeast(min Role) bool {
	return r >= min
}
