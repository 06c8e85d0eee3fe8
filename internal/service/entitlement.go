package service

import (
	"context"
	"log"

	"stockvault-api/internal/gateway"
	"stockvault-api/internal/model"
	"stockvault-api/internal/repository"
)

// Profile is the user-facing view of a user's entitlements.
type Profile struct {
	ID       int64           `json:"id"`
	Standard model.PlanState `json:"standard_plan"`
	Cards    model.PlanState `json:"cards_plan"`
	Banned   bool            `json:"banned"`
	Role     string          `json:"role"`
}

// EntitlementService owns plan balances, the ban set, and the admin set.
type EntitlementService struct {
	ledger       repository.Ledger
	superAdminID int64
	messenger    gateway.Messenger // optional, used for revoke notifications
}

// NewEntitlementService creates a new entitlement service. messenger may be
// nil; notifications are then skipped.
func NewEntitlementService(ledger repository.Ledger, superAdminID int64, messenger gateway.Messenger) *EntitlementService {
	if ledger == nil {
		return nil
	}
	return &EntitlementService{
		ledger:       ledger,
		superAdminID: superAdminID,
		messenger:    messenger,
	}
}

// Profile returns the user's plans and status, creating the record on first
// contact.
func (s *EntitlementService) Profile(ctx context.Context, userID int64) (*Profile, error) {
	var p *Profile
	err := s.ledger.Update(ctx, func(tx repository.Tx) error {
		user, err := ensureUser(tx, userID)
		if err != nil {
			return err
		}
		banned, err := tx.IsBanned(userID)
		if err != nil {
			return err
		}
		role, err := s.roleOf(tx, userID)
		if err != nil {
			return err
		}
		p = &Profile{
			ID:       user.ID,
			Standard: user.Standard,
			Cards:    user.Cards,
			Banned:   banned,
			Role:     role.String(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListUsers returns every known user with plan and ban state.
func (s *EntitlementService) ListUsers(ctx context.Context) ([]model.UserSummary, error) {
	var out []model.UserSummary
	err := s.ledger.View(ctx, func(tx repository.Tx) error {
		users, err := tx.ListUsers()
		if err != nil {
			return err
		}
		bans, err := tx.ListBans()
		if err != nil {
			return err
		}
		banned := make(map[int64]bool, len(bans))
		for _, id := range bans {
			banned[id] = true
		}
		for _, u := range users {
			out = append(out, model.UserSummary{
				ID:       u.ID,
				Standard: u.Standard,
				Cards:    u.Cards,
				Banned:   banned[u.ID],
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RevokePlans resets both of the user's plans to inactive. Irreversible.
func (s *EntitlementService) RevokePlans(ctx context.Context, userID int64) error {
	err := s.ledger.Update(ctx, func(tx repository.Tx) error {
		user, err := tx.GetUser(userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		user.Standard = model.InactivePlan()
		user.Cards = model.InactivePlan()
		return tx.PutUser(user)
	})
	if err != nil {
		return err
	}

	log.Printf("[EntitlementService] plans revoked for user=%d", userID)
	if s.messenger != nil {
		// Outside the transaction: delivery failure must not undo the revoke.
		if err := s.messenger.Send(ctx, userID, gateway.Payload{
			Text: "Your premium plan has been removed by an administrator.",
		}); err != nil {
			log.Printf("[EntitlementService] failed to notify user %d: %v", userID, err)
		}
	}
	return nil
}

// Ban adds the user to the ban set.
func (s *EntitlementService) Ban(ctx context.Context, userID int64) error {
	return s.ledger.Update(ctx, func(tx repository.Tx) error {
		banned, err := tx.IsBanned(userID)
		if err != nil {
			return err
		}
		if banned {
			return ErrAlreadyBanned
		}
		return tx.AddBan(userID)
	})
}

// Unban removes the ban and resets the invalid-key counter, giving the user
// a fresh set of attempts.
func (s *EntitlementService) Unban(ctx context.Context, userID int64) error {
	return s.ledger.Update(ctx, func(tx repository.Tx) error {
		banned, err := tx.IsBanned(userID)
		if err != nil {
			return err
		}
		if !banned {
			return ErrNotBanned
		}
		if err := tx.RemoveBan(userID); err != nil {
			return err
		}
		user, err := tx.GetUser(userID)
		if err != nil {
			return err
		}
		if user != nil {
			user.InvalidKeyAttempts = 0
			return tx.PutUser(user)
		}
		return nil
	})
}

// IsBanned reports the user's ban state.
func (s *EntitlementService) IsBanned(ctx context.Context, userID int64) (bool, error) {
	var banned bool
	err := s.ledger.View(ctx, func(tx repository.Tx) error {
		var err error
		banned, err = tx.IsBanned(userID)
		return err
	})
	return banned, err
}

// PromoteAdmin adds the user to the admin set. The caller must be the
// super-admin; that is enforced at the API entry.
func (s *EntitlementService) PromoteAdmin(ctx context.Context, userID int64) error {
	if userID == s.superAdminID {
		return ErrAlreadyAdmin
	}
	return s.ledger.Update(ctx, func(tx repository.Tx) error {
		admin, err := tx.IsAdmin(userID)
		if err != nil {
			return err
		}
		if admin {
			return ErrAlreadyAdmin
		}
		return tx.AddAdmin(userID)
	})
}

// DemoteAdmin removes the user from the admin set. The super-admin id is
// never removable.
func (s *EntitlementService) DemoteAdmin(ctx context.Context, userID int64) error {
	if userID == s.superAdminID {
		return ErrSuperAdmin
	}
	return s.ledger.Update(ctx, func(tx repository.Tx) error {
		admin, err := tx.IsAdmin(userID)
		if err != nil {
			return err
		}
		if !admin {
			return ErrNotAdmin
		}
		return tx.RemoveAdmin(userID)
	})
}

// RoleOf resolves the caller's privilege level.
func (s *EntitlementService) RoleOf(ctx context.Context, userID int64) (model.Role, error) {
	var role model.Role
	err := s.ledger.View(ctx, func(tx repository.Tx) error {
		var err error
		role, err = s.roleOf(tx, userID)
		return err
	})
	return role, err
}

func (s *EntitlementService) roleOf(tx repository.Tx, userID int64) (model.Role, error) {
	if userID == s.superAdminID {
		return model.RoleSuperAdmin, nil
	}
	admin, err := tx.IsAdmin(userID)
	if err != nil {
		return model.RoleUser, err
	}
	if admin {
		return model.RoleAdmin, nil
	}
	return model.RoleUser, nil
}
