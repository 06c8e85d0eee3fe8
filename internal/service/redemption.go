package service

import (
	"context"
	"log"

	"stockvault-api/internal/model"
	"stockvault-api/internal/repository"
)

// MaxInvalidKeyAttempts is the abuse threshold: the attempt that reaches it
// bans the user permanently.
const MaxInvalidKeyAttempts = 3

// RedeemStatus is the outcome class of a redemption attempt.
type RedeemStatus string

const (
	RedeemActivated  RedeemStatus = "activated"
	RedeemInvalidKey RedeemStatus = "invalid_key"
	RedeemBanned     RedeemStatus = "banned"
)

// RedeemResult describes what a redemption attempt did.
type RedeemResult struct {
	Status            RedeemStatus    `json:"status"`
	Kind              model.KeyKind   `json:"kind,omitempty"`
	Plan              model.PlanState `json:"plan,omitempty"`
	AttemptsRemaining int             `json:"attempts_remaining,omitempty"`
}

// RedemptionService validates and consumes one-time keys.
type RedemptionService struct {
	ledger       repository.Ledger
	superAdminID int64
}

// NewRedemptionService creates a new redemption service.
func NewRedemptionService(ledger repository.Ledger, superAdminID int64) *RedemptionService {
	if ledger == nil {
		return nil
	}
	return &RedemptionService{ledger: ledger, superAdminID: superAdminID}
}

// Redeem consumes a one-time code for the user. The ban check, the key
// lookup and deletion, the plan activation, and the abuse counter all run
// in one ledger transaction.
func (s *RedemptionService) Redeem(ctx context.Context, userID int64, code string) (*RedeemResult, error) {
	var result *RedeemResult

	err := s.ledger.Update(ctx, func(tx repository.Tx) error {
		if userID != s.superAdminID {
			banned, err := tx.IsBanned(userID)
			if err != nil {
				return err
			}
			if banned {
				return ErrBanned
			}
		}

		user, err := ensureUser(tx, userID)
		if err != nil {
			return err
		}

		key, err := tx.GetKey(code)
		if err != nil {
			return err
		}

		if key == nil {
			user.InvalidKeyAttempts++
			if err := tx.PutUser(user); err != nil {
				return err
			}
			if user.InvalidKeyAttempts >= MaxInvalidKeyAttempts {
				if err := tx.AddBan(userID); err != nil {
					return err
				}
				result = &RedeemResult{Status: RedeemBanned}
				return nil
			}
			result = &RedeemResult{
				Status:            RedeemInvalidKey,
				AttemptsRemaining: MaxInvalidKeyAttempts - user.InvalidKeyAttempts,
			}
			return nil
		}

		// A still-unexhausted active plan of the same kind blocks the
		// redemption; a fully used plan may be overwritten.
		plan := user.Plan(key.Kind)
		if plan.Active() && plan.Remaining() > 0 {
			return ErrPlanActive
		}

		if err := tx.DeleteKey(code); err != nil {
			return err
		}
		*plan = model.PlanState{Name: key.PlanName, MaxUses: key.MaxUses}
		if err := tx.PutUser(user); err != nil {
			return err
		}

		result = &RedeemResult{Status: RedeemActivated, Kind: key.Kind, Plan: *plan}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch result.Status {
	case RedeemActivated:
		log.Printf("[RedemptionService] user=%d activated %s plan %q (%d uses)",
			userID, result.Kind, result.Plan.Name, result.Plan.MaxUses)
	case RedeemBanned:
		log.Printf("[RedemptionService] user=%d auto-banned after %d invalid key attempts",
			userID, MaxInvalidKeyAttempts)
	}
	return result, nil
}

// ensureUser loads the user record, creating it on first contact.
func ensureUser(tx repository.Tx, id int64) (*model.User, error) {
	user, err := tx.GetUser(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user = model.NewUser(id)
		if err := tx.PutUser(user); err != nil {
			return nil, err
		}
	}
	return user, nil
}
