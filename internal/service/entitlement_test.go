package service

import (
	"context"
	"errors"
	"testing"

	"stockvault-api/internal/gateway"
	"stockvault-api/internal/model"
	"stockvault-api/internal/repository"
)

// fakeMessenger records deliveries and can fail selected recipients.
type fakeMessenger struct {
	sent   []int64
	failFn func(userID int64) bool
}

func (f *fakeMessenger) Send(ctx context.Context, userID int64, payload gateway.Payload) error {
	if f.failFn != nil && f.failFn(userID) {
		return errors.New("delivery failed")
	}
	f.sent = append(f.sent, userID)
	return nil
}

func TestProfileCreatesUserOnFirstContact(t *testing.T) {
	ledger := newTestLedger(t)
	svc := NewEntitlementService(ledger, testSuperAdminID, nil)
	ctx := context.Background()

	p, err := svc.Profile(ctx, 1)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.ID != 1 || p.Standard.Active() || p.Cards.Active() || p.Banned {
		t.Fatalf("fresh profile = %+v", p)
	}
	if p.Role != "user" {
		t.Fatalf("role = %q, want user", p.Role)
	}

	err = ledger.View(ctx, func(tx repository.Tx) error {
		u, err := tx.GetUser(1)
		if err != nil {
			return err
		}
		if u == nil {
			t.Fatal("profile lookup did not persist the user")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestRevokePlans(t *testing.T) {
	ledger := newTestLedger(t)
	messenger := &fakeMessenger{}
	svc := NewEntitlementService(ledger, testSuperAdminID, messenger)
	ctx := context.Background()

	err := ledger.Update(ctx, func(tx repository.Tx) error {
		u := model.NewUser(1)
		u.Standard = model.PlanState{Name: "Gold", MaxUses: 3, UsedUses: 1}
		u.Cards = model.PlanState{Name: "Cards", MaxUses: 1}
		return tx.PutUser(u)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := svc.RevokePlans(ctx, 1); err != nil {
		t.Fatalf("RevokePlans: %v", err)
	}
	if len(messenger.sent) != 1 || messenger.sent[0] != 1 {
		t.Fatalf("notification not delivered: %v", messenger.sent)
	}

	err = ledger.View(ctx, func(tx repository.Tx) error {
		u, err := tx.GetUser(1)
		if err != nil {
			return err
		}
		if u.Standard.Active() || u.Cards.Active() {
			t.Fatalf("plans survived revoke: %+v", u)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}

	if err := svc.RevokePlans(ctx, 404); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("revoking unknown user: got %v, want ErrUserNotFound", err)
	}
}

func TestRevokeSurvivesNotificationFailure(t *testing.T) {
	ledger := newTestLedger(t)
	messenger := &fakeMessenger{failFn: func(int64) bool { return true }}
	svc := NewEntitlementService(ledger, testSuperAdminID, messenger)
	ctx := context.Background()

	err := ledger.Update(ctx, func(tx repository.Tx) error {
		u := model.NewUser(1)
		u.Standard = model.PlanState{Name: "Gold", MaxUses: 3}
		return tx.PutUser(u)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := svc.RevokePlans(ctx, 1); err != nil {
		t.Fatalf("RevokePlans: %v", err)
	}
	err = ledger.View(ctx, func(tx repository.Tx) error {
		u, err := tx.GetUser(1)
		if err != nil {
			return err
		}
		if u.Standard.Active() {
			t.Fatal("revoke undone by delivery failure")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestBanUnban(t *testing.T) {
	ledger := newTestLedger(t)
	svc := NewEntitlementService(ledger, testSuperAdminID, nil)
	ctx := context.Background()

	if err := svc.Ban(ctx, 1); err != nil {
		t.Fatalf("Ban: %v", err)
	}
	if err := svc.Ban(ctx, 1); !errors.Is(err, ErrAlreadyBanned) {
		t.Fatalf("double ban: got %v, want ErrAlreadyBanned", err)
	}
	banned, err := svc.IsBanned(ctx, 1)
	if err != nil || !banned {
		t.Fatalf("IsBanned = %v, %v", banned, err)
	}
	if err := svc.Unban(ctx, 1); err != nil {
		t.Fatalf("Unban: %v", err)
	}
	if err := svc.Unban(ctx, 1); !errors.Is(err, ErrNotBanned) {
		t.Fatalf("double unban: got %v, want ErrNotBanned", err)
	}
}

func TestListUsersCarriesBanFlag(t *testing.T) {
	ledger := newTestLedger(t)
	svc := NewEntitlementService(ledger, testSuperAdminID, nil)
	ctx := context.Background()

	err := ledger.Update(ctx, func(tx repository.Tx) error {
		if err := tx.PutUser(model.NewUser(1)); err != nil {
			return err
		}
		if err := tx.PutUser(model.NewUser(2)); err != nil {
			return err
		}
		return tx.AddBan(2)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	users, err := svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
	if users[0].Banned || !users[1].Banned {
		t.Fatalf("ban flags wrong: %+v", users)
	}
}

func TestPromoteDemoteAdmin(t *testing.T) {
	ledger := newTestLedger(t)
	svc := NewEntitlementService(ledger, testSuperAdminID, nil)
	ctx := context.Background()

	if err := svc.PromoteAdmin(ctx, 1); err != nil {
		t.Fatalf("PromoteAdmin: %v", err)
	}
	if err := svc.PromoteAdmin(ctx, 1); !errors.Is(err, ErrAlreadyAdmin) {
		t.Fatalf("double promote: got %v, want ErrAlreadyAdmin", err)
	}
	role, err := svc.RoleOf(ctx, 1)
	if err != nil || role != model.RoleAdmin {
		t.Fatalf("RoleOf = %v, %v", role, err)
	}

	if err := svc.DemoteAdmin(ctx, 1); err != nil {
		t.Fatalf("DemoteAdmin: %v", err)
	}
	if err := svc.DemoteAdmin(ctx, 1); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("double demote: got %v, want ErrNotAdmin", err)
	}
}

func TestSuperAdminGuards(t *testing.T) {
	ledger := newTestLedger(t)
	svc := NewEntitlementService(ledger, testSuperAdminID, nil)
	ctx := context.Background()

	role, err := svc.RoleOf(ctx, testSuperAdminID)
	if err != nil || role != model.RoleSuperAdmin {
		t.Fatalf("RoleOf(super) = %v, %v", role, err)
	}
	if err := svc.PromoteAdmin(ctx, testSuperAdminID); !errors.Is(err, ErrAlreadyAdmin) {
		t.Fatalf("promoting super-admin: got %v, want ErrAlreadyAdmin", err)
	}
	if err := svc.DemoteAdmin(ctx, testSuperAdminID); !errors.Is(err, ErrSuperAdmin) {
		t.Fatalf("demoting super-admin: got %v, want ErrSuperAdmin", err)
	}
}
