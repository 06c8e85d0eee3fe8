package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"stockvault-api/internal/model"
	"stockvault-api/internal/repository"
)

const testSuperAdminID int64 = 999999

func newTestLedger(t *testing.T) repository.Ledger {
	t.Helper()
	ledger, err := repository.NewSQLiteLedger(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteLedger: %v", err)
	}
	t.Cleanup(func() { ledger.Close() })
	return ledger
}

func seedKey(t *testing.T, ledger repository.Ledger, key *model.RedemptionKey) {
	t.Helper()
	err := ledger.Update(context.Background(), func(tx repository.Tx) error {
		return tx.PutKey(key)
	})
	if err != nil {
		t.Fatalf("seed key: %v", err)
	}
}

func TestRedeemActivatesPlan(t *testing.T) {
	ledger := newTestLedger(t)
	svc := NewRedemptionService(ledger, testSuperAdminID)
	ctx := context.Background()

	seedKey(t, ledger, &model.RedemptionKey{Code: "svk-gen-AAAA", Kind: model.KindStandard, PlanName: "Gold", MaxUses: 3})

	res, err := svc.Redeem(ctx, 1, "svk-gen-AAAA")
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if res.Status != RedeemActivated {
		t.Fatalf("status = %q, want activated", res.Status)
	}
	if res.Plan.Name != "Gold" || res.Plan.MaxUses != 3 || res.Plan.UsedUses != 0 {
		t.Fatalf("plan = %+v", res.Plan)
	}

	// The code is single-use: a second attempt is an invalid key.
	res, err = svc.Redeem(ctx, 2, "svk-gen-AAAA")
	if err != nil {
		t.Fatalf("second Redeem: %v", err)
	}
	if res.Status != RedeemInvalidKey {
		t.Fatalf("second redeem status = %q, want invalid_key", res.Status)
	}
}

func TestRedeemRejectsWhileCurrentPlanHasBalance(t *testing.T) {
	ledger := newTestLedger(t)
	svc := NewRedemptionService(ledger, testSuperAdminID)
	ctx := context.Background()

	seedKey(t, ledger, &model.RedemptionKey{Code: "svk-gen-ONE", Kind: model.KindStandard, PlanName: "Silver", MaxUses: 2})
	seedKey(t, ledger, &model.RedemptionKey{Code: "svk-gen-TWO", Kind: model.KindStandard, PlanName: "Gold", MaxUses: 3})

	if _, err := svc.Redeem(ctx, 1, "svk-gen-ONE"); err != nil {
		t.Fatalf("first Redeem: %v", err)
	}
	if _, err := svc.Redeem(ctx, 1, "svk-gen-TWO"); !errors.Is(err, ErrPlanActive) {
		t.Fatalf("stacking redeem: got %v, want ErrPlanActive", err)
	}

	// The rejected key must survive for later use.
	err := ledger.View(ctx, func(tx repository.Tx) error {
		k, err := tx.GetKey("svk-gen-TWO")
		if err != nil {
			return err
		}
		if k == nil {
			t.Fatal("rejected key was consumed")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestRedeemOverwritesExhaustedPlan(t *testing.T) {
	ledger := newTestLedger(t)
	svc := NewRedemptionService(ledger, testSuperAdminID)
	ctx := context.Background()

	err := ledger.Update(ctx, func(tx repository.Tx) error {
		u := model.NewUser(1)
		u.Standard = model.PlanState{Name: "Bronze", MaxUses: 1, UsedUses: 1}
		return tx.PutUser(u)
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	seedKey(t, ledger, &model.RedemptionKey{Code: "svk-gen-NEW", Kind: model.KindStandard, PlanName: "Gold", MaxUses: 3})

	res, err := svc.Redeem(ctx, 1, "svk-gen-NEW")
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if res.Status != RedeemActivated || res.Plan.Name != "Gold" || res.Plan.UsedUses != 0 {
		t.Fatalf("exhausted plan not overwritten: %+v", res)
	}
}

func TestRedeemKindsAreIndependent(t *testing.T) {
	ledger := newTestLedger(t)
	svc := NewRedemptionService(ledger, testSuperAdminID)
	ctx := context.Background()

	seedKey(t, ledger, &model.RedemptionKey{Code: "svk-gen-STD", Kind: model.KindStandard, PlanName: "Gold", MaxUses: 3})
	seedKey(t, ledger, &model.RedemptionKey{Code: "svk-card-CRD", Kind: model.KindCards, PlanName: "Cards", MaxUses: 1})

	if _, err := svc.Redeem(ctx, 1, "svk-gen-STD"); err != nil {
		t.Fatalf("standard Redeem: %v", err)
	}
	res, err := svc.Redeem(ctx, 1, "svk-card-CRD")
	if err != nil {
		t.Fatalf("cards Redeem: %v", err)
	}
	if res.Status != RedeemActivated || res.Kind != model.KindCards {
		t.Fatalf("cards redeem blocked by standard plan: %+v", res)
	}
}

func TestThreeInvalidKeysBanPermanently(t *testing.T) {
	ledger := newTestLedger(t)
	svc := NewRedemptionService(ledger, testSuperAdminID)
	ctx := context.Background()

	res, err := svc.Redeem(ctx, 5, "bogus-1")
	if err != nil {
		t.Fatalf("attempt 1: %v", err)
	}
	if res.Status != RedeemInvalidKey || res.AttemptsRemaining != 2 {
		t.Fatalf("attempt 1 = %+v", res)
	}

	res, err = svc.Redeem(ctx, 5, "bogus-2")
	if err != nil {
		t.Fatalf("attempt 2: %v", err)
	}
	if res.Status != RedeemInvalidKey || res.AttemptsRemaining != 1 {
		t.Fatalf("attempt 2 = %+v", res)
	}

	res, err = svc.Redeem(ctx, 5, "bogus-3")
	if err != nil {
		t.Fatalf("attempt 3: %v", err)
	}
	if res.Status != RedeemBanned {
		t.Fatalf("attempt 3 = %+v, want banned", res)
	}

	// The ban gates the fourth call before any key lookup, even with a
	// valid code.
	seedKey(t, ledger, &model.RedemptionKey{Code: "svk-gen-VALID", Kind: model.KindStandard, PlanName: "Gold", MaxUses: 3})
	if _, err := svc.Redeem(ctx, 5, "svk-gen-VALID"); !errors.Is(err, ErrBanned) {
		t.Fatalf("post-ban redeem: got %v, want ErrBanned", err)
	}
	err = ledger.View(ctx, func(tx repository.Tx) error {
		k, err := tx.GetKey("svk-gen-VALID")
		if err != nil {
			return err
		}
		if k == nil {
			t.Fatal("banned user consumed a key")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestUnbanResetsInvalidKeyCounter(t *testing.T) {
	ledger := newTestLedger(t)
	redemption := NewRedemptionService(ledger, testSuperAdminID)
	entitlements := NewEntitlementService(ledger, testSuperAdminID, nil)
	ctx := context.Background()

	for i := 0; i < MaxInvalidKeyAttempts; i++ {
		if _, err := redemption.Redeem(ctx, 5, "bogus"); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if err := entitlements.Unban(ctx, 5); err != nil {
		t.Fatalf("Unban: %v", err)
	}

	// A fresh set of attempts, not a continuation of the old counter.
	res, err := redemption.Redeem(ctx, 5, "bogus-again")
	if err != nil {
		t.Fatalf("post-unban redeem: %v", err)
	}
	if res.Status != RedeemInvalidKey || res.AttemptsRemaining != 2 {
		t.Fatalf("post-unban result = %+v, want 2 attempts remaining", res)
	}
}

func TestSuperAdminBypassesBanCheck(t *testing.T) {
	ledger := newTestLedger(t)
	svc := NewRedemptionService(ledger, testSuperAdminID)
	ctx := context.Background()

	err := ledger.Update(ctx, func(tx repository.Tx) error {
		return tx.AddBan(testSuperAdminID)
	})
	if err != nil {
		t.Fatalf("seed ban: %v", err)
	}
	seedKey(t, ledger, &model.RedemptionKey{Code: "svk-gen-SUPER", Kind: model.KindStandard, PlanName: "Gold", MaxUses: 3})

	res, err := svc.Redeem(ctx, testSuperAdminID, "svk-gen-SUPER")
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if res.Status != RedeemActivated {
		t.Fatalf("status = %q, want activated", res.Status)
	}
}
