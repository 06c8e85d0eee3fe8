package service

import (
	"context"
	"testing"

	"stockvault-api/internal/gateway"
	"stockvault-api/internal/model"
	"stockvault-api/internal/repository"
)

func TestBroadcastCountsFailures(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	err := ledger.Update(ctx, func(tx repository.Tx) error {
		for _, id := range []int64{1, 2, 3, 4} {
			if err := tx.PutUser(model.NewUser(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	messenger := &fakeMessenger{failFn: func(id int64) bool { return id%2 == 0 }}
	svc := NewBroadcastService(ledger, messenger)

	report, err := svc.Send(ctx, gateway.Payload{Text: "maintenance tonight"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if report.Recipients != 4 || report.Sent != 2 || report.Failed != 2 {
		t.Fatalf("report = %+v", report)
	}
	if len(messenger.sent) != 2 {
		t.Fatalf("delivered to %v", messenger.sent)
	}
}

func TestBroadcastWithNoUsers(t *testing.T) {
	ledger := newTestLedger(t)
	svc := NewBroadcastService(ledger, &fakeMessenger{})

	report, err := svc.Send(context.Background(), gateway.Payload{Text: "hello"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if report.Recipients != 0 || report.Sent != 0 || report.Failed != 0 {
		t.Fatalf("report = %+v", report)
	}
}
