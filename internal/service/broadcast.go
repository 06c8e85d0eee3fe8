package service

import (
	"context"
	"log"

	"stockvault-api/internal/gateway"
	"stockvault-api/internal/repository"
)

// BroadcastReport counts the outcome of one broadcast run.
type BroadcastReport struct {
	Recipients int `json:"recipients"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}

// BroadcastService delivers one payload to every known user.
type BroadcastService struct {
	ledger    repository.Ledger
	messenger gateway.Messenger
}

// NewBroadcastService creates a new broadcast service.
func NewBroadcastService(ledger repository.Ledger, messenger gateway.Messenger) *BroadcastService {
	if ledger == nil || messenger == nil {
		return nil
	}
	return &BroadcastService{ledger: ledger, messenger: messenger}
}

// Send delivers the payload to every known user id. Per-recipient failures
// are counted and skipped; they never abort the run.
func (s *BroadcastService) Send(ctx context.Context, payload gateway.Payload) (*BroadcastReport, error) {
	var ids []int64
	err := s.ledger.View(ctx, func(tx repository.Tx) error {
		users, err := tx.ListUsers()
		if err != nil {
			return err
		}
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report := &BroadcastReport{Recipients: len(ids)}
	for _, id := range ids {
		if err := s.messenger.Send(ctx, id, payload); err != nil {
			report.Failed++
			log.Printf("[BroadcastService] failed to deliver to user %d: %v", id, err)
			continue
		}
		report.Sent++
	}

	log.Printf("[BroadcastService] broadcast complete: sent=%d failed=%d", report.Sent, report.Failed)
	return report, nil
}
