package service

import (
	"context"
	"log"
	"strings"

	"stockvault-api/internal/model"
	"stockvault-api/internal/repository"
)

// FetchResult carries the delivered items plus the usage state after the
// consumption committed.
type FetchResult struct {
	Pool         string        `json:"pool"`
	Kind         model.KeyKind `json:"kind"`
	Items        []model.Item  `json:"items"`
	UsageMessage string        `json:"usage_message,omitempty"`
	UsedUses     int           `json:"used_uses"`
	MaxUses      int           `json:"max_uses"`
}

// InventoryService owns the FIFO pools and the usage-cap arithmetic.
type InventoryService struct {
	ledger       repository.Ledger
	superAdminID int64
}

// NewInventoryService creates a new inventory service.
func NewInventoryService(ledger repository.Ledger, superAdminID int64) *InventoryService {
	if ledger == nil {
		return nil
	}
	return &InventoryService{ledger: ledger, superAdminID: superAdminID}
}

// Fetch atomically removes quantity items from the front of a pool and
// charges them against the matching plan. Any policy failure rolls the
// transaction back, so a failed fetch never mutates state.
func (s *InventoryService) Fetch(ctx context.Context, userID int64, poolKey string, quantity int) (*FetchResult, error) {
	var result *FetchResult

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

		// Standard pools shadow card pools of the same name.
		kind := model.KindStandard
		pool, err := tx.GetPool(model.KindStandard, poolKey)
		if err != nil {
			return err
		}
		if pool == nil {
			kind = model.KindCards
			pool, err = tx.GetPool(model.KindCards, poolKey)
			if err != nil {
				return err
			}
		}
		if pool == nil {
			return ErrPoolNotFound
		}

		plan := user.Plan(kind)
		if !plan.Active() {
			return &NoPlanError{Kind: string(kind)}
		}
		// Balance is always computed from committed state, never from a
		// partially applied fetch.
		if quantity > plan.Remaining() {
			return &InsufficientBalanceError{Remaining: plan.Remaining()}
		}
		if len(pool.Items) < quantity {
			return &InsufficientStockError{Pool: pool.Name}
		}

		items, err := tx.ConsumeItems(kind, pool.Name, quantity)
		if err != nil {
			return err
		}
		plan.UsedUses += quantity
		if err := tx.PutUser(user); err != nil {
			return err
		}

		result = &FetchResult{
			Pool:         pool.Name,
			Kind:         kind,
			Items:        items,
			UsageMessage: pool.UsageMessage,
			UsedUses:     plan.UsedUses,
			MaxUses:      plan.MaxUses,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[InventoryService] user=%d fetched %d item(s) from %s/%s (%d/%d uses)",
		userID, quantity, result.Kind, result.Pool, result.UsedUses, result.MaxUses)
	return result, nil
}

// StockSummary lists every pool of a kind with its remaining depth.
func (s *InventoryService) StockSummary(ctx context.Context, kind model.KeyKind) ([]model.PoolSummary, error) {
	var out []model.PoolSummary
	err := s.ledger.View(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.ListPools(kind)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReplacePool overwrites the whole pool entry at the given key. This is the
// ingestion commit: re-stocking a key replaces any unconsumed items from a
// previous batch.
func (s *InventoryService) ReplacePool(ctx context.Context, kind model.KeyKind, name, usageMessage string, items []model.Item) error {
	name = strings.TrimSpace(name)
	if name == "" || len(items) == 0 {
		return ErrEmptyPool
	}

	err := s.ledger.Update(ctx, func(tx repository.Tx) error {
		return tx.PutPool(&model.Pool{
			Kind:         kind,
			Name:         name,
			UsageMessage: usageMessage,
			Items:        items,
		})
	})
	if err != nil {
		return err
	}

	log.Printf("[InventoryService] pool %s/%s replaced with %d item(s)", kind, strings.ToLower(name), len(items))
	return nil
}
