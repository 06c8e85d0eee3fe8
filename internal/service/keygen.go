package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"

	"stockvault-api/internal/model"
	"stockvault-api/internal/repository"
)

const (
	// keyCodePrefix brands every generated code.
	keyCodePrefix = "svk"

	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 16

	// SuperProMaxUses is the balance of the one-off SuperPro key.
	SuperProMaxUses = 1000
)

// keyTier is one preset plan in the generate-batch operation.
type keyTier struct {
	Name    string
	MaxUses int
}

// Preset tiers, lowest first.
var presetTiers = []keyTier{
	{"Bronze", 1},
	{"Silver", 2},
	{"Gold", 3},
	{"Diamond", 4},
}

// KeyService mints redemption keys.
type KeyService struct {
	ledger repository.Ledger
}

// NewKeyService creates a new key service.
func NewKeyService(ledger repository.Ledger) *KeyService {
	if ledger == nil {
		return nil
	}
	return &KeyService{ledger: ledger}
}

// GenerateKey mints a single key for an explicit plan.
func (s *KeyService) GenerateKey(ctx context.Context, kind model.KeyKind, planName string, maxUses int) (*model.RedemptionKey, error) {
	var key *model.RedemptionKey
	err := s.ledger.Update(ctx, func(tx repository.Tx) error {
		var err error
		key, err = mintKey(tx, kind, planName, maxUses)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[KeyService] generated %s key for plan %q (%d uses)", kind, planName, maxUses)
	return key, nil
}

// GenerateTierKeys mints one standard key per preset tier.
func (s *KeyService) GenerateTierKeys(ctx context.Context) ([]*model.RedemptionKey, error) {
	var keys []*model.RedemptionKey
	err := s.ledger.Update(ctx, func(tx repository.Tx) error {
		keys = keys[:0]
		for _, tier := range presetTiers {
			key, err := mintKey(tx, model.KindStandard, tier.Name, tier.MaxUses)
			if err != nil {
				return err
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[KeyService] generated %d tier keys", len(keys))
	return keys, nil
}

// GenerateSuperProKey mints the high-balance standard key.
func (s *KeyService) GenerateSuperProKey(ctx context.Context) (*model.RedemptionKey, error) {
	return s.GenerateKey(ctx, model.KindStandard, "SuperPro", SuperProMaxUses)
}

// GenerateCardKey mints a single-use card-plan key.
func (s *KeyService) GenerateCardKey(ctx context.Context) (*model.RedemptionKey, error) {
	return s.GenerateKey(ctx, model.KindCards, "Cards", 1)
}

// mintKey generates a fresh unique code and inserts the key inside the
// caller's transaction. Codes are unique across both kinds.
func mintKey(tx repository.Tx, kind model.KeyKind, planName string, maxUses int) (*model.RedemptionKey, error) {
	if planName == "" || maxUses < 1 {
		return nil, fmt.Errorf("invalid plan: name=%q max_uses=%d", planName, maxUses)
	}

	for attempt := 0; attempt < 5; attempt++ {
		code, err := randomCode(kind)
		if err != nil {
			return nil, err
		}
		existing, err := tx.GetKey(code)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}
		key := &model.RedemptionKey{Code: code, Kind: kind, PlanName: planName, MaxUses: maxUses}
		if err := tx.PutKey(key); err != nil {
			return nil, err
		}
		return key, nil
	}
	return nil, fmt.Errorf("failed to generate a unique code")
}

func randomCode(kind model.KeyKind) (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}

	tag := "gen"
	if kind == model.KindCards {
		tag = "card"
	}
	return fmt.Sprintf("%s-%s-%s", keyCodePrefix, tag, string(buf)), nil
}
