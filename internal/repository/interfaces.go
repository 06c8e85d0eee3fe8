package repository

import (
	"context"
	"errors"

	"stockvault-api/internal/model"
)

// ErrNotFound is returned by Tx accessors when a record does not exist and
// the caller asked for a hard lookup.
var ErrNotFound = errors.New("record not found")

// Tx gives access to every ledger collection inside one transaction.
// All reads observe, and all writes join, the same atomic commit.
type Tx interface {
	// GetUser returns the user record, or nil if the user is unknown.
	GetUser(id int64) (*model.User, error)

	// PutUser inserts or replaces the user record.
	PutUser(u *model.User) error

	// ListUsers returns every known user ordered by id.
	ListUsers() ([]*model.User, error)

	// GetKey returns the redemption key for a code across both kinds,
	// or nil if the code is unknown.
	GetKey(code string) (*model.RedemptionKey, error)

	// PutKey inserts a redemption key. Codes are unique across both kinds.
	PutKey(k *model.RedemptionKey) error

	// DeleteKey removes a code permanently. Deleting an absent code is
	// ErrNotFound.
	DeleteKey(code string) error

	// GetPool resolves a pool by case-insensitive name within a kind,
	// including its items in FIFO order, or nil if absent.
	GetPool(kind model.KeyKind, name string) (*model.Pool, error)

	// PutPool replaces the whole pool entry (message and items) at the
	// pool's case-insensitive key.
	PutPool(p *model.Pool) error

	// ConsumeItems removes and returns the first n items of a pool.
	// The pool must hold at least n items; callers check depth first.
	ConsumeItems(kind model.KeyKind, name string, n int) ([]model.Item, error)

	// ListPools returns name and depth for every pool of a kind.
	ListPools(kind model.KeyKind) ([]model.PoolSummary, error)

	// Ban set.
	IsBanned(id int64) (bool, error)
	AddBan(id int64) error
	RemoveBan(id int64) error
	ListBans() ([]int64, error)

	// Admin set. The super-admin id is configured out of band and is not
	// stored here.
	IsAdmin(id int64) (bool, error)
	AddAdmin(id int64) error
	RemoveAdmin(id int64) error
}

// Ledger is the persistent store behind the engine. Update runs the
// closure inside a single writable transaction: the closure's mutations
// commit together or not at all. View is read-only.
type Ledger interface {
	View(ctx context.Context, fn func(tx Tx) error) error
	Update(ctx context.Context, fn func(tx Tx) error) error

	// Stats returns operational statistics for the admin surface.
	Stats(ctx context.Context) (map[string]interface{}, error)

	Close() error
}
