// lending/ledger.go
package lending

import (
	"context"

	"Gin_postgres_redis_storage_tracker/models"
)

// Ledger is the durable record the engine decides against.
//
// WithItemLock runs fn while holding an exclusive lock on the single item
// row identified by itemID. Concurrent calls for the same item serialize;
// different items never contend. The lock is released on every exit path,
// including fn errors and ctx cancellation, and when fn returns an error
// nothing fn wrote is persisted.
//
// WithItemLock fails with ErrItemNotFound when the item does not exist and
// wraps any persistence fault with ErrStorageUnavailable.
type Ledger interface {
	WithItemLock(ctx context.Context, itemID string, fn func(li LockedItem) error) error
}

// LockedItem is the view of one item while its lock is held.
type LockedItem interface {
	// Item returns the fresh row read under the lock.
	Item() *models.Item

	// CurrentLoan returns the open loan entry Item().CurrentLoanID points
	// to, or nil when the item is available. Ledger entries are immutable,
	// so the loan needs no lock of its own.
	CurrentLoan() *models.Transaction

	// Append persists tx and fills in its ID (monotonic, commit-ordered)
	// and CreatedAt. Entries are never updated or deleted afterwards.
	Append(tx *models.Transaction) error

	// Update persists the item's mutated state (availability flag and
	// current-loan pointer).
	Update(it *models.Item) error
}
