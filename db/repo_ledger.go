// db/repo_ledger.go
package db

import (
	"context"
	"errors"
	"fmt"

	"Gin_postgres_redis_storage_tracker/lending"
	"Gin_postgres_redis_storage_tracker/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repo implements lending.Ledger on top of Postgres. Single-item
// serializability comes from SELECT ... FOR UPDATE on the item row: two
// requests for the same item queue on the row lock, requests for different
// items run in parallel.
var _ lending.Ledger = (*Repo)(nil)

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", lending.ErrStorageUnavailable, err)
}

type lockedItem struct {
	tx   *gorm.DB
	it   *models.Item
	loan *models.Transaction
}

var _ lending.LockedItem = (*lockedItem)(nil)

func (l *lockedItem) Item() *models.Item               { return l.it }
func (l *lockedItem) CurrentLoan() *models.Transaction { return l.loan }

func (l *lockedItem) Append(t *models.Transaction) error {
	// bigserial 主键即全局单调事务号，提交顺序与锁释放顺序一致
	if err := l.tx.Omit(clause.Associations).Create(t).Error; err != nil {
		return storageErr(err)
	}
	return nil
}

func (l *lockedItem) Update(it *models.Item) error {
	// Save writes every column, required to null out current_loan_id.
	// The ledger row itself is immutable, so associations stay untouched.
	if err := l.tx.Omit(clause.Associations).Save(it).Error; err != nil {
		return storageErr(err)
	}
	return nil
}

// WithItemLock runs fn inside one DB transaction holding the exclusive row
// lock on the item. An error from fn rolls everything back; gorm releases
// the lock on every exit path, including ctx cancellation while waiting.
func (r *Repo) WithItemLock(ctx context.Context, itemID string, fn func(li lending.LockedItem) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var it models.Item
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&it, "id = ?", itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return lending.ErrItemNotFound
			}
			return storageErr(err)
		}

		li := &lockedItem{tx: tx, it: &it}
		if it.CurrentLoanID != nil {
			var loan models.Transaction
			err := tx.First(&loan, "id = ?", *it.CurrentLoanID).Error
			switch {
			case err == nil:
				li.loan = &loan
				it.CurrentLoan = &loan
			case errors.Is(err, gorm.ErrRecordNotFound):
				// dangling pointer, treat as no open loan
			default:
				return storageErr(err)
			}
		}

		return fn(li)
	})
}
