// lending/engine.go
package lending

import (
	"context"
	"time"

	"Gin_postgres_redis_storage_tracker/models"
)

// Engine applies loan and return requests against a Ledger. It keeps no
// state between calls; every decision is made against the item state read
// under the item lock, and the transaction append plus the item update
// commit (or roll back) as one unit.
type Engine struct {
	ledger Ledger
}

func NewEngine(l Ledger) *Engine { return &Engine{ledger: l} }

// Result is the outcome of a successful loan or return.
type Result struct {
	Item        *models.Item        `json:"item"`
	Transaction *models.Transaction `json:"transaction"`
}

// RequestLoan lends the item to actor.
//
// Fails with ErrItemNotFound or ErrItemNotAvailable. Owners may loan their
// own items to themselves; nothing forbids it upstream.
func (e *Engine) RequestLoan(ctx context.Context, itemID, actorID string) (*Result, error) {
	var res *Result
	err := e.ledger.WithItemLock(ctx, itemID, func(li LockedItem) error {
		it := li.Item()
		if !it.IsAvailable {
			// Already loaned. No entry is written for the losing request.
			return ErrItemNotAvailable
		}

		tx := &models.Transaction{
			ItemID:       &it.ID,
			FromUserID:   it.OwnerID,
			ToUserID:     actorID,
			Kind:         models.KindLoan,
			WasAvailable: true,
		}
		if err := li.Append(tx); err != nil {
			return err
		}

		it.IsAvailable = false
		it.CurrentLoanID = &tx.ID
		it.CurrentLoan = tx
		if err := li.Update(it); err != nil {
			return err
		}

		res = &Result{Item: it, Transaction: tx}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RequestReturn hands the item back from actor to its owner.
//
// Fails with ErrItemNotFound, ErrItemNotLoaned, or, when actor is not the
// borrower on the open loan, ErrNotAuthorizedToReturn.
func (e *Engine) RequestReturn(ctx context.Context, itemID, actorID string) (*Result, error) {
	var res *Result
	err := e.ledger.WithItemLock(ctx, itemID, func(li LockedItem) error {
		it := li.Item()
		if it.IsAvailable {
			return ErrItemNotLoaned
		}

		loan := li.CurrentLoan()
		if loan == nil || loan.ToUserID != actorID {
			return ErrNotAuthorizedToReturn
		}

		now := time.Now().UTC()
		tx := &models.Transaction{
			ItemID:       &it.ID,
			FromUserID:   actorID,
			ToUserID:     it.OwnerID,
			Kind:         models.KindDevolution,
			WasAvailable: false,
			ReturnedAt:   &now,
		}
		if err := li.Append(tx); err != nil {
			return err
		}

		it.IsAvailable = true
		it.CurrentLoanID = nil
		it.CurrentLoan = nil
		if err := li.Update(it); err != nil {
			return err
		}

		res = &Result{Item: it, Transaction: tx}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
