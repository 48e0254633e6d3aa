// db/repo_transaction.go
package db

import (
	"Gin_postgres_redis_storage_tracker/models"
	"context"
	"time"

	"gorm.io/gorm"
)

// 账本行：只读展示用，关联名字可空（用户或物品可能已删除）
type TransactionRow struct {
	ID           uint64     `json:"id"`
	Kind         string     `json:"kind"`
	WasAvailable bool       `json:"wasAvailable"`
	CreatedAt    time.Time  `json:"createdAt"`
	ReturnedAt   *time.Time `json:"returnedAt,omitempty"`

	ItemID   *string `json:"itemId,omitempty"`
	ItemName *string `json:"itemName,omitempty"`

	FromUserID   string  `json:"fromUserId"`
	FromUsername *string `json:"fromUsername,omitempty"`
	ToUserID     string  `json:"toUserId"`
	ToUsername   *string `json:"toUsername,omitempty"`
}

type TransactionsQuery struct {
	ItemID string
	UserID string // matches either side of the transfer
	Kind   string // "", "loan", "devolution"
	Page   int
	Size   int
}

type PagedTransactions struct {
	Total        int64            `json:"total"`
	Transactions []TransactionRow `json:"transactions"`
}

// ListTransactions pages the ledger ordered by id DESC. The id, not the
// timestamp, is the ordering key; inserts share commit order with it.
func (r *Repo) ListTransactions(ctx context.Context, q TransactionsQuery) (*PagedTransactions, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 || q.Size > 200 {
		q.Size = 20
	}
	offset := (q.Page - 1) * q.Size

	filter := func(tx *gorm.DB) *gorm.DB {
		if q.ItemID != "" {
			tx = tx.Where("t.item_id = ?", q.ItemID)
		}
		if q.UserID != "" {
			tx = tx.Where("t.from_user_id = ? OR t.to_user_id = ?", q.UserID, q.UserID)
		}
		if q.Kind != "" {
			tx = tx.Where("t.kind = ?", q.Kind)
		}
		return tx
	}

	db := r.DB.WithContext(ctx)

	var total int64
	if err := filter(db.Table(models.TransactionTable + " t")).Count(&total).Error; err != nil {
		return nil, err
	}

	qry := filter(db.
		Table(models.TransactionTable + " t").
		Select(`
			t.id, t.kind, t.was_available, t.created_at, t.returned_at,
			t.item_id, i.name AS item_name,
			t.from_user_id, fu.username AS from_username,
			t.to_user_id,   tu.username AS to_username
		`).
		Joins("LEFT JOIN " + models.ItemTable + " i ON i.id = t.item_id").
		Joins("LEFT JOIN stg_users fu ON fu.id = t.from_user_id").
		Joins("LEFT JOIN stg_users tu ON tu.id = t.to_user_id"))

	qry = qry.Order("t.id DESC").Offset(offset).Limit(q.Size)

	var rows []TransactionRow
	if err := qry.Scan(&rows).Error; err != nil {
		return nil, err
	}

	return &PagedTransactions{Total: total, Transactions: rows}, nil
}
