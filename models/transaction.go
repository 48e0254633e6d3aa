// models/transaction.go
package models

import "time"

const TransactionTable = "stg_transactions"

// Transaction kinds.
const (
	KindLoan       = "loan"
	KindDevolution = "devolution"
)

// Transaction is an append-only ledger entry. Rows are only ever inserted;
// the bigserial ID is the canonical ordering key (timestamps can collide).
type Transaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	// Nullable: item deletion sets this to NULL, history is never cascaded.
	ItemID *string `gorm:"type:uuid;index" json:"itemId,omitempty"`

	FromUserID string `gorm:"type:uuid;index;not null" json:"fromUserId"`
	ToUserID   string `gorm:"type:uuid;index;not null" json:"toUserId"`

	Kind string `gorm:"size:20;not null" json:"kind"`

	// Snapshot of item.is_available immediately before this entry was applied.
	WasAvailable bool `gorm:"not null" json:"wasAvailable"`

	CreatedAt  time.Time  `gorm:"index" json:"createdAt"`
	ReturnedAt *time.Time `json:"returnedAt,omitempty"`
}

func (Transaction) TableName() string { return TransactionTable }
