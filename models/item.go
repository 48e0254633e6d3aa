// models/item.go
package models

import "time"

const ItemTable = "stg_items"

type Item struct {
	ID              string `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string `gorm:"size:200;not null" json:"name"`
	Description     string `gorm:"size:500" json:"description"`
	Quantity        int    `gorm:"not null;default:1" json:"quantity"`
	StorageLocation string `gorm:"size:120" json:"storageLocation"`
	OwnerID         string `gorm:"type:uuid;index;not null" json:"ownerId"`

	// Availability and the active loan move in lock-step:
	// IsAvailable is true iff CurrentLoanID is NULL.
	IsAvailable   bool         `gorm:"not null;default:true" json:"isAvailable"`
	CurrentLoanID *uint64      `gorm:"index" json:"currentLoanId,omitempty"`
	CurrentLoan   *Transaction `gorm:"foreignKey:CurrentLoanID" json:"currentLoan,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Item) TableName() string { return ItemTable }

// Consistent reports whether the availability flag matches the loan pointer.
func (it *Item) Consistent() bool {
	return it.IsAvailable == (it.CurrentLoanID == nil)
}
