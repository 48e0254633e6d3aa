// db/repo_item.go
package db

import (
	"Gin_postgres_redis_storage_tracker/lending"
	"Gin_postgres_redis_storage_tracker/models"
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotOwner = errors.New("not the item owner")

// Items

func (r *Repo) CreateItem(ctx context.Context, it *models.Item) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(it).Error
}

func (r *Repo) FindItemByID(ctx context.Context, id string) (*models.Item, error) {
	var it models.Item
	if err := r.DB.WithContext(ctx).Preload("CurrentLoan").First(&it, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lending.ErrItemNotFound
		}
		return nil, err
	}
	return &it, nil
}

type ItemAttrs struct {
	Name            string
	Description     string
	Quantity        int
	StorageLocation string
}

// UpdateItemAttrs edits the descriptive fields, owner only. It takes the
// same row lock as loan/return so a plain edit cannot race a concurrent
// lending decision; availability and current_loan are never touched here.
func (r *Repo) UpdateItemAttrs(ctx context.Context, itemID, ownerID string, attrs ItemAttrs) (*models.Item, error) {
	var out *models.Item
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var it models.Item
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&it, "id = ?", itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return lending.ErrItemNotFound
			}
			return err
		}
		if it.OwnerID != ownerID {
			return ErrNotOwner
		}

		it.Name = attrs.Name
		it.Description = attrs.Description
		it.Quantity = attrs.Quantity
		it.StorageLocation = attrs.StorageLocation
		if err := tx.Omit(clause.Associations).Save(&it).Error; err != nil {
			return err
		}
		out = &it
		return nil
	})
	return out, err
}

// DeleteItem removes the item row, owner only. Ledger history survives:
// the FK sets stg_transactions.item_id to NULL, nothing is cascaded.
func (r *Repo) DeleteItem(ctx context.Context, itemID, ownerID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var it models.Item
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&it, "id = ?", itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return lending.ErrItemNotFound
			}
			return err
		}
		if it.OwnerID != ownerID {
			return ErrNotOwner
		}
		return tx.Delete(&it).Error
	})
}

// 列表行：物品 + 物主 + 当前借用人（可空）
type ItemRow struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Quantity        int       `json:"quantity"`
	StorageLocation string    `json:"storageLocation"`
	IsAvailable     bool      `json:"isAvailable"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	OwnerID       string `json:"ownerId"`
	OwnerUsername string `json:"ownerUsername"`

	CurrentLoanID    *uint64    `json:"currentLoanId,omitempty"`
	BorrowerID       *string    `json:"borrowerId,omitempty"`
	BorrowerUsername *string    `json:"borrowerUsername,omitempty"`
	BorrowedAt       *time.Time `json:"borrowedAt,omitempty"`
}

type ItemsQuery struct {
	Q       string // 模糊搜索：name/description
	Status  string // "", "available", "loaned"
	OwnerID string
	Page    int
	Size    int
}

type PagedItems struct {
	Total int64     `json:"total"`
	Items []ItemRow `json:"items"`
}

func (r *Repo) ListItems(ctx context.Context, q ItemsQuery) (*PagedItems, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 || q.Size > 200 {
		q.Size = 20
	}
	offset := (q.Page - 1) * q.Size

	filter := func(tx *gorm.DB) *gorm.DB {
		if s := strings.TrimSpace(q.Q); s != "" {
			pat := "%" + strings.ToLower(s) + "%"
			tx = tx.Where("LOWER(i.name) LIKE ? OR LOWER(i.description) LIKE ?", pat, pat)
		}
		switch q.Status {
		case "available":
			tx = tx.Where("i.is_available = TRUE")
		case "loaned":
			tx = tx.Where("i.is_available = FALSE")
		}
		if q.OwnerID != "" {
			tx = tx.Where("i.owner_id = ?", q.OwnerID)
		}
		return tx
	}

	db := r.DB.WithContext(ctx)

	var total int64
	if err := filter(db.Table(models.ItemTable + " i")).Count(&total).Error; err != nil {
		return nil, err
	}

	qry := filter(db.
		Table(models.ItemTable + " i").
		Select(`
			i.id, i.name, i.description, i.quantity, i.storage_location,
			i.is_available, i.created_at, i.updated_at,
			i.owner_id, o.username AS owner_username,
			i.current_loan_id,
			t.to_user_id  AS borrower_id,
			b.username    AS borrower_username,
			t.created_at  AS borrowed_at
		`).
		Joins("LEFT JOIN "+models.TransactionTable+" t ON t.id = i.current_loan_id").
		Joins("LEFT JOIN stg_users o ON o.id = i.owner_id").
		Joins("LEFT JOIN stg_users b ON b.id = t.to_user_id"))

	qry = qry.Order("i.created_at DESC").Offset(offset).Limit(q.Size)

	var rows []ItemRow
	if err := qry.Scan(&rows).Error; err != nil {
		return nil, err
	}

	return &PagedItems{Total: total, Items: rows}, nil
}
