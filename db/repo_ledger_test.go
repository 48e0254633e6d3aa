package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"Gin_postgres_redis_storage_tracker/lending"
	"Gin_postgres_redis_storage_tracker/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB connects to the Postgres from the DB_* env vars and skips
// the test when none is reachable.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	get := func(k, def string) string {
		if v := os.Getenv(k); v != "" {
			return v
		}
		return def
	}
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		get("DB_HOST", "127.0.0.1"),
		get("DB_USER", "postgres"),
		get("DB_PASSWORD", "postgres"),
		get("DB_NAME", "storage_test"),
		get("DB_PORT", "5432"),
	)

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("skipping: could not connect to postgres: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Skipf("skipping: could not migrate: %v", err)
	}

	if err := conn.Exec("TRUNCATE stg_transactions, stg_items, stg_users, stg_invites CASCADE").Error; err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return conn
}

func seedUser(t *testing.T, repo *Repo) *models.User {
	t.Helper()
	u := &models.User{
		ID:           uuid.NewString(),
		Username:     "u-" + uuid.NewString()[:8],
		DisplayName:  "test user",
		PasswordHash: []byte("x"),
	}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	return u
}

func seedItem(t *testing.T, repo *Repo, ownerID string) *models.Item {
	t.Helper()
	it := &models.Item{
		ID:          uuid.NewString(),
		Name:        "soldering iron",
		Description: "60W, bench use only",
		Quantity:    1,
		OwnerID:     ownerID,
		IsAvailable: true,
	}
	require.NoError(t, repo.CreateItem(context.Background(), it))
	return it
}

func TestLedgerLoanReturnRoundTrip(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewRepo(conn)
	eng := lending.NewEngine(repo)
	ctx := context.Background()

	owner := seedUser(t, repo)
	borrower := seedUser(t, repo)
	it := seedItem(t, repo, owner.ID)

	res, err := eng.RequestLoan(ctx, it.ID, borrower.ID)
	require.NoError(t, err)
	require.NotZero(t, res.Transaction.ID)

	got, err := repo.FindItemByID(ctx, it.ID)
	require.NoError(t, err)
	assert.False(t, got.IsAvailable)
	require.NotNil(t, got.CurrentLoanID)
	assert.Equal(t, res.Transaction.ID, *got.CurrentLoanID)
	require.NotNil(t, got.CurrentLoan)
	assert.Equal(t, borrower.ID, got.CurrentLoan.ToUserID)
	assert.True(t, got.Consistent())

	ret, err := eng.RequestReturn(ctx, it.ID, borrower.ID)
	require.NoError(t, err)
	assert.Greater(t, ret.Transaction.ID, res.Transaction.ID)

	got, err = repo.FindItemByID(ctx, it.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAvailable)
	assert.Nil(t, got.CurrentLoanID)
	assert.True(t, got.Consistent())

	page, err := repo.ListTransactions(ctx, TransactionsQuery{ItemID: it.ID})
	require.NoError(t, err)
	require.Len(t, page.Transactions, 2)
	// id DESC: the devolution first.
	assert.Equal(t, models.KindDevolution, page.Transactions[0].Kind)
	assert.Equal(t, models.KindLoan, page.Transactions[1].Kind)
}

func TestLedgerConcurrentLoans(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewRepo(conn)
	eng := lending.NewEngine(repo)

	owner := seedUser(t, repo)
	it := seedItem(t, repo, owner.ID)

	const n = 8
	borrowers := make([]*models.User, n)
	for i := range borrowers {
		borrowers[i] = seedUser(t, repo)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.RequestLoan(context.Background(), it.ID, borrowers[i].ID)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		require.ErrorIs(t, err, lending.ErrItemNotAvailable)
	}
	assert.Equal(t, 1, wins)

	page, err := repo.ListTransactions(context.Background(), TransactionsQuery{ItemID: it.ID})
	require.NoError(t, err)
	assert.Len(t, page.Transactions, 1)
}

func TestLedgerItemDeletionKeepsHistory(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewRepo(conn)
	eng := lending.NewEngine(repo)
	ctx := context.Background()

	owner := seedUser(t, repo)
	borrower := seedUser(t, repo)
	it := seedItem(t, repo, owner.ID)

	_, err := eng.RequestLoan(ctx, it.ID, borrower.ID)
	require.NoError(t, err)
	_, err = eng.RequestReturn(ctx, it.ID, borrower.ID)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteItem(ctx, it.ID, owner.ID))

	_, err = repo.FindItemByID(ctx, it.ID)
	require.ErrorIs(t, err, lending.ErrItemNotFound)

	// History survives with a dangling (NULL) item reference.
	page, err := repo.ListTransactions(ctx, TransactionsQuery{UserID: borrower.ID})
	require.NoError(t, err)
	require.Len(t, page.Transactions, 2)
	for _, row := range page.Transactions {
		assert.Nil(t, row.ItemID)
		assert.Nil(t, row.ItemName)
	}

	// Both lending operations now report not-found for the gone item.
	_, err = eng.RequestLoan(ctx, it.ID, borrower.ID)
	require.ErrorIs(t, err, lending.ErrItemNotFound)
}

func TestUpdateItemAttrsOwnerOnly(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewRepo(conn)
	ctx := context.Background()

	owner := seedUser(t, repo)
	other := seedUser(t, repo)
	it := seedItem(t, repo, owner.ID)

	_, err := repo.UpdateItemAttrs(ctx, it.ID, other.ID, ItemAttrs{Name: "nope", Quantity: 1})
	require.ErrorIs(t, err, ErrNotOwner)

	got, err := repo.UpdateItemAttrs(ctx, it.ID, owner.ID, ItemAttrs{
		Name:            "soldering iron v2",
		Description:     "new tip",
		Quantity:        2,
		StorageLocation: "shelf B",
	})
	require.NoError(t, err)
	assert.Equal(t, "soldering iron v2", got.Name)
	assert.Equal(t, 2, got.Quantity)
	assert.True(t, got.IsAvailable, "attribute edits never touch availability")
}

func TestLedgerMapsNotFound(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewRepo(conn)

	err := repo.WithItemLock(context.Background(), uuid.NewString(), func(li lending.LockedItem) error {
		t.Fatal("fn must not run for a missing item")
		return nil
	})
	require.True(t, errors.Is(err, lending.ErrItemNotFound))
}
