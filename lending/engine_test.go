package lending

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"Gin_postgres_redis_storage_tracker/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memLedger is an in-memory Ledger with the same contract as the Postgres
// one: per-item exclusive locking, monotonic transaction ids, and
// all-or-nothing commit of what fn writes.
type memLedger struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	items map[string]*models.Item

	ledger []*models.Transaction
	nextID uint64

	failAppend bool
}

func newMemLedger() *memLedger {
	return &memLedger{
		locks: make(map[string]*sync.Mutex),
		items: make(map[string]*models.Item),
	}
}

func (m *memLedger) itemLock(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

func (m *memLedger) addItem(ownerID string) *models.Item {
	it := &models.Item{
		ID:          uuid.NewString(),
		Name:        "hammer",
		Quantity:    1,
		OwnerID:     ownerID,
		IsAvailable: true,
	}
	m.mu.Lock()
	m.items[it.ID] = it
	m.mu.Unlock()
	return it
}

func (m *memLedger) snapshot(id string) models.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.items[id]
}

func (m *memLedger) entries() []*models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Transaction, len(m.ledger))
	copy(out, m.ledger)
	return out
}

type memLockedItem struct {
	l       *memLedger
	it      *models.Item
	loan    *models.Transaction
	staged  []*models.Transaction
	updated *models.Item
}

func (li *memLockedItem) Item() *models.Item               { return li.it }
func (li *memLockedItem) CurrentLoan() *models.Transaction { return li.loan }

func (li *memLockedItem) Append(t *models.Transaction) error {
	if li.l.failAppend {
		return fmt.Errorf("%w: connection refused", ErrStorageUnavailable)
	}
	li.l.mu.Lock()
	li.l.nextID++
	t.ID = li.l.nextID
	li.l.mu.Unlock()
	t.CreatedAt = time.Now().UTC()
	li.staged = append(li.staged, t)
	return nil
}

func (li *memLockedItem) Update(it *models.Item) error {
	li.updated = it
	return nil
}

func (m *memLedger) WithItemLock(ctx context.Context, itemID string, fn func(li LockedItem) error) error {
	lock := m.itemLock(itemID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	stored, ok := m.items[itemID]
	m.mu.Unlock()
	if !ok {
		return ErrItemNotFound
	}

	// fn works on a copy; nothing is visible until it returns nil.
	it := *stored
	li := &memLockedItem{l: m, it: &it}
	if it.CurrentLoanID != nil {
		for _, t := range m.entries() {
			if t.ID == *it.CurrentLoanID {
				li.loan = t
				it.CurrentLoan = t
				break
			}
		}
	}

	if err := fn(li); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger = append(m.ledger, li.staged...)
	if li.updated != nil {
		cp := *li.updated
		m.items[itemID] = &cp
	}
	return nil
}

var _ Ledger = (*memLedger)(nil)

func TestRequestLoan(t *testing.T) {
	owner := uuid.NewString()
	borrower := uuid.NewString()

	mem := newMemLedger()
	it := mem.addItem(owner)
	eng := NewEngine(mem)

	res, err := eng.RequestLoan(context.Background(), it.ID, borrower)
	require.NoError(t, err)
	require.NotNil(t, res)

	tx := res.Transaction
	assert.Equal(t, models.KindLoan, tx.Kind)
	assert.Equal(t, owner, tx.FromUserID)
	assert.Equal(t, borrower, tx.ToUserID)
	assert.True(t, tx.WasAvailable, "snapshot taken before the loan was applied")
	require.NotNil(t, tx.ItemID)
	assert.Equal(t, it.ID, *tx.ItemID)

	got := mem.snapshot(it.ID)
	assert.False(t, got.IsAvailable)
	require.NotNil(t, got.CurrentLoanID)
	assert.Equal(t, tx.ID, *got.CurrentLoanID)
	assert.True(t, got.Consistent())

	assert.Len(t, mem.entries(), 1)
}

func TestRequestLoanAlreadyLoaned(t *testing.T) {
	owner := uuid.NewString()

	mem := newMemLedger()
	it := mem.addItem(owner)
	eng := NewEngine(mem)

	_, err := eng.RequestLoan(context.Background(), it.ID, uuid.NewString())
	require.NoError(t, err)

	// Second loan with no return in between is rejected with no side effect.
	res, err := eng.RequestLoan(context.Background(), it.ID, uuid.NewString())
	require.ErrorIs(t, err, ErrItemNotAvailable)
	assert.Nil(t, res)
	assert.Len(t, mem.entries(), 1, "no entry is written for the losing request")
	snap := mem.snapshot(it.ID)
	assert.True(t, snap.Consistent())
}

func TestRequestLoanItemNotFound(t *testing.T) {
	mem := newMemLedger()
	eng := NewEngine(mem)

	_, err := eng.RequestLoan(context.Background(), uuid.NewString(), uuid.NewString())
	require.ErrorIs(t, err, ErrItemNotFound)

	_, err = eng.RequestReturn(context.Background(), uuid.NewString(), uuid.NewString())
	require.ErrorIs(t, err, ErrItemNotFound)

	assert.Empty(t, mem.entries())
}

func TestRequestReturn(t *testing.T) {
	owner := uuid.NewString()
	borrower := uuid.NewString()

	mem := newMemLedger()
	it := mem.addItem(owner)
	eng := NewEngine(mem)

	_, err := eng.RequestLoan(context.Background(), it.ID, borrower)
	require.NoError(t, err)

	res, err := eng.RequestReturn(context.Background(), it.ID, borrower)
	require.NoError(t, err)

	tx := res.Transaction
	assert.Equal(t, models.KindDevolution, tx.Kind)
	assert.Equal(t, borrower, tx.FromUserID)
	assert.Equal(t, owner, tx.ToUserID)
	assert.False(t, tx.WasAvailable)
	require.NotNil(t, tx.ReturnedAt)

	got := mem.snapshot(it.ID)
	assert.True(t, got.IsAvailable)
	assert.Nil(t, got.CurrentLoanID)
	assert.True(t, got.Consistent())

	assert.Len(t, mem.entries(), 2)
}

func TestRequestReturnNotLoaned(t *testing.T) {
	mem := newMemLedger()
	it := mem.addItem(uuid.NewString())
	eng := NewEngine(mem)

	res, err := eng.RequestReturn(context.Background(), it.ID, uuid.NewString())
	require.ErrorIs(t, err, ErrItemNotLoaned)
	assert.Nil(t, res)
	assert.Empty(t, mem.entries())
}

func TestRequestReturnWrongBorrower(t *testing.T) {
	owner := uuid.NewString()
	borrower := uuid.NewString()
	stranger := uuid.NewString()

	mem := newMemLedger()
	it := mem.addItem(owner)
	eng := NewEngine(mem)

	loaned, err := eng.RequestLoan(context.Background(), it.ID, borrower)
	require.NoError(t, err)

	res, err := eng.RequestReturn(context.Background(), it.ID, stranger)
	require.ErrorIs(t, err, ErrNotAuthorizedToReturn)
	assert.Nil(t, res)

	// Zero new entries and no state change.
	assert.Len(t, mem.entries(), 1)
	got := mem.snapshot(it.ID)
	assert.False(t, got.IsAvailable)
	require.NotNil(t, got.CurrentLoanID)
	assert.Equal(t, loaned.Transaction.ID, *got.CurrentLoanID)
}

func TestSelfLoanAllowed(t *testing.T) {
	owner := uuid.NewString()

	mem := newMemLedger()
	it := mem.addItem(owner)
	eng := NewEngine(mem)

	// The owner borrowing their own item is permitted.
	res, err := eng.RequestLoan(context.Background(), it.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, owner, res.Transaction.FromUserID)
	assert.Equal(t, owner, res.Transaction.ToUserID)

	_, err = eng.RequestReturn(context.Background(), it.ID, owner)
	require.NoError(t, err)
}

func TestLoanReturnLoanOrdering(t *testing.T) {
	owner := uuid.NewString()
	userA := uuid.NewString()
	userB := uuid.NewString()

	mem := newMemLedger()
	it := mem.addItem(owner)
	eng := NewEngine(mem)
	ctx := context.Background()

	// (a) A loans X.
	r1, err := eng.RequestLoan(ctx, it.ID, userA)
	require.NoError(t, err)

	// (b) B tries while X is out.
	_, err = eng.RequestLoan(ctx, it.ID, userB)
	require.ErrorIs(t, err, ErrItemNotAvailable)

	// (c) A returns X.
	r2, err := eng.RequestReturn(ctx, it.ID, userA)
	require.NoError(t, err)

	// (d) B loans X.
	r3, err := eng.RequestLoan(ctx, it.ID, userB)
	require.NoError(t, err)

	// Three entries total, ids strictly increasing in commit order.
	entries := mem.entries()
	require.Len(t, entries, 3)
	assert.Less(t, r1.Transaction.ID, r2.Transaction.ID)
	assert.Less(t, r2.Transaction.ID, r3.Transaction.ID)

	got := mem.snapshot(it.ID)
	assert.False(t, got.IsAvailable)
	require.NotNil(t, got.CurrentLoanID)
	assert.Equal(t, r3.Transaction.ID, *got.CurrentLoanID)
	assert.Equal(t, userB, r3.Transaction.ToUserID)
}

func TestConcurrentLoansSingleWinner(t *testing.T) {
	const n = 32

	owner := uuid.NewString()
	mem := newMemLedger()
	it := mem.addItem(owner)
	eng := NewEngine(mem)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.RequestLoan(context.Background(), it.ID, uuid.NewString())
		}(i)
	}
	wg.Wait()

	wins, rejections := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrItemNotAvailable):
			rejections++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, rejections)
	assert.Len(t, mem.entries(), 1, "exactly one entry for the winning request")
	snap := mem.snapshot(it.ID)
	assert.True(t, snap.Consistent())
}

func TestStorageFaultPropagates(t *testing.T) {
	owner := uuid.NewString()
	mem := newMemLedger()
	it := mem.addItem(owner)
	eng := NewEngine(mem)

	mem.failAppend = true
	_, err := eng.RequestLoan(context.Background(), it.ID, uuid.NewString())
	require.ErrorIs(t, err, ErrStorageUnavailable)

	// Nothing committed: the item is untouched and the ledger is empty.
	assert.Empty(t, mem.entries())
	got := mem.snapshot(it.ID)
	assert.True(t, got.IsAvailable)
	assert.Nil(t, got.CurrentLoanID)
}
