package catalog

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/apperr"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/clock"
)

// memStore implements Store with the same guarded-update semantics as the
// SQL version: counters only move when the guard condition holds.
type memStore struct {
	mu          sync.Mutex
	items       map[string]*Item
	activeLoans map[string]int
}

func newMemStore() *memStore {
	return &memStore{items: make(map[string]*Item), activeLoans: make(map[string]int)}
}

func (m *memStore) Insert(_ context.Context, item *Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	m.items[item.ItemID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, itemID string) (*Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return nil, apperr.NotFound("item " + itemID + " not found")
	}
	cp := *item
	return &cp, nil
}

func (m *memStore) List(_ context.Context, category string) ([]*Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Item
	for _, item := range m.items {
		if category == "" || item.Category == category {
			cp := *item
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) ReserveCopy(_ context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return apperr.NotFound("item " + itemID + " not found")
	}
	if item.AvailableCopies <= 0 {
		return apperr.OutOfStock("no copies of item " + itemID + " available")
	}
	item.AvailableCopies--
	return nil
}

func (m *memStore) ReleaseCopy(_ context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return apperr.NotFound("item " + itemID + " not found")
	}
	if item.AvailableCopies >= item.TotalCopies {
		return apperr.InvariantViolation("release without matching reserve on item " + itemID)
	}
	item.AvailableCopies++
	return nil
}

func (m *memStore) AdjustTotal(_ context.Context, itemID string, newTotal int) (*Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return nil, apperr.NotFound("item " + itemID + " not found")
	}
	borrowed := item.TotalCopies - item.AvailableCopies
	item.TotalCopies = newTotal
	item.AvailableCopies = newTotal - borrowed
	if item.AvailableCopies < 0 {
		item.AvailableCopies = 0
	}
	cp := *item
	return &cp, nil
}

func (m *memStore) Delete(_ context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[itemID]; !ok {
		return apperr.NotFound("item " + itemID + " not found")
	}
	delete(m.items, itemID)
	return nil
}

func (m *memStore) ActiveLoanCount(_ context.Context, itemID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLoans[itemID], nil
}

type seqIDGen struct{ n int }

func (g *seqIDGen) New() (string, error) {
	g.n++
	return fmt.Sprintf("ITM-%03d", g.n), nil
}

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	svc := NewService(store)
	svc.clock = clock.Fixed{T: fixedNow}
	svc.id = &seqIDGen{}
	return svc, store
}

var fixedNow = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func TestCreateItem(t *testing.T) {
	ctx := context.Background()

	t.Run("new item starts fully available", func(t *testing.T) {
		svc, _ := newTestService()
		item, err := svc.CreateItem(ctx, CreateItemRequest{Title: "  The Go Programming Language  ", Author: "Donovan", TotalCopies: 4})
		require.NoError(t, err)
		assert.Equal(t, "The Go Programming Language", item.Title)
		assert.Equal(t, 4, item.TotalCopies)
		assert.Equal(t, 4, item.AvailableCopies)
		assert.Equal(t, "available", item.AvailabilityStatus())
	})

	t.Run("blank title", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.CreateItem(ctx, CreateItemRequest{Title: "   ", TotalCopies: 1})
		assert.Equal(t, apperr.CodeInvalidArgument, apperr.Code(err))
	})

	t.Run("zero copies", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.CreateItem(ctx, CreateItemRequest{Title: "x", TotalCopies: 0})
		assert.Equal(t, apperr.CodeInvalidArgument, apperr.Code(err))
	})
}

func TestAdjustTotal(t *testing.T) {
	ctx := context.Background()

	t.Run("borrowed copies stay out", func(t *testing.T) {
		svc, store := newTestService()
		item, err := svc.CreateItem(ctx, CreateItemRequest{Title: "x", TotalCopies: 5})
		require.NoError(t, err)

		// Three copies out on loan.
		for i := 0; i < 3; i++ {
			require.NoError(t, store.ReserveCopy(ctx, item.ItemID))
		}

		got, err := svc.AdjustTotal(ctx, item.ItemID, 10)
		require.NoError(t, err)
		assert.Equal(t, 10, got.TotalCopies)
		assert.Equal(t, 7, got.AvailableCopies)
		assert.Equal(t, 3, got.BorrowedCopies())
	})

	t.Run("shrinking below the loaned count clamps available to zero", func(t *testing.T) {
		svc, store := newTestService()
		item, err := svc.CreateItem(ctx, CreateItemRequest{Title: "x", TotalCopies: 5})
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			require.NoError(t, store.ReserveCopy(ctx, item.ItemID))
		}

		got, err := svc.AdjustTotal(ctx, item.ItemID, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, got.TotalCopies)
		assert.Equal(t, 0, got.AvailableCopies)
	})

	t.Run("rejects totals below one", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.AdjustTotal(ctx, "whatever", 0)
		assert.Equal(t, apperr.CodeInvalidArgument, apperr.Code(err))
	})
}

func TestDeleteItem(t *testing.T) {
	ctx := context.Background()

	t.Run("refuses while loans are active", func(t *testing.T) {
		svc, store := newTestService()
		item, err := svc.CreateItem(ctx, CreateItemRequest{Title: "x", TotalCopies: 2})
		require.NoError(t, err)
		store.activeLoans[item.ItemID] = 1

		err = svc.DeleteItem(ctx, item.ItemID)
		require.Error(t, err)
		assert.Equal(t, apperr.CodeActiveLoansExist, apperr.Code(err))

		_, err = svc.GetItem(ctx, item.ItemID)
		assert.NoError(t, err)
	})

	t.Run("deletes once loans are settled", func(t *testing.T) {
		svc, _ := newTestService()
		item, err := svc.CreateItem(ctx, CreateItemRequest{Title: "x", TotalCopies: 2})
		require.NoError(t, err)

		require.NoError(t, svc.DeleteItem(ctx, item.ItemID))
		_, err = svc.GetItem(ctx, item.ItemID)
		assert.Equal(t, apperr.CodeNotFound, apperr.Code(err))
	})
}

// TestCopyCounterInvariant hammers one item with concurrent reserve/release
// pairs and checks the counters never drift.
func TestCopyCounterInvariant(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	item, err := svc.CreateItem(ctx, CreateItemRequest{Title: "x", TotalCopies: 3})
	require.NoError(t, err)

	const workers = 32
	const rounds = 100

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				if err := store.ReserveCopy(ctx, item.ItemID); err != nil {
					// Out of stock is the only legal refusal here.
					if apperr.Code(err) != apperr.CodeOutOfStock {
						t.Errorf("reserve: %v", err)
					}
					continue
				}
				if err := store.ReleaseCopy(ctx, item.ItemID); err != nil {
					t.Errorf("release: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	got, err := svc.GetItem(ctx, item.ItemID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalCopies)
	assert.Equal(t, 3, got.AvailableCopies, "every reserve was paired with a release")
}

// TestOversupplyRefused: releasing more copies than were reserved must trip
// the invariant guard instead of inflating the pool.
func TestOversupplyRefused(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	item, err := svc.CreateItem(ctx, CreateItemRequest{Title: "x", TotalCopies: 1})
	require.NoError(t, err)

	err = store.ReleaseCopy(ctx, item.ItemID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvariantViolation, apperr.Code(err))

	got, err := svc.GetItem(ctx, item.ItemID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableCopies)
}
