package fines

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nachiket-Roy/LMS-Backend/internal/lending"
	"github.com/Nachiket-Roy/LMS-Backend/internal/notify"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/apperr"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/db"
)

// memFineStore mirrors the SQL upsert: entries are keyed by borrow_id and
// a paid entry is never touched again.
type memFineStore struct {
	mu       sync.Mutex
	byBorrow map[string]*Fine
}

func newMemFineStore() *memFineStore {
	return &memFineStore{byBorrow: make(map[string]*Fine)}
}

func (m *memFineStore) Upsert(_ context.Context, f *Fine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byBorrow[f.BorrowID]
	if !ok {
		cp := *f
		cp.Status = StatusUnpaid
		m.byBorrow[f.BorrowID] = &cp
		return nil
	}
	if cur.Status == StatusPaid {
		return nil
	}
	cur.Amount = f.Amount
	cur.DaysOverdue = f.DaysOverdue
	cur.UpdatedAt = f.UpdatedAt
	return nil
}

func (m *memFineStore) GetByID(_ context.Context, fineID string) (*Fine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.byBorrow {
		if f.FineID == fineID {
			cp := *f
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("fine not found")
}

func (m *memFineStore) GetByBorrow(_ context.Context, borrowID string) (*Fine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.byBorrow[borrowID]
	if !ok {
		return nil, apperr.NotFound("fine not found")
	}
	cp := *f
	return &cp, nil
}

func (m *memFineStore) ListByUser(_ context.Context, userID string) ([]*Fine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Fine
	for _, f := range m.byBorrow {
		if f.UserID == userID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memFineStore) List(_ context.Context, status Status) ([]*Fine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Fine
	for _, f := range m.byBorrow {
		if status == "" || f.Status == status {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memFineStore) MarkPaid(_ context.Context, fineID, method string, when time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.byBorrow {
		if f.FineID != fineID {
			continue
		}
		if f.Status == StatusPaid {
			return apperr.InvalidArgument("fine is already paid")
		}
		f.Status = StatusPaid
		f.PaymentMethod = method
		f.PaymentDate = &when
		return nil
	}
	return apperr.NotFound("fine not found")
}

type captureNotifier struct {
	events []notify.Event
}

func (c *captureNotifier) Emit(_ context.Context, ev notify.Event) {
	c.events = append(c.events, ev)
}

type seqIDGen struct{ n int }

func (g *seqIDGen) New() (string, error) {
	g.n++
	return fmt.Sprintf("FIN-%03d", g.n), nil
}

func newTestEngine() (*Engine, *memFineStore, *captureNotifier) {
	store := newMemFineStore()
	notifier := &captureNotifier{}
	e := NewEngine(store, notifier, db.LendingConfig{FinePerDay: 5})
	e.id = &seqIDGen{}
	return e, store, notifier
}

func overdueRecord(due time.Time) *lending.BorrowRecord {
	return &lending.BorrowRecord{
		BorrowID: "BRW-001",
		UserID:   "user-1",
		ItemID:   "item-1",
		Status:   lending.StatusBorrowed,
		DueDate:  &due,
	}
}

func TestAccrue(t *testing.T) {
	ctx := context.Background()
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	t.Run("three days overdue at five per day", func(t *testing.T) {
		e, store, _ := newTestEngine()
		rec := overdueRecord(due)

		require.NoError(t, e.Accrue(ctx, rec, due.AddDate(0, 0, 3)))

		f, err := store.GetByBorrow(ctx, rec.BorrowID)
		require.NoError(t, err)
		assert.Equal(t, 15.0, f.Amount)
		assert.Equal(t, 3, f.DaysOverdue)
		assert.Equal(t, StatusUnpaid, f.Status)
	})

	t.Run("no entry before the due date", func(t *testing.T) {
		e, store, _ := newTestEngine()
		rec := overdueRecord(due)

		require.NoError(t, e.Accrue(ctx, rec, due.AddDate(0, 0, -1)))

		_, err := store.GetByBorrow(ctx, rec.BorrowID)
		assert.Equal(t, apperr.CodeNotFound, apperr.Code(err))
	})

	t.Run("no due date is a no-op", func(t *testing.T) {
		e, store, _ := newTestEngine()
		rec := overdueRecord(due)
		rec.DueDate = nil

		require.NoError(t, e.Accrue(ctx, rec, due.AddDate(0, 0, 10)))
		assert.Empty(t, store.byBorrow)
	})

	t.Run("repeated runs for the same day are idempotent", func(t *testing.T) {
		e, store, _ := newTestEngine()
		rec := overdueRecord(due)
		asOf := due.AddDate(0, 0, 5)

		require.NoError(t, e.Accrue(ctx, rec, asOf))
		require.NoError(t, e.Accrue(ctx, rec, asOf))
		require.NoError(t, e.Accrue(ctx, rec, asOf))

		require.Len(t, store.byBorrow, 1, "one ledger entry per borrow record")
		f, err := store.GetByBorrow(ctx, rec.BorrowID)
		require.NoError(t, err)
		assert.Equal(t, 25.0, f.Amount, "a record due on day 10 swept on day 15 owes 25, not 50")
		assert.Equal(t, 5, f.DaysOverdue)
	})

	t.Run("the amount grows as the record stays overdue", func(t *testing.T) {
		e, store, _ := newTestEngine()
		rec := overdueRecord(due)

		require.NoError(t, e.Accrue(ctx, rec, due.AddDate(0, 0, 2)))
		require.NoError(t, e.Accrue(ctx, rec, due.AddDate(0, 0, 6)))

		f, err := store.GetByBorrow(ctx, rec.BorrowID)
		require.NoError(t, err)
		assert.Equal(t, 30.0, f.Amount)
		assert.Equal(t, 6, f.DaysOverdue)
	})

	t.Run("a paid entry is never reopened", func(t *testing.T) {
		e, store, _ := newTestEngine()
		rec := overdueRecord(due)

		require.NoError(t, e.Accrue(ctx, rec, due.AddDate(0, 0, 2)))
		f, err := store.GetByBorrow(ctx, rec.BorrowID)
		require.NoError(t, err)
		require.NoError(t, e.MarkPaid(ctx, f.FineID, "cash"))

		require.NoError(t, e.Accrue(ctx, rec, due.AddDate(0, 0, 9)))

		f, err = store.GetByBorrow(ctx, rec.BorrowID)
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, f.Status)
		assert.Equal(t, 10.0, f.Amount, "payment freezes the amount")
	})

	t.Run("a returned record accrues up to the return date only", func(t *testing.T) {
		e, store, _ := newTestEngine()
		rec := overdueRecord(due)
		returned := due.AddDate(0, 0, 4)
		rec.Status = lending.StatusReturned
		rec.ReturnDate = &returned

		// Swept well after the return; the frozen amount must not grow.
		require.NoError(t, e.Accrue(ctx, rec, due.AddDate(0, 0, 30)))

		f, err := store.GetByBorrow(ctx, rec.BorrowID)
		require.NoError(t, err)
		assert.Equal(t, 20.0, f.Amount)
		assert.Equal(t, 4, f.DaysOverdue)
	})
}

func TestAccrueNotifications(t *testing.T) {
	ctx := context.Background()
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	t.Run("reminds on day one and every seventh day", func(t *testing.T) {
		e, _, notifier := newTestEngine()
		rec := overdueRecord(due)

		for day := 1; day <= 15; day++ {
			require.NoError(t, e.Accrue(ctx, rec, due.AddDate(0, 0, day)))
		}

		require.Len(t, notifier.events, 3) // days 1, 7, 14
		for _, ev := range notifier.events {
			assert.Equal(t, notify.KindOverdueFine, ev.Kind)
			assert.Equal(t, "user-1", ev.Recipient)
			assert.Equal(t, "BRW-001", ev.RelatedBorrow)
		}
	})

	t.Run("no reminder when accruing a returned record", func(t *testing.T) {
		e, _, notifier := newTestEngine()
		rec := overdueRecord(due)
		returned := due.AddDate(0, 0, 1)
		rec.Status = lending.StatusReturned
		rec.ReturnDate = &returned

		require.NoError(t, e.Accrue(ctx, rec, returned))
		assert.Empty(t, notifier.events)
	})
}

func TestMarkPaid(t *testing.T) {
	ctx := context.Background()
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	t.Run("paying twice fails", func(t *testing.T) {
		e, store, _ := newTestEngine()
		require.NoError(t, e.Accrue(ctx, overdueRecord(due), due.AddDate(0, 0, 2)))
		f, err := store.GetByBorrow(ctx, "BRW-001")
		require.NoError(t, err)

		require.NoError(t, e.MarkPaid(ctx, f.FineID, "card"))
		err = e.MarkPaid(ctx, f.FineID, "card")
		require.Error(t, err)
		assert.Equal(t, apperr.CodeInvalidArgument, apperr.Code(err))
	})

	t.Run("unknown fine", func(t *testing.T) {
		e, _, _ := newTestEngine()
		err := e.MarkPaid(ctx, "missing", "cash")
		assert.Equal(t, apperr.CodeNotFound, apperr.Code(err))
	})
}
