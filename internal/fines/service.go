package fines

import (
	"context"
	"fmt"
	"time"

	"github.com/Nachiket-Roy/LMS-Backend/internal/lending"
	"github.com/Nachiket-Roy/LMS-Backend/internal/notify"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/clock"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/db"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/metrics"
)

// Engine derives fine ledger entries from overdue borrow records. Accrue is
// an idempotent upsert keyed by borrow id: invoking it any number of times
// for the same asOf yields the same ledger amount.
type Engine struct {
	store    Store
	notifier notify.Notifier
	cfg      db.LendingConfig
	id       clock.IDGen
}

func NewEngine(store Store, notifier notify.Notifier, cfg db.LendingConfig) *Engine {
	return &Engine{store: store, notifier: notifier, cfg: cfg, id: clock.ULIDGen{}}
}

var _ lending.Accruer = (*Engine)(nil)

// Accrue recomputes the overdue amount for rec at asOf and reconciles the
// ledger. For a returned record the return date bounds the accrual, which
// freezes the final amount. Amounts only grow while a record stays overdue,
// so the upsert is monotonically non-decreasing on unpaid entries.
func (e *Engine) Accrue(ctx context.Context, rec *lending.BorrowRecord, asOf time.Time) error {
	if rec.DueDate == nil {
		return nil
	}

	effective := asOf
	if rec.Status == lending.StatusReturned && rec.ReturnDate != nil {
		effective = *rec.ReturnDate
	}

	days := lending.DaysLate(*rec.DueDate, effective)
	if days <= 0 {
		return nil
	}
	amount := float64(days) * e.cfg.FinePerDay

	id, err := e.id.New()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	f := &Fine{
		FineID:      id,
		BorrowID:    rec.BorrowID,
		UserID:      rec.UserID,
		ItemID:      rec.ItemID,
		Amount:      amount,
		DaysOverdue: days,
		Status:      StatusUnpaid,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.Upsert(ctx, f); err != nil {
		return err
	}
	metrics.FinesAccrued.Inc()

	// Remind on crossing into overdue and weekly thereafter. Not on return:
	// the return flow sends its own confirmation.
	if rec.Status != lending.StatusReturned && (days == 1 || days%7 == 0) {
		e.notifier.Emit(ctx, notify.Event{
			Recipient: rec.UserID,
			Kind:      notify.KindOverdueFine,
			Title:     "Overdue Fine Added",
			Message: fmt.Sprintf(
				"A fine of %.2f has been added for your overdue item. Total days overdue: %d. Please return the item to avoid additional charges.",
				amount, days),
			RelatedBorrow: rec.BorrowID,
		})
	}
	return nil
}

func (e *Engine) GetByID(ctx context.Context, fineID string) (*Fine, error) {
	return e.store.GetByID(ctx, fineID)
}

func (e *Engine) GetByBorrow(ctx context.Context, borrowID string) (*Fine, error) {
	return e.store.GetByBorrow(ctx, borrowID)
}

func (e *Engine) ListByUser(ctx context.Context, userID string) ([]*Fine, error) {
	return e.store.ListByUser(ctx, userID)
}

func (e *Engine) List(ctx context.Context, status Status) ([]*Fine, error) {
	return e.store.List(ctx, status)
}

// MarkPaid is called on behalf of the payment collaborator; the engine
// itself never closes a fine.
func (e *Engine) MarkPaid(ctx context.Context, fineID, method string) error {
	return e.store.MarkPaid(ctx, fineID, method, time.Now().UTC())
}
