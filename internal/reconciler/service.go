// Package reconciler runs the periodic batch jobs that advance overdue
// state without user action. Both sweeps are re-entrant: progress markers
// are persisted per record, so a crash mid-sweep and restart never
// double-charges a fine or double-sends a reminder.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Nachiket-Roy/LMS-Backend/internal/lending"
	"github.com/Nachiket-Roy/LMS-Backend/internal/members"
	"github.com/Nachiket-Roy/LMS-Backend/internal/notify"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/clock"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/db"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/metrics"
)

type Reconciler struct {
	borrows  BorrowSweepStore
	members  members.Store
	fines    lending.Accruer
	notifier notify.Notifier
	cfg      db.LendingConfig
	clock    clock.Clock
}

func New(borrows BorrowSweepStore, memberStore members.Store, fines lending.Accruer, notifier notify.Notifier, cfg db.LendingConfig) *Reconciler {
	return &Reconciler{
		borrows:  borrows,
		members:  memberStore,
		fines:    fines,
		notifier: notifier,
		cfg:      cfg,
		clock:    clock.Real{},
	}
}

// RunDailyFineSweep accrues fines for every overdue record not yet
// processed today. Records are independent: one failure is logged and
// skipped, and a cancellation leaves processed records marked so only the
// rest are retried on the next run.
func (r *Reconciler) RunDailyFineSweep(ctx context.Context, asOf time.Time) (processed int, err error) {
	timer := time.Now()
	defer func() {
		metrics.SweepDuration.WithLabelValues("fine_sweep").Observe(time.Since(timer).Seconds())
	}()

	dayStart := clock.StartOfDay(asOf)
	recs, err := r.borrows.ListOverdueForFineSweep(ctx, asOf, dayStart)
	if err != nil {
		return 0, fmt.Errorf("select overdue records: %w", err)
	}
	slog.Info("daily fine sweep started", "as_of", asOf, "candidates", len(recs))

	for _, rec := range recs {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}

		if err := r.fines.Accrue(ctx, rec, asOf); err != nil {
			metrics.SweepErrors.WithLabelValues("fine_sweep").Inc()
			slog.Error("fine accrual failed, skipping record",
				"borrow_id", rec.BorrowID, "error", err)
			continue
		}
		if err := r.borrows.SetLastFineProcessed(ctx, rec.BorrowID, dayStart); err != nil {
			metrics.SweepErrors.WithLabelValues("fine_sweep").Inc()
			slog.Error("failed to mark record as processed",
				"borrow_id", rec.BorrowID, "error", err)
			continue
		}
		processed++
	}

	slog.Info("daily fine sweep finished", "processed", processed)
	return processed, nil
}

// RunExpirySweep sends advance warnings: items due soon, overdue reminders,
// and membership expiry notices. Every class of reminder is gated on its
// own persisted marker so each threshold crossing notifies exactly once.
func (r *Reconciler) RunExpirySweep(ctx context.Context, asOf time.Time) error {
	timer := time.Now()
	defer func() {
		metrics.SweepDuration.WithLabelValues("expiry_sweep").Observe(time.Since(timer).Seconds())
	}()

	if err := r.notifyDueSoon(ctx, asOf); err != nil {
		return err
	}
	if err := r.notifyOverdue(ctx, asOf); err != nil {
		return err
	}
	return r.notifyMembershipExpiry(ctx, asOf)
}

func (r *Reconciler) notifyDueSoon(ctx context.Context, asOf time.Time) error {
	until := asOf.AddDate(0, 0, r.cfg.DueSoonDays)
	recs, err := r.borrows.ListDueSoon(ctx, asOf, until)
	if err != nil {
		return fmt.Errorf("select due-soon records: %w", err)
	}

	for _, rec := range recs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		r.notifier.Emit(ctx, notify.Event{
			Recipient: rec.UserID,
			Kind:      notify.KindDueReminder,
			Title:     "Item Due Soon",
			Message: fmt.Sprintf("Your borrowed item is due on %s. Please return or renew it.",
				rec.DueDate.Format("2006-01-02")),
			RelatedBorrow: rec.BorrowID,
		})
		if err := r.borrows.MarkDueSoonNotified(ctx, rec.BorrowID); err != nil {
			metrics.SweepErrors.WithLabelValues("expiry_sweep").Inc()
			slog.Error("failed to mark due-soon reminder", "borrow_id", rec.BorrowID, "error", err)
		}
	}
	return nil
}

func (r *Reconciler) notifyOverdue(ctx context.Context, asOf time.Time) error {
	dayStart := clock.StartOfDay(asOf)
	recs, err := r.borrows.ListOverdueForReminder(ctx, asOf, dayStart)
	if err != nil {
		return fmt.Errorf("select overdue reminders: %w", err)
	}

	for _, rec := range recs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		days := rec.DaysOverdueAt(asOf)
		r.notifier.Emit(ctx, notify.Event{
			Recipient: rec.UserID,
			Kind:      notify.KindOverdueReminder,
			Title:     "Overdue Item Reminder",
			Message: fmt.Sprintf("Your borrowed item is %d day(s) overdue. Please return it as soon as possible to avoid additional fines.",
				days),
			RelatedBorrow: rec.BorrowID,
		})
		if err := r.borrows.SetLastOverdueNotified(ctx, rec.BorrowID, asOf); err != nil {
			metrics.SweepErrors.WithLabelValues("expiry_sweep").Inc()
			slog.Error("failed to mark overdue reminder", "borrow_id", rec.BorrowID, "error", err)
		}
	}
	return nil
}

func (r *Reconciler) notifyMembershipExpiry(ctx context.Context, asOf time.Time) error {
	until := asOf.AddDate(0, 0, r.cfg.ExpiryWindowDays)

	expiring, err := r.members.ListExpiring(ctx, asOf, until)
	if err != nil {
		return fmt.Errorf("select expiring members: %w", err)
	}
	for _, m := range expiring {
		r.notifier.Emit(ctx, notify.Event{
			Recipient: m.UserID,
			Kind:      notify.KindMembershipExpiry,
			Title:     "Membership Expiring Soon",
			Message: fmt.Sprintf("Your library membership will expire on %s. Please renew to avoid interruption of services.",
				m.MembershipExpiry.Format("2006-01-02")),
		})
		if err := r.members.MarkExpiryNotified(ctx, m.UserID); err != nil {
			metrics.SweepErrors.WithLabelValues("expiry_sweep").Inc()
			slog.Error("failed to mark membership expiry notice", "user_id", m.UserID, "error", err)
		}
	}

	expired, err := r.members.ListExpired(ctx, asOf)
	if err != nil {
		return fmt.Errorf("select expired members: %w", err)
	}
	for _, m := range expired {
		r.notifier.Emit(ctx, notify.Event{
			Recipient: m.UserID,
			Kind:      notify.KindMembershipExpired,
			Title:     "Membership Expired",
			Message:   "Your library membership has expired. Please renew to continue using library services.",
		})
		if err := r.members.MarkExpiryNotified(ctx, m.UserID); err != nil {
			metrics.SweepErrors.WithLabelValues("expiry_sweep").Inc()
			slog.Error("failed to mark membership expired notice", "user_id", m.UserID, "error", err)
		}
	}

	slog.Info("expiry sweep finished", "expiring", len(expiring), "expired", len(expired))
	return nil
}
