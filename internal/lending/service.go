package lending

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Nachiket-Roy/LMS-Backend/internal/notify"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/apperr"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/clock"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/db"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/metrics"
)

// Inventory is the slice of the catalog ledger the state machine drives.
// Reservation happens once at request time; return and rejection release.
type Inventory interface {
	ReserveCopy(ctx context.Context, itemID string) error
	ReleaseCopy(ctx context.Context, itemID string) error
}

// Accruer finalizes the fine ledger entry when a late record is returned.
type Accruer interface {
	Accrue(ctx context.Context, rec *BorrowRecord, asOf time.Time) error
}

type Service struct {
	store     Store
	inventory Inventory
	fines     Accruer
	notifier  notify.Notifier
	cfg       db.LendingConfig
	clock     clock.Clock
	id        clock.IDGen
}

func NewService(store Store, inventory Inventory, fines Accruer, notifier notify.Notifier, cfg db.LendingConfig) *Service {
	return &Service{
		store:     store,
		inventory: inventory,
		fines:     fines,
		notifier:  notifier,
		cfg:       cfg,
		clock:     clock.Real{},
		id:        clock.ULIDGen{},
	}
}

// RequestBorrow reserves a copy and creates the record in requested state.
// If the reservation fails no record is created; if the insert fails the
// copy is handed back.
func (s *Service) RequestBorrow(ctx context.Context, userID, itemID string) (*BorrowRecord, error) {
	dup, err := s.store.HasActiveForUserItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, apperr.InvalidArgument("an active borrow already exists for this item")
	}

	if err := s.inventory.ReserveCopy(ctx, itemID); err != nil {
		return nil, err
	}

	id, err := s.id.New()
	if err != nil {
		s.releaseQuietly(ctx, itemID)
		return nil, err
	}
	now := s.clock.Now()

	rec := &BorrowRecord{
		BorrowID:    id,
		UserID:      userID,
		ItemID:      itemID,
		Status:      StatusRequested,
		RequestDate: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		s.releaseQuietly(ctx, itemID)
		return nil, err
	}

	metrics.Transitions.WithLabelValues(string(StatusRequested), "ok").Inc()
	return rec, nil
}

// Approve moves requested -> approved and stamps issue/due dates if unset.
func (s *Service) Approve(ctx context.Context, borrowID, staffID string, dueDate *time.Time, notes string) (*BorrowRecord, error) {
	rec, err := s.store.GetByID(ctx, borrowID)
	if err != nil {
		return nil, err
	}

	rec, err = s.transition(ctx, rec, StatusApproved, func(r *BorrowRecord) error {
		s.stampIssueDates(r, dueDate)
		r.ProcessedBy = staffID
		if notes != "" {
			r.Notes = notes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, notify.Event{
		Recipient:     rec.UserID,
		Kind:          notify.KindBorrowUpdate,
		Title:         "Borrow Request Update",
		Message:       "Your borrow request has been approved",
		RelatedBorrow: rec.BorrowID,
	})
	return rec, nil
}

// Issue moves approved -> borrowed. The copy was reserved at request time;
// no second reservation happens here.
func (s *Service) Issue(ctx context.Context, borrowID, staffID string, dueDate *time.Time) (*BorrowRecord, error) {
	rec, err := s.store.GetByID(ctx, borrowID)
	if err != nil {
		return nil, err
	}

	rec, err = s.transition(ctx, rec, StatusBorrowed, func(r *BorrowRecord) error {
		s.stampIssueDates(r, dueDate)
		r.ProcessedBy = staffID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, notify.Event{
		Recipient:     rec.UserID,
		Kind:          notify.KindBorrowUpdate,
		Title:         "Borrow Request Update",
		Message:       "Your item has been issued",
		RelatedBorrow: rec.BorrowID,
	})
	return rec, nil
}

// Reject terminates a requested record and hands the reserved copy back.
func (s *Service) Reject(ctx context.Context, borrowID, staffID, reason string) (*BorrowRecord, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperr.InvalidArgument("rejection_reason is required")
	}

	rec, err := s.store.GetByID(ctx, borrowID)
	if err != nil {
		return nil, err
	}

	rec, err = s.transition(ctx, rec, StatusRejected, func(r *BorrowRecord) error {
		r.RejectionReason = strings.TrimSpace(reason)
		r.ProcessedBy = staffID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.releaseLoudly(ctx, rec)

	s.notifier.Emit(ctx, notify.Event{
		Recipient:     rec.UserID,
		Kind:          notify.KindBorrowUpdate,
		Title:         "Borrow Request Update",
		Message:       "Your borrow request has been rejected: " + rec.RejectionReason,
		RelatedBorrow: rec.BorrowID,
	})
	return rec, nil
}

// Return finalizes the loan: releases the copy, stamps the return date and
// freezes the fine if the record came back late.
func (s *Service) Return(ctx context.Context, borrowID, staffID string, returnDate *time.Time) (*BorrowRecord, error) {
	rec, err := s.store.GetByID(ctx, borrowID)
	if err != nil {
		return nil, err
	}

	returnedAt := s.clock.Now()
	if returnDate != nil {
		returnedAt = *returnDate
	}

	rec, err = s.transition(ctx, rec, StatusReturned, func(r *BorrowRecord) error {
		r.ReturnDate = &returnedAt
		r.ProcessedBy = staffID
		if r.DueDate != nil && returnedAt.After(*r.DueDate) {
			days := DaysLate(*r.DueDate, returnedAt)
			r.FineAmount = float64(days) * s.cfg.FinePerDay
			r.TotalFine = r.FineAmount
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.releaseLoudly(ctx, rec)

	if rec.FineAmount > 0 {
		// Reconcile the durable ledger with the frozen record-level fine.
		// A failure here heals on the next sweep cycle.
		if err := s.fines.Accrue(ctx, rec, returnedAt); err != nil {
			slog.Warn("fine ledger reconcile failed on return",
				"borrow_id", rec.BorrowID, "error", err)
		}
	}

	s.notifier.Emit(ctx, notify.Event{
		Recipient:     rec.UserID,
		Kind:          notify.KindBorrowUpdate,
		Title:         "Borrow Request Update",
		Message:       "Item return confirmed",
		RelatedBorrow: rec.BorrowID,
	})
	return rec, nil
}

// RequestRenewal is borrower-initiated: only on the caller's own record,
// only when no renewal is pending and the record is not overdue.
func (s *Service) RequestRenewal(ctx context.Context, borrowID, userID string) (*BorrowRecord, error) {
	rec, err := s.store.GetByID(ctx, borrowID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, apperr.Forbidden("you can only renew your own borrows")
	}
	if rec.RenewalRequestDate != nil {
		return nil, apperr.InvalidArgument("a renewal request is already pending")
	}
	if rec.IsOverdue(s.clock.Now()) {
		return nil, apperr.RenewalDenied("record is overdue")
	}

	// Capture the pre-transition status; inside the mutate closure the
	// copy already carries the target status.
	prior := rec.Status
	return s.transition(ctx, rec, StatusRenewRequested, func(r *BorrowRecord) error {
		now := s.clock.Now()
		r.RenewalPriorStatus = &prior
		r.RenewalRequestDate = &now
		return nil
	})
}

// ResolveRenewal is the staff side of a renewal request. Approval bumps the
// renew count and extends the due date; rejection reverts to the prior
// status without consuming a renewal.
func (s *Service) ResolveRenewal(ctx context.Context, borrowID, staffID, action string) (*BorrowRecord, error) {
	rec, err := s.store.GetByID(ctx, borrowID)
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusRenewRequested {
		return nil, apperr.InvalidTransition(string(rec.Status), string(StatusRenewed))
	}

	switch action {
	case "approve":
		if rec.RenewCount >= s.cfg.MaxRenewals {
			return nil, apperr.RenewalDenied("renewal limit reached")
		}
		if rec.DueDate != nil && rec.DueDate.Before(s.clock.Now()) {
			return nil, apperr.RenewalDenied("record is overdue")
		}

		rec, err = s.transition(ctx, rec, StatusRenewed, func(r *BorrowRecord) error {
			r.RenewCount++
			if r.DueDate != nil {
				extended := r.DueDate.AddDate(0, 0, s.cfg.RenewalPeriodDays)
				r.DueDate = &extended
			}
			r.RenewalRequestDate = nil
			r.RenewalPriorStatus = nil
			r.ProcessedBy = staffID
			return nil
		})
		if err != nil {
			return nil, err
		}

		s.notifier.Emit(ctx, notify.Event{
			Recipient:     rec.UserID,
			Kind:          notify.KindRenewalUpdate,
			Title:         "Renewal Update",
			Message:       "Your renewal request has been approved",
			RelatedBorrow: rec.BorrowID,
		})
		return rec, nil

	case "reject":
		revertTo := StatusBorrowed
		if rec.RenewalPriorStatus != nil {
			revertTo = *rec.RenewalPriorStatus
		}

		rec, err = s.transition(ctx, rec, revertTo, func(r *BorrowRecord) error {
			r.RenewalRequestDate = nil
			r.RenewalPriorStatus = nil
			r.ProcessedBy = staffID
			return nil
		})
		if err != nil {
			return nil, err
		}

		s.notifier.Emit(ctx, notify.Event{
			Recipient:     rec.UserID,
			Kind:          notify.KindRenewalUpdate,
			Title:         "Renewal Update",
			Message:       "Your renewal request has been rejected",
			RelatedBorrow: rec.BorrowID,
		})
		return rec, nil

	default:
		return nil, apperr.InvalidArgument("action must be 'approve' or 'reject'")
	}
}

func (s *Service) GetRecord(ctx context.Context, borrowID string) (*BorrowRecord, error) {
	return s.store.GetByID(ctx, borrowID)
}

func (s *Service) ListByUser(ctx context.Context, userID string, status Status) ([]*BorrowRecord, error) {
	if status != "" && !IsValidStatus(status) {
		return nil, apperr.InvalidArgument("unknown status " + string(status))
	}
	return s.store.ListByUser(ctx, userID, status)
}

func (s *Service) ListPending(ctx context.Context) ([]*BorrowRecord, error) {
	return s.store.ListByStatus(ctx, StatusRequested, StatusRenewRequested)
}

// transition applies a state change through the table and store CAS.
// mutate runs on a copy; nothing is visible unless the CAS lands.
func (s *Service) transition(ctx context.Context, rec *BorrowRecord, to Status, mutate func(*BorrowRecord) error) (*BorrowRecord, error) {
	from := rec.Status
	if !CanTransition(from, to) {
		metrics.Transitions.WithLabelValues(string(to), "invalid_transition").Inc()
		return nil, apperr.InvalidTransition(string(from), string(to))
	}

	next := *rec
	next.Status = to
	next.UpdatedAt = s.clock.Now()
	if err := mutate(&next); err != nil {
		return nil, err
	}

	if err := s.store.ApplyTransition(ctx, &next, from); err != nil {
		if apperr.Is(err, apperr.CodeConcurrentModification) {
			metrics.Transitions.WithLabelValues(string(to), "conflict").Inc()
		} else {
			metrics.Transitions.WithLabelValues(string(to), "error").Inc()
		}
		return nil, err
	}

	metrics.Transitions.WithLabelValues(string(to), "ok").Inc()
	return &next, nil
}

func (s *Service) stampIssueDates(r *BorrowRecord, dueDate *time.Time) {
	now := s.clock.Now()
	if r.IssueDate == nil {
		r.IssueDate = &now
	}
	if r.DueDate == nil {
		due := r.IssueDate.AddDate(0, 0, s.cfg.LoanPeriodDays)
		if dueDate != nil {
			due = *dueDate
		}
		r.DueDate = &due
	}
}

// releaseQuietly undoes a reservation on a failed create path.
func (s *Service) releaseQuietly(ctx context.Context, itemID string) {
	if err := s.inventory.ReleaseCopy(ctx, itemID); err != nil {
		slog.Error("failed to release reserved copy", "item_id", itemID, "error", err)
	}
}

// releaseLoudly releases after a terminal transition. An invariant
// violation here means a release without a matching reserve, a bug
// elsewhere, so it is raised as an operational alert.
func (s *Service) releaseLoudly(ctx context.Context, rec *BorrowRecord) {
	if err := s.inventory.ReleaseCopy(ctx, rec.ItemID); err != nil {
		slog.Error("inventory release failed after terminal transition",
			"borrow_id", rec.BorrowID, "item_id", rec.ItemID, "code", apperr.Code(err), "error", err)
	}
}
