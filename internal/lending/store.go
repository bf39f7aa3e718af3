package lending

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/apperr"
)

// Store persists borrow records. ApplyTransition is a compare-and-swap on
// the status column: the write only lands if the row still holds the
// expected status, which makes per-record transitions linearizable without
// a global lock.
type Store interface {
	Insert(ctx context.Context, rec *BorrowRecord) error
	GetByID(ctx context.Context, borrowID string) (*BorrowRecord, error)
	ListByUser(ctx context.Context, userID string, status Status) ([]*BorrowRecord, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]*BorrowRecord, error)
	HasActiveForUserItem(ctx context.Context, userID, itemID string) (bool, error)
	ApplyTransition(ctx context.Context, rec *BorrowRecord, expected Status) error
}

type SQLStore struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *SQLStore { return &SQLStore{db: conn} }

var _ Store = (*SQLStore)(nil)

const borrowColumns = `
borrow_id, user_id, item_id, status, request_date, issue_date, due_date, return_date,
renew_count, renewal_request_date, renewal_prior_status,
fine_amount, total_fine, rejection_reason, notes, processed_by,
last_fine_processed, last_overdue_notified, due_soon_notified,
created_at, updated_at`

func (s *SQLStore) Insert(ctx context.Context, rec *BorrowRecord) error {
	const q = `
INSERT INTO borrows (` + borrowColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		rec.BorrowID, rec.UserID, rec.ItemID, string(rec.Status), rec.RequestDate,
		rec.IssueDate, rec.DueDate, rec.ReturnDate,
		rec.RenewCount, rec.RenewalRequestDate, statusPtr(rec.RenewalPriorStatus),
		rec.FineAmount, rec.TotalFine, nullIfEmpty(rec.RejectionReason), nullIfEmpty(rec.Notes), nullIfEmpty(rec.ProcessedBy),
		rec.LastFineProcessed, rec.LastOverdueNotified, rec.DueSoonNotified,
		rec.CreatedAt, rec.UpdatedAt,
	)
	return err
}

func (s *SQLStore) GetByID(ctx context.Context, borrowID string) (*BorrowRecord, error) {
	const q = `SELECT ` + borrowColumns + ` FROM borrows WHERE borrow_id = ?`
	rec, err := scanBorrow(s.db.QueryRowContext(ctx, q, borrowID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("borrow record not found")
	}
	return rec, err
}

func (s *SQLStore) ListByUser(ctx context.Context, userID string, status Status) ([]*BorrowRecord, error) {
	q := `SELECT ` + borrowColumns + ` FROM borrows WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at DESC`
	return s.queryBorrows(ctx, q, args...)
}

func (s *SQLStore) ListByStatus(ctx context.Context, statuses ...Status) ([]*BorrowRecord, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	q := `SELECT ` + borrowColumns + ` FROM borrows WHERE status IN (` + placeholders + `) ORDER BY request_date`
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = string(st)
	}
	return s.queryBorrows(ctx, q, args...)
}

func (s *SQLStore) HasActiveForUserItem(ctx context.Context, userID, itemID string) (bool, error) {
	const q = `
SELECT EXISTS (
	SELECT 1 FROM borrows
	WHERE user_id = ? AND item_id = ?
	AND status IN ('requested','approved','borrowed','renew_requested','renewed')
)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, q, userID, itemID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ApplyTransition writes every field the state machine may have mutated,
// guarded by the expected current status. Zero rows affected means either
// the record vanished or another writer won the race.
func (s *SQLStore) ApplyTransition(ctx context.Context, rec *BorrowRecord, expected Status) error {
	const q = `
UPDATE borrows
SET status = ?, issue_date = ?, due_date = ?, return_date = ?,
    renew_count = ?, renewal_request_date = ?, renewal_prior_status = ?,
    fine_amount = ?, total_fine = ?, rejection_reason = ?, notes = ?, processed_by = ?,
    updated_at = ?
WHERE borrow_id = ? AND status = ?`
	res, err := s.db.ExecContext(ctx, q,
		string(rec.Status), rec.IssueDate, rec.DueDate, rec.ReturnDate,
		rec.RenewCount, rec.RenewalRequestDate, statusPtr(rec.RenewalPriorStatus),
		rec.FineAmount, rec.TotalFine, nullIfEmpty(rec.RejectionReason), nullIfEmpty(rec.Notes), nullIfEmpty(rec.ProcessedBy),
		rec.UpdatedAt,
		rec.BorrowID, string(expected),
	)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 1 {
		return nil
	}

	const check = `SELECT EXISTS (SELECT 1 FROM borrows WHERE borrow_id = ?)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, check, rec.BorrowID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("borrow record not found")
	}
	return apperr.ConcurrentModification("borrow record changed concurrently, re-fetch and retry")
}

func (s *SQLStore) queryBorrows(ctx context.Context, q string, args ...any) ([]*BorrowRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*BorrowRecord
	for rows.Next() {
		rec, err := scanBorrowRows(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBorrow(row *sql.Row) (*BorrowRecord, error) { return scanBorrowFrom(row) }

func scanBorrowRows(rows *sql.Rows) (*BorrowRecord, error) { return scanBorrowFrom(rows) }

func scanBorrowFrom(sc rowScanner) (*BorrowRecord, error) {
	var (
		rec            BorrowRecord
		status         string
		priorStatus    sql.NullString
		rejection      sql.NullString
		notes          sql.NullString
		processedBy    sql.NullString
		issueDate      sql.NullTime
		dueDate        sql.NullTime
		returnDate     sql.NullTime
		renewalReqDate sql.NullTime
		lastFine       sql.NullTime
		lastOverdue    sql.NullTime
	)
	err := sc.Scan(
		&rec.BorrowID, &rec.UserID, &rec.ItemID, &status, &rec.RequestDate,
		&issueDate, &dueDate, &returnDate,
		&rec.RenewCount, &renewalReqDate, &priorStatus,
		&rec.FineAmount, &rec.TotalFine, &rejection, &notes, &processedBy,
		&lastFine, &lastOverdue, &rec.DueSoonNotified,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Status = Status(status)
	rec.IssueDate = timePtr(issueDate)
	rec.DueDate = timePtr(dueDate)
	rec.ReturnDate = timePtr(returnDate)
	rec.RenewalRequestDate = timePtr(renewalReqDate)
	if priorStatus.Valid {
		st := Status(priorStatus.String)
		rec.RenewalPriorStatus = &st
	}
	rec.RejectionReason = rejection.String
	rec.Notes = notes.String
	rec.ProcessedBy = processedBy.String
	rec.LastFineProcessed = timePtr(lastFine)
	rec.LastOverdueNotified = timePtr(lastOverdue)
	return &rec, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func statusPtr(s *Status) any {
	if s == nil {
		return nil
	}
	return string(*s)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
