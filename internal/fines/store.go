package fines

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/apperr"
)

type Store interface {
	Upsert(ctx context.Context, f *Fine) error
	GetByID(ctx context.Context, fineID string) (*Fine, error)
	GetByBorrow(ctx context.Context, borrowID string) (*Fine, error)
	ListByUser(ctx context.Context, userID string) ([]*Fine, error)
	List(ctx context.Context, status Status) ([]*Fine, error)
	MarkPaid(ctx context.Context, fineID, method string, when time.Time) error
}

type SQLStore struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *SQLStore { return &SQLStore{db: conn} }

var _ Store = (*SQLStore)(nil)

const fineColumns = `
fine_id, borrow_id, user_id, item_id, amount, days_overdue, status, payment_date, payment_method, created_at, updated_at`

// Upsert inserts or refreshes the ledger entry keyed on borrow_id in one
// statement. A paid row is never touched: payment finalizes that accrual.
// Re-running with the same inputs leaves the row unchanged.
func (s *SQLStore) Upsert(ctx context.Context, f *Fine) error {
	const q = `
INSERT INTO fines (fine_id, borrow_id, user_id, item_id, amount, days_overdue, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, 'unpaid', ?, ?)
ON DUPLICATE KEY UPDATE
	amount       = IF(status = 'paid', amount, VALUES(amount)),
	days_overdue = IF(status = 'paid', days_overdue, VALUES(days_overdue)),
	updated_at   = IF(status = 'paid', updated_at, VALUES(updated_at))`
	_, err := s.db.ExecContext(ctx, q,
		f.FineID, f.BorrowID, f.UserID, f.ItemID, f.Amount, f.DaysOverdue,
		f.CreatedAt, f.UpdatedAt)
	return err
}

func (s *SQLStore) GetByID(ctx context.Context, fineID string) (*Fine, error) {
	const q = `SELECT ` + fineColumns + ` FROM fines WHERE fine_id = ?`
	f, err := scanFine(s.db.QueryRowContext(ctx, q, fineID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("fine not found")
	}
	return f, err
}

func (s *SQLStore) GetByBorrow(ctx context.Context, borrowID string) (*Fine, error) {
	const q = `SELECT ` + fineColumns + ` FROM fines WHERE borrow_id = ?`
	f, err := scanFine(s.db.QueryRowContext(ctx, q, borrowID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("fine not found")
	}
	return f, err
}

func (s *SQLStore) ListByUser(ctx context.Context, userID string) ([]*Fine, error) {
	const q = `SELECT ` + fineColumns + ` FROM fines WHERE user_id = ? ORDER BY updated_at DESC`
	return s.queryFines(ctx, q, userID)
}

func (s *SQLStore) List(ctx context.Context, status Status) ([]*Fine, error) {
	q := `SELECT ` + fineColumns + ` FROM fines`
	var args []any
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY updated_at DESC`
	return s.queryFines(ctx, q, args...)
}

// MarkPaid is the payment collaborator's write-back. Guarded so a fine can
// only be paid once.
func (s *SQLStore) MarkPaid(ctx context.Context, fineID, method string, when time.Time) error {
	const q = `
UPDATE fines
SET status = 'paid', payment_date = ?, payment_method = ?, updated_at = ?
WHERE fine_id = ? AND status IN ('unpaid','pending')`
	res, err := s.db.ExecContext(ctx, q, when, method, when, fineID)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 1 {
		return nil
	}

	const check = `SELECT EXISTS (SELECT 1 FROM fines WHERE fine_id = ?)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, check, fineID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("fine not found")
	}
	return apperr.InvalidArgument("fine is already paid")
}

func (s *SQLStore) queryFines(ctx context.Context, q string, args ...any) ([]*Fine, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Fine
	for rows.Next() {
		f, err := scanFineRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFine(row *sql.Row) (*Fine, error)       { return scanFineFrom(row) }
func scanFineRows(rows *sql.Rows) (*Fine, error) { return scanFineFrom(rows) }

func scanFineFrom(sc rowScanner) (*Fine, error) {
	var (
		f           Fine
		status      string
		paymentDate sql.NullTime
		paymentMeth sql.NullString
	)
	err := sc.Scan(&f.FineID, &f.BorrowID, &f.UserID, &f.ItemID,
		&f.Amount, &f.DaysOverdue, &status, &paymentDate, &paymentMeth,
		&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	f.Status = Status(status)
	if paymentDate.Valid {
		t := paymentDate.Time
		f.PaymentDate = &t
	}
	f.PaymentMethod = paymentMeth.String
	return &f, nil
}
