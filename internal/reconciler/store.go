package reconciler

import (
	"context"
	"database/sql"
	"time"

	"github.com/Nachiket-Roy/LMS-Backend/internal/lending"
)

// BorrowSweepStore is the sweep-facing view of the borrows table. Selection
// is gated on the persisted progress markers so a re-run (or a restart
// mid-sweep) only picks up records not yet handled today.
type BorrowSweepStore interface {
	ListOverdueForFineSweep(ctx context.Context, asOf, dayStart time.Time) ([]*lending.BorrowRecord, error)
	SetLastFineProcessed(ctx context.Context, borrowID string, t time.Time) error
	ListDueSoon(ctx context.Context, from, until time.Time) ([]*lending.BorrowRecord, error)
	MarkDueSoonNotified(ctx context.Context, borrowID string) error
	ListOverdueForReminder(ctx context.Context, asOf, dayStart time.Time) ([]*lending.BorrowRecord, error)
	SetLastOverdueNotified(ctx context.Context, borrowID string, t time.Time) error
}

type SQLStore struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *SQLStore { return &SQLStore{db: conn} }

var _ BorrowSweepStore = (*SQLStore)(nil)

// Sweeps only need the identity, dates and status of a record.
const sweepColumns = `borrow_id, user_id, item_id, status, due_date, renew_count`

const overdueStatusList = `'approved','borrowed','renewed'`

func (s *SQLStore) ListOverdueForFineSweep(ctx context.Context, asOf, dayStart time.Time) ([]*lending.BorrowRecord, error) {
	const q = `
SELECT ` + sweepColumns + `
FROM borrows
WHERE status IN (` + overdueStatusList + `)
AND due_date < ?
AND (last_fine_processed IS NULL OR last_fine_processed < ?)`
	return s.querySweep(ctx, q, asOf, dayStart)
}

func (s *SQLStore) SetLastFineProcessed(ctx context.Context, borrowID string, t time.Time) error {
	const q = `UPDATE borrows SET last_fine_processed = ? WHERE borrow_id = ?`
	_, err := s.db.ExecContext(ctx, q, t, borrowID)
	return err
}

func (s *SQLStore) ListDueSoon(ctx context.Context, from, until time.Time) ([]*lending.BorrowRecord, error) {
	const q = `
SELECT ` + sweepColumns + `
FROM borrows
WHERE status IN (` + overdueStatusList + `)
AND due_date >= ? AND due_date <= ?
AND due_soon_notified = FALSE`
	return s.querySweep(ctx, q, from, until)
}

func (s *SQLStore) MarkDueSoonNotified(ctx context.Context, borrowID string) error {
	const q = `UPDATE borrows SET due_soon_notified = TRUE WHERE borrow_id = ?`
	_, err := s.db.ExecContext(ctx, q, borrowID)
	return err
}

func (s *SQLStore) ListOverdueForReminder(ctx context.Context, asOf, dayStart time.Time) ([]*lending.BorrowRecord, error) {
	const q = `
SELECT ` + sweepColumns + `
FROM borrows
WHERE status IN (` + overdueStatusList + `)
AND due_date < ?
AND (last_overdue_notified IS NULL OR last_overdue_notified < ?)`
	return s.querySweep(ctx, q, asOf, dayStart)
}

func (s *SQLStore) SetLastOverdueNotified(ctx context.Context, borrowID string, t time.Time) error {
	const q = `UPDATE borrows SET last_overdue_notified = ? WHERE borrow_id = ?`
	_, err := s.db.ExecContext(ctx, q, t, borrowID)
	return err
}

func (s *SQLStore) querySweep(ctx context.Context, q string, args ...any) ([]*lending.BorrowRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*lending.BorrowRecord
	for rows.Next() {
		var (
			rec     lending.BorrowRecord
			status  string
			dueDate sql.NullTime
		)
		if err := rows.Scan(&rec.BorrowID, &rec.UserID, &rec.ItemID, &status, &dueDate, &rec.RenewCount); err != nil {
			return nil, err
		}
		rec.Status = lending.Status(status)
		if dueDate.Valid {
			t := dueDate.Time
			rec.DueDate = &t
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
