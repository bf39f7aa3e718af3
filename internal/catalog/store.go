package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/apperr"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/db"
)

// Store is the inventory ledger. Reserve/Release are single guarded
// statements so concurrent borrow/return cannot lose updates.
type Store interface {
	Insert(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, itemID string) (*Item, error)
	List(ctx context.Context, category string) ([]*Item, error)
	ReserveCopy(ctx context.Context, itemID string) error
	ReleaseCopy(ctx context.Context, itemID string) error
	AdjustTotal(ctx context.Context, itemID string, newTotal int) (*Item, error)
	Delete(ctx context.Context, itemID string) error
	ActiveLoanCount(ctx context.Context, itemID string) (int, error)
}

type SQLStore struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *SQLStore { return &SQLStore{db: conn} }

var _ Store = (*SQLStore)(nil)

// Statuses that hold a reserved copy. Must match lending.ActiveStatuses.
const activeStatusList = `'requested','approved','borrowed','renew_requested','renewed'`

func (s *SQLStore) Insert(ctx context.Context, item *Item) error {
	const q = `
INSERT INTO items (item_id, title, author, category, publisher, total_copies, available_copies, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		item.ItemID, item.Title, item.Author, item.Category, item.Publisher,
		item.TotalCopies, item.AvailableCopies, item.CreatedAt, item.UpdatedAt,
	)
	return err
}

func (s *SQLStore) GetByID(ctx context.Context, itemID string) (*Item, error) {
	const q = `
SELECT item_id, title, author, category, publisher, total_copies, available_copies, created_at, updated_at
FROM items
WHERE item_id = ?`
	return scanItem(s.db.QueryRowContext(ctx, q, itemID))
}

func (s *SQLStore) List(ctx context.Context, category string) ([]*Item, error) {
	q := `
SELECT item_id, title, author, category, publisher, total_copies, available_copies, created_at, updated_at
FROM items`
	var args []any
	if category != "" {
		q += ` WHERE category = ?`
		args = append(args, category)
	}
	q += ` ORDER BY title`

	var items []*Item
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		rows, err := tx.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var it Item
			if err := rows.Scan(&it.ItemID, &it.Title, &it.Author, &it.Category, &it.Publisher,
				&it.TotalCopies, &it.AvailableCopies, &it.CreatedAt, &it.UpdatedAt); err != nil {
				return err
			}
			items = append(items, &it)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ReserveCopy decrements available_copies iff one is left. The guard lives
// in the WHERE clause, not in application code.
func (s *SQLStore) ReserveCopy(ctx context.Context, itemID string) error {
	const q = `
UPDATE items
SET available_copies = available_copies - 1, updated_at = ?
WHERE item_id = ? AND available_copies > 0`
	res, err := s.db.ExecContext(ctx, q, time.Now().UTC(), itemID)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 1 {
		return nil
	}
	if _, err := s.GetByID(ctx, itemID); err != nil {
		return err
	}
	return apperr.OutOfStock("no copies available")
}

// ReleaseCopy increments available_copies, capped at total_copies. Hitting
// the cap means a release without a matching reserve, which is a caller bug.
func (s *SQLStore) ReleaseCopy(ctx context.Context, itemID string) error {
	const q = `
UPDATE items
SET available_copies = available_copies + 1, updated_at = ?
WHERE item_id = ? AND available_copies < total_copies`
	res, err := s.db.ExecContext(ctx, q, time.Now().UTC(), itemID)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 1 {
		return nil
	}
	if _, err := s.GetByID(ctx, itemID); err != nil {
		return err
	}
	return apperr.InvariantViolation("release without matching reserve on item " + itemID)
}

// AdjustTotal recomputes available_copies from the borrowed count under a
// row lock so bulk edits cannot race reserve/release.
func (s *SQLStore) AdjustTotal(ctx context.Context, itemID string, newTotal int) (*Item, error) {
	var out *Item
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		const sel = `
SELECT total_copies, available_copies
FROM items
WHERE item_id = ?
FOR UPDATE`
		var total, avail int
		if err := tx.QueryRowContext(ctx, sel, itemID).Scan(&total, &avail); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("item not found")
			}
			return err
		}

		borrowed := total - avail
		newAvail := newTotal - borrowed
		if newAvail < 0 {
			newAvail = 0
		}

		const upd = `
UPDATE items
SET total_copies = ?, available_copies = ?, updated_at = ?
WHERE item_id = ?`
		if _, err := tx.ExecContext(ctx, upd, newTotal, newAvail, time.Now().UTC(), itemID); err != nil {
			return err
		}

		it, err := scanItem(tx.QueryRowContext(ctx, `
SELECT item_id, title, author, category, publisher, total_copies, available_copies, created_at, updated_at
FROM items
WHERE item_id = ?`, itemID))
		if err != nil {
			return err
		}
		out = it
		return nil
	})
	return out, err
}

func (s *SQLStore) Delete(ctx context.Context, itemID string) error {
	const q = `DELETE FROM items WHERE item_id = ?`
	res, err := s.db.ExecContext(ctx, q, itemID)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return apperr.NotFound("item not found")
	}
	return nil
}

func (s *SQLStore) ActiveLoanCount(ctx context.Context, itemID string) (int, error) {
	const q = `
SELECT COUNT(*)
FROM borrows
WHERE item_id = ? AND status IN (` + activeStatusList + `)`
	var n int
	if err := s.db.QueryRowContext(ctx, q, itemID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanItem(row *sql.Row) (*Item, error) {
	var it Item
	err := row.Scan(&it.ItemID, &it.Title, &it.Author, &it.Category, &it.Publisher,
		&it.TotalCopies, &it.AvailableCopies, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("item not found")
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}
