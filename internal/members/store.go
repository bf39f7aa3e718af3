package members

import (
	"context"
	"database/sql"
	"time"
)

type Store interface {
	// ListExpiring returns members whose membership ends in [from, until]
	// and who have not been warned yet.
	ListExpiring(ctx context.Context, from, until time.Time) ([]*Member, error)
	// ListExpired returns members whose membership already ended and who
	// have not been notified of the expiry.
	ListExpired(ctx context.Context, asOf time.Time) ([]*Member, error)
	MarkExpiryNotified(ctx context.Context, userID string) error
}

type SQLStore struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *SQLStore { return &SQLStore{db: conn} }

var _ Store = (*SQLStore)(nil)

const memberColumns = `user_id, name, email, membership_expiry, expiry_notified`

func (s *SQLStore) ListExpiring(ctx context.Context, from, until time.Time) ([]*Member, error) {
	const q = `
SELECT ` + memberColumns + `
FROM members
WHERE membership_expiry >= ? AND membership_expiry <= ? AND expiry_notified = FALSE`
	return s.queryMembers(ctx, q, from, until)
}

func (s *SQLStore) ListExpired(ctx context.Context, asOf time.Time) ([]*Member, error) {
	const q = `
SELECT ` + memberColumns + `
FROM members
WHERE membership_expiry < ? AND expiry_notified = FALSE`
	return s.queryMembers(ctx, q, asOf)
}

func (s *SQLStore) MarkExpiryNotified(ctx context.Context, userID string) error {
	const q = `UPDATE members SET expiry_notified = TRUE WHERE user_id = ?`
	_, err := s.db.ExecContext(ctx, q, userID)
	return err
}

func (s *SQLStore) queryMembers(ctx context.Context, q string, args ...any) ([]*Member, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Member
	for rows.Next() {
		var (
			m      Member
			expiry sql.NullTime
		)
		if err := rows.Scan(&m.UserID, &m.Name, &m.Email, &expiry, &m.ExpiryNotified); err != nil {
			return nil, err
		}
		if expiry.Valid {
			t := expiry.Time
			m.MembershipExpiry = &t
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
