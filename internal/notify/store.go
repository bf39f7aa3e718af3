package notify

import (
	"context"
	"database/sql"

	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/apperr"
)

type Store interface {
	Insert(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*Notification, error)
	MarkRead(ctx context.Context, notificationID, userID string) error
}

type SQLStore struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *SQLStore { return &SQLStore{db: conn} }

var _ Store = (*SQLStore)(nil)

func (s *SQLStore) Insert(ctx context.Context, n *Notification) error {
	const q = `
INSERT INTO notifications (notification_id, user_id, kind, title, message, related_borrow, is_read, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	var related any
	if n.RelatedBorrow != "" {
		related = n.RelatedBorrow
	}
	_, err := s.db.ExecContext(ctx, q,
		n.NotificationID, n.UserID, n.Kind, n.Title, n.Message, related, n.IsRead, n.CreatedAt)
	return err
}

func (s *SQLStore) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*Notification, error) {
	q := `
SELECT notification_id, user_id, kind, title, message, COALESCE(related_borrow, ''), is_read, created_at
FROM notifications
WHERE user_id = ?`
	if unreadOnly {
		q += ` AND is_read = FALSE`
	}
	q += ` ORDER BY created_at DESC LIMIT 100`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.NotificationID, &n.UserID, &n.Kind, &n.Title, &n.Message,
			&n.RelatedBorrow, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (s *SQLStore) MarkRead(ctx context.Context, notificationID, userID string) error {
	const q = `UPDATE notifications SET is_read = TRUE WHERE notification_id = ? AND user_id = ?`
	res, err := s.db.ExecContext(ctx, q, notificationID, userID)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return apperr.NotFound("notification not found")
	}
	return nil
}
