package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Notifier is the fire-and-forget boundary the core emits events into.
type Notifier interface {
	Emit(ctx context.Context, ev Event)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service { return &Service{store: store} }

var _ Notifier = (*Service)(nil)

// Emit persists the notification. Failures are logged and swallowed: a
// broken notifier must never fail a lending transition or a sweep.
func (s *Service) Emit(ctx context.Context, ev Event) {
	n := &Notification{
		NotificationID: uuid.New().String(),
		UserID:         ev.Recipient,
		Kind:           ev.Kind,
		Title:          ev.Title,
		Message:        ev.Message,
		RelatedBorrow:  ev.RelatedBorrow,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, n); err != nil {
		slog.Warn("notification dropped",
			"recipient", ev.Recipient, "kind", ev.Kind, "error", err)
	}
}

func (s *Service) List(ctx context.Context, userID string, unreadOnly bool) ([]*Notification, error) {
	return s.store.ListByUser(ctx, userID, unreadOnly)
}

func (s *Service) MarkRead(ctx context.Context, notificationID, userID string) error {
	return s.store.MarkRead(ctx, notificationID, userID)
}
