package notify

import "time"

// Notification kinds, matching the vocabulary consumers already filter on.
const (
	KindBorrowUpdate      = "borrow_update"
	KindRenewalUpdate     = "renewal_update"
	KindOverdueFine       = "overdue_fine"
	KindOverdueReminder   = "overdue_reminder"
	KindDueReminder       = "due_reminder"
	KindMembershipExpiry  = "membership_expiry"
	KindMembershipExpired = "membership_expired"
)

type Notification struct {
	NotificationID string
	UserID         string
	Kind           string
	Title          string
	Message        string
	RelatedBorrow  string
	IsRead         bool
	CreatedAt      time.Time
}

// Event is what the core hands to the notifier. Delivery is best-effort;
// the core never sees a delivery failure.
type Event struct {
	Recipient     string
	Kind          string
	Title         string
	Message       string
	RelatedBorrow string
}
