package fines

import "time"

type Status string

const (
	StatusUnpaid  Status = "unpaid"
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// Fine is a durable ledger entry for an overdue borrow record. At most one
// active entry exists per record, enforced by a unique key on borrow_id.
// The engine creates and grows entries; only the payment collaborator may
// close one.
type Fine struct {
	FineID      string
	BorrowID    string
	UserID      string
	ItemID      string
	Amount      float64
	DaysOverdue int
	Status      Status

	PaymentDate   *time.Time
	PaymentMethod string

	CreatedAt time.Time
	UpdatedAt time.Time
}
