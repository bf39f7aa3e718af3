package lending

import "time"

// Status is the canonical borrow lifecycle vocabulary. Legacy external
// vocabularies ("issued", "pending") are translated at the HTTP boundary.
type Status string

const (
	StatusRequested      Status = "requested"
	StatusApproved       Status = "approved"
	StatusBorrowed       Status = "borrowed"
	StatusRenewRequested Status = "renew_requested"
	StatusRenewed        Status = "renewed"
	StatusReturned       Status = "returned"
	StatusRejected       Status = "rejected"
)

// validTransitions is the single source of truth for legal state changes.
var validTransitions = map[Status][]Status{
	StatusRequested:      {StatusApproved, StatusRejected},
	StatusApproved:       {StatusBorrowed, StatusReturned, StatusRenewRequested, StatusRenewed},
	StatusBorrowed:       {StatusReturned, StatusRenewRequested},
	StatusRenewRequested: {StatusRenewed, StatusReturned, StatusApproved, StatusBorrowed},
	StatusRenewed:        {StatusReturned, StatusRenewRequested},
	StatusReturned:       {},
	StatusRejected:       {},
}

// CanTransition reports whether from -> to is a legal state change.
// renew_requested -> approved/borrowed is the renewal-rejection revert path.
func CanTransition(from, to Status) bool {
	for _, t := range validTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

func IsValidStatus(s Status) bool {
	_, ok := validTransitions[s]
	return ok
}

// ActiveStatuses hold a reserved inventory copy.
var ActiveStatuses = []Status{
	StatusRequested, StatusApproved, StatusBorrowed, StatusRenewRequested, StatusRenewed,
}

// OverdueStatuses are the statuses a record can accrue fines in.
var OverdueStatuses = []Status{StatusApproved, StatusBorrowed, StatusRenewed}

// BorrowRecord is one loan transaction's full lifecycle from request to
// return. Borrower and item references are immutable after creation; all
// other mutation goes through the state machine.
type BorrowRecord struct {
	BorrowID    string
	UserID      string
	ItemID      string
	Status      Status
	RequestDate time.Time
	IssueDate   *time.Time
	DueDate     *time.Time
	ReturnDate  *time.Time

	RenewCount         int
	RenewalRequestDate *time.Time
	RenewalPriorStatus *Status

	FineAmount float64
	TotalFine  float64

	RejectionReason string
	Notes           string
	ProcessedBy     string

	// Sweep progress markers. Persisted per record so re-running a sweep
	// never double-charges or double-notifies.
	LastFineProcessed   *time.Time
	LastOverdueNotified *time.Time
	DueSoonNotified     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (b *BorrowRecord) IsTerminal() bool {
	return b.Status == StatusReturned || b.Status == StatusRejected
}

func (b *BorrowRecord) IsActive() bool {
	return !b.IsTerminal()
}

// IsOverdue reports whether the record is past due in an issued-like state.
func (b *BorrowRecord) IsOverdue(now time.Time) bool {
	if b.DueDate == nil {
		return false
	}
	for _, s := range OverdueStatuses {
		if b.Status == s {
			return b.DueDate.Before(now)
		}
	}
	return false
}

// DaysOverdueAt counts overdue days at asOf: ceil of the elapsed time past
// the due date, clamped to >= 0. Partial days charge a full day.
func (b *BorrowRecord) DaysOverdueAt(asOf time.Time) int {
	if b.DueDate == nil {
		return 0
	}
	return DaysLate(*b.DueDate, asOf)
}

// FineAt computes the day-based fine at asOf.
func (b *BorrowRecord) FineAt(asOf time.Time, finePerDay float64) float64 {
	return float64(b.DaysOverdueAt(asOf)) * finePerDay
}

// DaysLate is the shared overdue-day formula.
func DaysLate(due, asOf time.Time) int {
	if !asOf.After(due) {
		return 0
	}
	d := asOf.Sub(due)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}
