package lending

import "time"

type RequestBorrowRequest struct {
	ItemID string `json:"item_id" binding:"required"`
}

// UpdateStatusRequest is the staff-facing transition request. Status
// accepts the legacy vocabulary ("issued", "pending") and is normalized
// before it reaches the core.
type UpdateStatusRequest struct {
	Status          string     `json:"status" binding:"required"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	ReturnDate      *time.Time `json:"return_date,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}

type ResolveRenewalRequest struct {
	Action string `json:"action" binding:"required"` // approve | reject
}

type BorrowResponse struct {
	BorrowID           string     `json:"borrow_id"`
	UserID             string     `json:"user_id"`
	ItemID             string     `json:"item_id"`
	Status             string     `json:"status"`
	RequestDate        time.Time  `json:"request_date"`
	IssueDate          *time.Time `json:"issue_date,omitempty"`
	DueDate            *time.Time `json:"due_date,omitempty"`
	ReturnDate         *time.Time `json:"return_date,omitempty"`
	RenewCount         int        `json:"renew_count"`
	RenewalRequestDate *time.Time `json:"renewal_request_date,omitempty"`
	FineAmount         float64    `json:"fine_amount"`
	TotalFine          float64    `json:"total_fine"`
	RejectionReason    string     `json:"rejection_reason,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	IsOverdue          bool       `json:"is_overdue"`
	DaysOverdue        int        `json:"days_overdue"`
}

func toBorrowResponse(rec *BorrowRecord, now time.Time) BorrowResponse {
	resp := BorrowResponse{
		BorrowID:           rec.BorrowID,
		UserID:             rec.UserID,
		ItemID:             rec.ItemID,
		Status:             string(rec.Status),
		RequestDate:        rec.RequestDate,
		IssueDate:          rec.IssueDate,
		DueDate:            rec.DueDate,
		ReturnDate:         rec.ReturnDate,
		RenewCount:         rec.RenewCount,
		RenewalRequestDate: rec.RenewalRequestDate,
		FineAmount:         rec.FineAmount,
		TotalFine:          rec.TotalFine,
		RejectionReason:    rec.RejectionReason,
		Notes:              rec.Notes,
	}
	if rec.IsOverdue(now) {
		resp.IsOverdue = true
		resp.DaysOverdue = rec.DaysOverdueAt(now)
	}
	return resp
}

// normalizeStatus maps legacy external vocabulary onto the canonical enum.
func normalizeStatus(s string) Status {
	switch s {
	case "issued":
		return StatusBorrowed
	case "pending":
		return StatusRequested
	default:
		return Status(s)
	}
}
