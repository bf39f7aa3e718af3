package lending

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusRequested, StatusApproved},
		{StatusRequested, StatusRejected},
		{StatusApproved, StatusBorrowed},
		{StatusApproved, StatusReturned},
		{StatusApproved, StatusRenewRequested},
		{StatusApproved, StatusRenewed},
		{StatusBorrowed, StatusReturned},
		{StatusBorrowed, StatusRenewRequested},
		{StatusRenewRequested, StatusRenewed},
		{StatusRenewRequested, StatusReturned},
		{StatusRenewRequested, StatusApproved},
		{StatusRenewRequested, StatusBorrowed},
		{StatusRenewed, StatusReturned},
		{StatusRenewed, StatusRenewRequested},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}

	denied := []struct{ from, to Status }{
		{StatusRequested, StatusBorrowed},
		{StatusRequested, StatusReturned},
		{StatusRequested, StatusRenewed},
		{StatusBorrowed, StatusApproved},
		{StatusBorrowed, StatusRejected},
		{StatusBorrowed, StatusRenewed},
		{StatusRenewed, StatusRenewed},
		{StatusReturned, StatusApproved},
		{StatusReturned, StatusBorrowed},
		{StatusRejected, StatusRequested},
		{StatusApproved, StatusRejected},
	}
	for _, tc := range denied {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be illegal", tc.from, tc.to)
	}
}

func TestDaysLate(t *testing.T) {
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		asOf time.Time
		want int
	}{
		{"before due", due.AddDate(0, 0, -1), 0},
		{"exactly due", due, 0},
		{"one second late charges a full day", due.Add(time.Second), 1},
		{"exactly three days", due.AddDate(0, 0, 3), 3},
		{"three and a half days rounds up", due.Add(3*24*time.Hour + 12*time.Hour), 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DaysLate(due, tc.asOf))
		})
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -3)
	future := now.AddDate(0, 0, 3)

	t.Run("borrowed past due is overdue", func(t *testing.T) {
		rec := &BorrowRecord{Status: StatusBorrowed, DueDate: &past}
		assert.True(t, rec.IsOverdue(now))
		assert.Equal(t, 3, rec.DaysOverdueAt(now))
	})

	t.Run("borrowed before due is not overdue", func(t *testing.T) {
		rec := &BorrowRecord{Status: StatusBorrowed, DueDate: &future}
		assert.False(t, rec.IsOverdue(now))
	})

	t.Run("requested past due is not overdue", func(t *testing.T) {
		rec := &BorrowRecord{Status: StatusRequested, DueDate: &past}
		assert.False(t, rec.IsOverdue(now))
	})

	t.Run("returned record is not overdue", func(t *testing.T) {
		rec := &BorrowRecord{Status: StatusReturned, DueDate: &past}
		assert.False(t, rec.IsOverdue(now))
	})

	t.Run("no due date", func(t *testing.T) {
		rec := &BorrowRecord{Status: StatusBorrowed}
		assert.False(t, rec.IsOverdue(now))
		assert.Equal(t, 0, rec.DaysOverdueAt(now))
	})
}

func TestFineAt(t *testing.T) {
	now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	due := now.AddDate(0, 0, -3)
	rec := &BorrowRecord{Status: StatusBorrowed, DueDate: &due}
	assert.Equal(t, 15.0, rec.FineAt(now, 5))
}
