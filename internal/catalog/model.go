package catalog

import "time"

// Item is a catalog entry with a finite pool of lendable copies.
// Invariant: 0 <= AvailableCopies <= TotalCopies, enforced by the store's
// guarded updates.
type Item struct {
	ItemID          string
	Title           string
	Author          string
	Category        string
	Publisher       string
	TotalCopies     int
	AvailableCopies int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AvailabilityStatus derives the display status from the counters.
func (i *Item) AvailabilityStatus() string {
	switch {
	case i.AvailableCopies == 0:
		return "unavailable"
	case i.AvailableCopies < i.TotalCopies:
		return "reserved"
	default:
		return "available"
	}
}

// BorrowedCopies is the number of copies currently out.
func (i *Item) BorrowedCopies() int {
	return i.TotalCopies - i.AvailableCopies
}
