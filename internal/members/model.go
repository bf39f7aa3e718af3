// Package members is the membership registry slice the expiry sweep reads.
// Profile CRUD lives outside the lending core.
package members

import "time"

type Member struct {
	UserID           string
	Name             string
	Email            string
	MembershipExpiry *time.Time
	ExpiryNotified   bool
}
