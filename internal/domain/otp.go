package domain

import "time"

// OTPValidity is how long an issued code stays usable.
const OTPValidity = 10 * time.Minute

// OneTimeCode is the pickup code for a ride. There is at most one per ride.
type OneTimeCode struct {
	RideID     string
	Code       string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Verified   bool
	VerifiedAt time.Time
}

// ExpiredAt reports whether the code is past its expiry at the given instant.
// A code is still valid exactly at ExpiresAt.
func (o *OneTimeCode) ExpiredAt(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
