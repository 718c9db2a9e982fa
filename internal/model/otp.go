package model

import "time"

// OTPEntry is a pending password reset code keyed by phone number.
type OTPEntry struct {
	Code     string    `json:"code"`
	UserID   uint64    `json:"user_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// Expired reports whether more than ttl has elapsed since issuance.
func (e OTPEntry) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.IssuedAt) > ttl
}
