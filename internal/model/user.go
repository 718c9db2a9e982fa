package model

import "time"

// User represents a row of the `users` table. Only PasswordHash ever changes
// after signup.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username (unique)
	Email        string    // users.email (unique)
	Phone        string    // users.phone (unique, OTP contact)
	PasswordHash string    // users.password_hash (bcrypt)
	CreatedAt    time.Time // users.created_at
}

// Identity is the authenticated caller attached to a request by the session
// gate. Board and summary operations take it explicitly.
type Identity struct {
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
}

// Session models an entry in the `sessions` table. The cookie carries a
// signed token whose session id is stored here only as a SHA-256 hash.
type Session struct {
	ID        uint64     // sessions.id
	UserID    uint64     // sessions.user_id
	TokenHash string     // sessions.token_hash
	ExpiresAt time.Time  // sessions.expires_at
	RevokedAt *time.Time // sessions.revoked_at (nullable)
	CreatedAt time.Time  // sessions.created_at
}
