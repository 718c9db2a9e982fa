package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SessionRepo persists server-side sessions keyed by the hash of the
// session id carried in the cookie.
type SessionRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a session row.
func (r *SessionRepo) Create(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (user_id, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?)",
		userID, tokenHash, exp.UTC(), r.now().Truncate(time.Second))
	if err != nil {
		return dbErr("insert session", err)
	}
	return nil
}

// Validate returns the user id of a live session. Unknown, revoked and
// expired sessions all yield ErrNotFound.
func (r *SessionRepo) Validate(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM sessions WHERE token_hash = ? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, dbErr("get session", err)
	}
	if revokedAt.Valid || !r.now().Before(expiresAt) {
		return 0, ErrNotFound
	}
	return userID, nil
}

// Revoke marks a session as revoked. Revoking an unknown or already revoked
// session is not an error.
func (r *SessionRepo) Revoke(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL",
		r.now().Truncate(time.Second), tokenHash)
	if err != nil {
		return dbErr("revoke session", err)
	}
	return nil
}

// PurgeExpired deletes sessions that expired or were revoked before cutoff.
func (r *SessionRepo) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)",
		cutoff.UTC(), cutoff.UTC())
	if err != nil {
		return 0, dbErr("purge sessions", err)
	}
	return res.RowsAffected()
}
