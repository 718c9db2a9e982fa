package utils // package utils provides helpers for session tokens, password hashing and OTP codes

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/kanban-board/internal/model"
)

// ErrInvalidSession is returned for any cookie token that fails to parse,
// verify or carry the expected claims.
var ErrInvalidSession = errors.New("invalid session token")

// SessionClaims are the claims carried in the session cookie. The subject is
// the user id and ID (jti) identifies the server-side session row.
type SessionClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// SessionToken is a signed cookie value together with its session id and expiry.
type SessionToken struct {
	Token string    // the serialized JWT
	ID    string    // jti; only its hash is persisted
	Exp   time.Time // UTC expiry
}

// NewSessionToken signs an HS256 JWT for the given identity valid for ttl from now.
func NewSessionToken(secret string, who model.Identity, ttl time.Duration, now time.Time) (SessionToken, error) {
	now = now.UTC()
	exp := now.Add(ttl)
	jti := uuid.NewString()
	claims := SessionClaims{
		Name: who.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(who.UserID, 10),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, fmt.Errorf("sign session: %w", err)
	}
	return SessionToken{Token: signed, ID: jti, Exp: exp}, nil
}

// ParseSessionToken verifies raw and returns the identity and session id it carries.
func ParseSessionToken(secret, raw string) (model.Identity, string, error) {
	var claims SessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return model.Identity{}, "", ErrInvalidSession
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || uid == 0 || claims.ID == "" {
		return model.Identity{}, "", ErrInvalidSession
	}
	return model.Identity{UserID: uid, Username: claims.Name}, claims.ID, nil
}

// HashSessionID returns the SHA-256 hex digest stored in sessions.token_hash.
func HashSessionID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}
