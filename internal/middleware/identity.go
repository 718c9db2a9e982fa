package middleware

// identity.go holds the helpers that move the authenticated caller between
// the session gate, the rate limiter and the handlers.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kanban-board/internal/model"
)

const identityKey = "identity"

// SetIdentity stores the authenticated caller on the echo context.
func SetIdentity(c echo.Context, who model.Identity) {
	c.Set(identityKey, who)
}

// IdentityFrom returns the caller placed on the context by the session gate.
func IdentityFrom(c echo.Context) (model.Identity, bool) {
	who, ok := c.Get(identityKey).(model.Identity)
	return who, ok && who.UserID != 0
}

// userID is the rate limit key component for the caller; "anon" before login.
func userID(c echo.Context) string {
	if who, ok := IdentityFrom(c); ok {
		return strconv.FormatUint(who.UserID, 10)
	}
	return "anon"
}
