package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kanban-board/internal/logging"
	"github.com/iliyamo/kanban-board/internal/model"
	"github.com/iliyamo/kanban-board/internal/repository"
	"github.com/iliyamo/kanban-board/internal/utils"
)

// ErrUnauthenticated is returned by Authenticate when the request carries no
// live session.
var ErrUnauthenticated = errors.New("authentication required")

// SessionValidator resolves a session hash to its user id.
type SessionValidator interface {
	Validate(ctx context.Context, tokenHash string) (uint64, error)
}

// SessionGate maps a request to an authenticated identity using the signed
// session cookie and the server-side session row it points to.
type SessionGate struct {
	secret     string
	cookieName string
	sessions   SessionValidator
	log        logging.Logger
}

func NewSessionGate(secret, cookieName string, sessions SessionValidator, log logging.Logger) *SessionGate {
	return &SessionGate{secret: secret, cookieName: cookieName, sessions: sessions, log: log}
}

// Authenticate returns the caller's identity or ErrUnauthenticated. Other
// errors are storage failures.
func (g *SessionGate) Authenticate(c echo.Context) (model.Identity, error) {
	ck, err := c.Cookie(g.cookieName)
	if err != nil || ck.Value == "" {
		return model.Identity{}, ErrUnauthenticated
	}
	who, jti, err := utils.ParseSessionToken(g.secret, ck.Value)
	if err != nil {
		return model.Identity{}, ErrUnauthenticated
	}
	uid, err := g.sessions.Validate(c.Request().Context(), utils.HashSessionID(jti))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Identity{}, ErrUnauthenticated
		}
		return model.Identity{}, err
	}
	if uid != who.UserID {
		return model.Identity{}, ErrUnauthenticated
	}
	return who, nil
}

// RequireAPI rejects unauthenticated API calls with 401.
func (g *SessionGate) RequireAPI() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			who, err := g.Authenticate(c)
			if err != nil {
				if errors.Is(err, ErrUnauthenticated) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required"})
				}
				g.log.Error(c.Request().Context(), "session lookup failed", "err", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}
			SetIdentity(c, who)
			return next(c)
		}
	}
}

// RequirePage redirects unauthenticated page requests to loginPath. A
// failed session lookup is a 500, not a logout.
func (g *SessionGate) RequirePage(loginPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			who, err := g.Authenticate(c)
			if err != nil {
				if errors.Is(err, ErrUnauthenticated) {
					return c.Redirect(http.StatusFound, loginPath)
				}
				g.log.Error(c.Request().Context(), "session lookup failed", "err", err)
				return c.String(http.StatusInternalServerError, "internal error")
			}
			SetIdentity(c, who)
			return next(c)
		}
	}
}

