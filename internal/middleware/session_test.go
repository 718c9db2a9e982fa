package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/kanban-board/internal/logging"
	"github.com/iliyamo/kanban-board/internal/model"
	"github.com/iliyamo/kanban-board/internal/repository"
	"github.com/iliyamo/kanban-board/internal/utils"
)

const (
	testSecret = "0123456789abcdef0123456789abcdef"
	testCookie = "kanban_session"
)

type fakeSessions struct {
	byHash map[string]uint64
	err    error
}

func (f *fakeSessions) Validate(_ context.Context, tokenHash string) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	uid, ok := f.byHash[tokenHash]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return uid, nil
}

func issue(t *testing.T, sessions *fakeSessions, who model.Identity) string {
	t.Helper()
	tok, err := utils.NewSessionToken(testSecret, who, time.Hour, time.Now())
	require.NoError(t, err)
	sessions.byHash[utils.HashSessionID(tok.ID)] = who.UserID
	return tok.Token
}

func serveGate(mw echo.MiddlewareFunc, cookie string) *httptest.ResponseRecorder {
	e := echo.New()
	e.GET("/protected", func(c echo.Context) error {
		who, ok := IdentityFrom(c)
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		return c.JSON(http.StatusOK, who)
	}, mw)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: cookie})
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequireAPI(t *testing.T) {
	alice := model.Identity{UserID: 7, Username: "alice"}
	sessions := &fakeSessions{byHash: map[string]uint64{}}
	live := issue(t, sessions, alice)

	revokedTok, err := utils.NewSessionToken(testSecret, alice, time.Hour, time.Now())
	require.NoError(t, err)

	forged, err := utils.NewSessionToken("another-secret-of-enough-length", alice, time.Hour, time.Now())
	require.NoError(t, err)
	sessions.byHash[utils.HashSessionID(forged.ID)] = alice.UserID

	tests := []struct {
		name   string
		cookie string
		code   int
	}{
		{"live session", live, http.StatusOK},
		{"no cookie", "", http.StatusUnauthorized},
		{"garbage cookie", "not-a-token", http.StatusUnauthorized},
		{"revoked session", revokedTok.Token, http.StatusUnauthorized},
		{"wrong signature", forged.Token, http.StatusUnauthorized},
	}
	gate := NewSessionGate(testSecret, testCookie, sessions, logging.Nop())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serveGate(gate.RequireAPI(), tc.cookie)
			assert.Equal(t, tc.code, rec.Code)
			if tc.code == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"Authentication required"}`, rec.Body.String())
			} else {
				assert.JSONEq(t, `{"user_id":7,"username":"alice"}`, rec.Body.String())
			}
		})
	}
}

func TestRequireAPI_SessionBelongsToAnotherUser(t *testing.T) {
	sessions := &fakeSessions{byHash: map[string]uint64{}}
	tok := issue(t, sessions, model.Identity{UserID: 7, Username: "alice"})
	for h := range sessions.byHash {
		sessions.byHash[h] = 8
	}
	gate := NewSessionGate(testSecret, testCookie, sessions, logging.Nop())

	rec := serveGate(gate.RequireAPI(), tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAPI_StorageError(t *testing.T) {
	sessions := &fakeSessions{byHash: map[string]uint64{}}
	tok := issue(t, sessions, model.Identity{UserID: 7, Username: "alice"})
	sessions.err = errors.New("db down")
	gate := NewSessionGate(testSecret, testCookie, sessions, logging.Nop())

	rec := serveGate(gate.RequireAPI(), tok)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequirePage(t *testing.T) {
	sessions := &fakeSessions{byHash: map[string]uint64{}}
	tok := issue(t, sessions, model.Identity{UserID: 7, Username: "alice"})
	gate := NewSessionGate(testSecret, testCookie, sessions, logging.Nop())

	rec := serveGate(gate.RequirePage("/login"), "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	rec = serveGate(gate.RequirePage("/login"), tok)
	assert.Equal(t, http.StatusOK, rec.Code)

	sessions.err = errors.New("db down")
	rec = serveGate(gate.RequirePage("/login"), tok)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderLocation))
}
