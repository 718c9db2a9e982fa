package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/kanban-board/internal/config"
	"github.com/iliyamo/kanban-board/internal/model"
)

// fakeScripter answers EvalSha with a fixed token bucket result.
type fakeScripter struct {
	redis.Scripter
	result []interface{}
	err    error
	keys   []string
}

func (f *fakeScripter) EvalSha(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	f.keys = append(f.keys, keys...)
	return redis.NewCmdResult(f.result, f.err)
}

func (f *fakeScripter) Eval(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.EvalSha(ctx, "", keys, args...)
}

func rlConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       5,
		RefillTokens:   1,
		RefillInterval: time.Second,
		TTL:            time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
}

func serveLimited(t *testing.T, mw echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.POST("/api/login", func(c echo.Context) error { return c.String(http.StatusOK, "ok") }, mw)
	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestNewTokenBucket_PassThroughWithoutRedis(t *testing.T) {
	var nilClient *redis.Client
	rec := serveLimited(t, NewTokenBucket(rlConfig(), nilClient))
	assert.Equal(t, http.StatusOK, rec.Code)

	cfg := rlConfig()
	cfg.Enabled = false
	rec = serveLimited(t, NewTokenBucket(cfg, &fakeScripter{result: []interface{}{int64(0), int64(0), int64(900)}}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewTokenBucket_Allowed(t *testing.T) {
	f := &fakeScripter{result: []interface{}{int64(1), int64(4), int64(0)}}
	rec := serveLimited(t, NewTokenBucket(rlConfig(), f))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	require.Len(t, f.keys, 1)
	assert.Equal(t, "rl:ip:10.0.0.1:route:POST /api/login", f.keys[0])
}

func TestNewTokenBucket_Blocked(t *testing.T) {
	f := &fakeScripter{result: []interface{}{int64(0), int64(0), int64(1500)}}
	rec := serveLimited(t, NewTokenBucket(rlConfig(), f))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "Too many requests")
}

func TestNewTokenBucket_FailsOpenOnRedisError(t *testing.T) {
	f := &fakeScripter{err: redis.ErrClosed}
	rec := serveLimited(t, NewTokenBucket(rlConfig(), f))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/verify-otp", nil)
	req.Header.Set(echo.HeaderXRealIP, "192.0.2.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/verify-otp")

	tests := []struct {
		strategy string
		withUser bool
		want     string
	}{
		{"ip", false, "rl:ip:192.0.2.7"},
		{"user", false, "rl:user:anon"},
		{"user", true, "rl:user:42"},
		{"route", false, "rl:route:POST /api/verify-otp"},
		{"ip_user", true, "rl:ip:192.0.2.7:user:42"},
		{"ip_route", false, "rl:ip:192.0.2.7:route:POST /api/verify-otp"},
		{"", false, "rl:ip:192.0.2.7:user:anon:route:POST /api/verify-otp"},
	}
	for _, tc := range tests {
		t.Run(tc.strategy, func(t *testing.T) {
			c.Set(identityKey, nil)
			if tc.withUser {
				SetIdentity(c, model.Identity{UserID: 42, Username: "alice"})
			}
			cfg := rlConfig()
			cfg.KeyStrategy = tc.strategy
			assert.Equal(t, tc.want, buildRateKey(cfg, c))
		})
	}
}
