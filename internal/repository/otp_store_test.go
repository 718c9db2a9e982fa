package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/kanban-board/internal/model"
)

// fakeRedis is an in-memory stand-in for the three commands the store uses.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, exp time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, f.err)
}

func TestRedisOTPStore_PutGetDelete(t *testing.T) {
	rdb := newFakeRedis()
	s := NewRedisOTPStore(rdb, 10*time.Minute)
	ctx := context.Background()
	entry := model.OTPEntry{Code: "123456", UserID: 9, IssuedAt: fixedNow}

	require.NoError(t, s.Put(ctx, "+1555", entry))
	assert.Equal(t, 10*time.Minute, rdb.ttls["otp:+1555"])

	got, err := s.Get(ctx, "+1555")
	require.NoError(t, err)
	assert.Equal(t, entry.Code, got.Code)
	assert.Equal(t, entry.UserID, got.UserID)
	assert.True(t, entry.IssuedAt.Equal(got.IssuedAt))

	// a second request replaces the first code
	require.NoError(t, s.Put(ctx, "+1555", model.OTPEntry{Code: "654321", UserID: 9, IssuedAt: fixedNow}))
	got, err = s.Get(ctx, "+1555")
	require.NoError(t, err)
	assert.Equal(t, "654321", got.Code)

	require.NoError(t, s.Delete(ctx, "+1555"))
	_, err = s.Get(ctx, "+1555")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisOTPStore_PropagatesErrors(t *testing.T) {
	rdb := newFakeRedis()
	rdb.err = errors.New("connection reset")
	s := NewRedisOTPStore(rdb, time.Minute)

	err := s.Put(context.Background(), "p", model.OTPEntry{})
	require.Error(t, err)
	_, err = s.Get(context.Background(), "p")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestRedisOTPStore_CorruptPayload(t *testing.T) {
	rdb := newFakeRedis()
	rdb.data["otp:p"] = "{not json"
	s := NewRedisOTPStore(rdb, time.Minute)

	_, err := s.Get(context.Background(), "p")
	require.Error(t, err)
}

func TestMemoryOTPStore_RetentionAndSweep(t *testing.T) {
	s := NewMemoryOTPStore(10 * time.Minute)
	now := fixedNow
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a", model.OTPEntry{Code: "111111", UserID: 1, IssuedAt: now}))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "111111", got.Code)

	// past the code TTL but within retention: still readable
	now = fixedNow.Add(301 * time.Second)
	_, err = s.Get(ctx, "a")
	require.NoError(t, err)

	// past retention: gone
	now = fixedNow.Add(11 * time.Minute)
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	// stale entries are swept on the next Put
	now = fixedNow
	require.NoError(t, s.Put(ctx, "b", model.OTPEntry{IssuedAt: now}))
	require.NoError(t, s.Put(ctx, "c", model.OTPEntry{IssuedAt: now}))
	now = fixedNow.Add(20 * time.Minute)
	require.NoError(t, s.Put(ctx, "d", model.OTPEntry{IssuedAt: now}))
	assert.Equal(t, 1, s.Len())
}

func TestMemoryOTPStore_ConcurrentPhones(t *testing.T) {
	s := NewMemoryOTPStore(time.Minute)
	ctx := context.Background()
	phones := []string{"1", "2", "3", "4", "5", "6", "7", "8"}

	var wg sync.WaitGroup
	for _, p := range phones {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			_ = s.Put(ctx, p, model.OTPEntry{Code: p, IssuedAt: time.Now().UTC()})
		}(p)
	}
	wg.Wait()

	for _, p := range phones {
		e, err := s.Get(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, p, e.Code)
	}
}

var _ OTPStore = (*RedisOTPStore)(nil)
var _ OTPStore = (*MemoryOTPStore)(nil)
var _ redisKV = (*redis.Client)(nil)
