package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/kanban-board/internal/model"
)

// OTPStore keeps at most one pending reset code per phone number. Put
// replaces any previous entry. Get returns ErrNotFound when no entry exists.
type OTPStore interface {
	Put(ctx context.Context, phone string, e model.OTPEntry) error
	Get(ctx context.Context, phone string) (model.OTPEntry, error)
	Delete(ctx context.Context, phone string) error
}

// redisKV is the part of the go-redis client used by RedisOTPStore.
type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisOTPStore stores entries as JSON under "<prefix>:<phone>". Each key
// lives for the retention period, which is at least the code TTL, so an
// expired code can still be reported as expired before Redis drops it.
type RedisOTPStore struct {
	rdb       redisKV
	prefix    string
	retention time.Duration
}

func NewRedisOTPStore(rdb redisKV, retention time.Duration) *RedisOTPStore {
	return &RedisOTPStore{rdb: rdb, prefix: "otp", retention: retention}
}

func (s *RedisOTPStore) key(phone string) string { return s.prefix + ":" + phone }

func (s *RedisOTPStore) Put(ctx context.Context, phone string, e model.OTPEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode otp: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(phone), b, s.retention).Err(); err != nil {
		return fmt.Errorf("redis set otp: %w", err)
	}
	return nil
}

func (s *RedisOTPStore) Get(ctx context.Context, phone string) (model.OTPEntry, error) {
	raw, err := s.rdb.Get(ctx, s.key(phone)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.OTPEntry{}, ErrNotFound
		}
		return model.OTPEntry{}, fmt.Errorf("redis get otp: %w", err)
	}
	var e model.OTPEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return model.OTPEntry{}, fmt.Errorf("decode otp: %w", err)
	}
	return e, nil
}

func (s *RedisOTPStore) Delete(ctx context.Context, phone string) error {
	if err := s.rdb.Del(ctx, s.key(phone)).Err(); err != nil {
		return fmt.Errorf("redis del otp: %w", err)
	}
	return nil
}

// MemoryOTPStore is the in-process fallback used when Redis is unavailable.
// Entries older than the retention period are dropped lazily.
type MemoryOTPStore struct {
	mu        sync.Mutex
	entries   map[string]model.OTPEntry
	retention time.Duration
	now       func() time.Time
}

func NewMemoryOTPStore(retention time.Duration) *MemoryOTPStore {
	return &MemoryOTPStore{
		entries:   make(map[string]model.OTPEntry),
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryOTPStore) Put(_ context.Context, phone string, e model.OTPEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.entries[phone] = e
	return nil
}

func (s *MemoryOTPStore) Get(_ context.Context, phone string) (model.OTPEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[phone]
	if !ok {
		return model.OTPEntry{}, ErrNotFound
	}
	if e.Expired(s.now(), s.retention) {
		delete(s.entries, phone)
		return model.OTPEntry{}, ErrNotFound
	}
	return e, nil
}

func (s *MemoryOTPStore) Delete(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, phone)
	return nil
}

// Len reports the number of stored entries, including stale ones not yet swept.
func (s *MemoryOTPStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryOTPStore) sweepLocked() {
	now := s.now()
	for phone, e := range s.entries {
		if e.Expired(now, s.retention) {
			delete(s.entries, phone)
		}
	}
}
