package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/bizdesk/internal/port"
)

var (
	_ port.CacheRepository = (*MemoryAdapter)(nil)
	_ port.KeyValueStore   = (*MemoryAdapter)(nil)
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryAdapter implements the Redis-backed ports inside the process. It is
// used when no Redis address is configured.
type MemoryAdapter struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryAdapter) setNX(key string, value []byte, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.entries[key]; ok && !e.expired(now) {
		return false
	}
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	m.entries[key] = e
	return true
}

func (m *MemoryAdapter) SetIdempotency(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return m.setNX(idempotencyKeyPrefix+key, []byte("1"), ttl), nil
}

func (m *MemoryAdapter) ClearIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, idempotencyKeyPrefix+key)
	return nil
}

func (m *MemoryAdapter) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return m.setNX(lockKeyPrefix+key, []byte(token), ttl), nil
}

func (m *MemoryAdapter) ReleaseLock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := lockKeyPrefix + key
	if e, ok := m.entries[k]; ok && string(e.value) == token {
		delete(m.entries, k)
	}
	return nil
}

func (m *MemoryAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[kvKeyPrefix+key]
	if !ok || e.expired(m.now()) {
		return nil, port.ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (m *MemoryAdapter) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[kvKeyPrefix+key] = memoryEntry{value: append([]byte(nil), value...)}
	return nil
}

func (m *MemoryAdapter) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, kvKeyPrefix+key)
	return nil
}
