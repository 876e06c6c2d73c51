package service

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/bizdesk/internal/core/domain"
	"github.com/rl1809/bizdesk/internal/port"
)

var (
	_ port.CacheRepository = (*mockCacheRepo)(nil)
	_ port.KeyValueStore   = (*mockKV)(nil)
	_ port.PaymentGateway  = (*mockGateway)(nil)
	_ port.TokenIssuer     = (*mockTokens)(nil)
)

// Mock CacheRepository
type mockCacheRepo struct {
	idempotencySet map[string]bool
	locks          map[string]string
	released       int
	onAcquire      func()
	mu             sync.Mutex
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{
		idempotencySet: make(map[string]bool),
		locks:          make(map[string]string),
	}
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idempotencySet[key] {
		return false, nil
	}
	m.idempotencySet[key] = true
	return true, nil
}

func (m *mockCacheRepo) ClearIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.idempotencySet, key)
	return nil
}

func (m *mockCacheRepo) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, held := m.locks[key]; held {
		return false, nil
	}
	m.locks[key] = token
	if m.onAcquire != nil {
		m.onAcquire()
	}
	return true, nil
}

func (m *mockCacheRepo) ReleaseLock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locks[key] == token {
		delete(m.locks, key)
		m.released++
	}
	return nil
}

func (m *mockCacheRepo) isSet(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idempotencySet[key]
}

// Mock KeyValueStore
type mockKV struct {
	data map[string][]byte
	mu   sync.Mutex
}

func newMockKV() *mockKV {
	return &mockKV{data: make(map[string][]byte)}
}

func (m *mockKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.data[key]
	if !ok {
		return nil, port.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *mockKV) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *mockKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Mock PaymentGateway. A nil err charges successfully; block holds every
// charge until ctx is done.
type mockGateway struct {
	err     error
	block   bool
	started chan struct{}
	calls   int
	mu      sync.Mutex
}

func (m *mockGateway) Charge(ctx context.Context, charge domain.Charge) (domain.PaymentReceipt, error) {
	m.mu.Lock()
	m.calls++
	err, block := m.err, m.block
	m.mu.Unlock()

	if m.started != nil {
		m.started <- struct{}{}
	}
	if block {
		<-ctx.Done()
		return domain.PaymentReceipt{}, ctx.Err()
	}
	if err != nil {
		return domain.PaymentReceipt{}, err
	}
	return domain.PaymentReceipt{
		PaymentID: "pay_test_1",
		OrderID:   "order_test_1",
		Method:    charge.Details.Method,
		Amount:    charge.Amount,
		Currency:  charge.Currency,
	}, nil
}

func (m *mockGateway) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Mock TokenIssuer
type mockTokens struct{}

func (mockTokens) Issue(userID, email string) (string, time.Time, error) {
	return "token-" + userID, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}
