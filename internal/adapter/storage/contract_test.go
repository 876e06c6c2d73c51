package storage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rl1809/bizdesk/internal/port"
)

// runCacheContract exercises the behaviour the services rely on. Keys are
// suffixed so runs against a shared Redis do not collide.
func runCacheContract(t *testing.T, repo port.CacheRepository, suffix string) {
	ctx := context.Background()

	t.Run("idempotency", func(t *testing.T) {
		key := "sale:req-" + suffix
		ok, err := repo.SetIdempotency(ctx, key, time.Minute)
		if err != nil || !ok {
			t.Fatalf("expected first call to succeed, got ok=%v err=%v", ok, err)
		}
		ok, err = repo.SetIdempotency(ctx, key, time.Minute)
		if err != nil || ok {
			t.Fatalf("expected second call to fail, got ok=%v err=%v", ok, err)
		}
		if err := repo.ClearIdempotency(ctx, key); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ok, _ = repo.SetIdempotency(ctx, key, time.Minute)
		if !ok {
			t.Error("expected key to be reusable after clear")
		}
		repo.ClearIdempotency(ctx, key)
	})

	t.Run("idempotency concurrent", func(t *testing.T) {
		key := "sale:concurrent-" + suffix
		var successCount atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := repo.SetIdempotency(ctx, key, time.Minute)
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				if ok {
					successCount.Add(1)
				}
			}()
		}
		wg.Wait()
		if successCount.Load() != 1 {
			t.Errorf("expected exactly 1 success, got %d", successCount.Load())
		}
		repo.ClearIdempotency(ctx, key)
	})

	t.Run("lock", func(t *testing.T) {
		key := "payment:" + suffix
		ok, err := repo.AcquireLock(ctx, key, "owner", time.Minute)
		if err != nil || !ok {
			t.Fatalf("expected lock, got ok=%v err=%v", ok, err)
		}
		if ok, _ := repo.AcquireLock(ctx, key, "other", time.Minute); ok {
			t.Fatal("expected lock to be held")
		}
		if err := repo.ReleaseLock(ctx, key, "other"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok, _ := repo.AcquireLock(ctx, key, "other", time.Minute); ok {
			t.Fatal("release with the wrong token must not free the lock")
		}
		if err := repo.ReleaseLock(ctx, key, "owner"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ok, _ = repo.AcquireLock(ctx, key, "other", time.Minute)
		if !ok {
			t.Fatal("expected lock after release")
		}
		repo.ReleaseLock(ctx, key, "other")
	})
}

func runKVContract(t *testing.T, kv port.KeyValueStore, suffix string) {
	ctx := context.Background()
	key := "businessUser-" + suffix

	if _, err := kv.Get(ctx, key); !errors.Is(err, port.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := kv.Set(ctx, key, []byte(`{"version":2}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := kv.Get(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != `{"version":2}` {
		t.Errorf("unexpected value %q", got)
	}
	if err := kv.Delete(ctx, key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := kv.Get(ctx, key); !errors.Is(err, port.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
