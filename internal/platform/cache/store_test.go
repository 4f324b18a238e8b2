package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKey_ParamOrderIndependent(t *testing.T) {
	t.Parallel()

	a := Key("/players/squads", map[string]string{"team": "42", "season": "2026"})
	b := Key("/players/squads", map[string]string{"season": "2026", "team": "42"})
	if a != b {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}

	c := Key("/players/squads", map[string]string{"team": "43", "season": "2026"})
	if a == c {
		t.Fatalf("keys for different params collide: %q", a)
	}
}

func TestStore_GetOrFetch_HonorsTTLBoundary(t *testing.T) {
	t.Parallel()

	base := time.Unix(1_760_000_000, 0)
	current := base
	store := NewStoreWithClock(func() time.Time { return current })

	var calls atomic.Int32
	fetch := func(context.Context) (any, error) {
		calls.Add(1)
		return "squad", nil
	}

	const ttl = 12 * time.Hour
	for _, at := range []time.Duration{0, ttl - time.Second} {
		current = base.Add(at)
		if _, err := store.GetOrFetch(context.Background(), "k", ttl, fetch); err != nil {
			t.Fatalf("GetOrFetch at +%s: %v", at, err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("fetch called %d times inside ttl, want 1", got)
	}

	current = base.Add(ttl + time.Second)
	if _, err := store.GetOrFetch(context.Background(), "k", ttl, fetch); err != nil {
		t.Fatalf("GetOrFetch after expiry: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("fetch called %d times after expiry, want 2", got)
	}
}

func TestStore_GetOrFetch_DoesNotCacheFailures(t *testing.T) {
	t.Parallel()

	store := NewStore()
	var calls atomic.Int32
	wantErr := errors.New("provider down")

	fetch := func(context.Context) (any, error) {
		calls.Add(1)
		return nil, wantErr
	}

	for i := 0; i < 2; i++ {
		if _, err := store.GetOrFetch(context.Background(), "k", time.Minute, fetch); !errors.Is(err, wantErr) {
			t.Fatalf("call %d error=%v want=%v", i, err, wantErr)
		}
	}

	if got := calls.Load(); got != 2 {
		t.Fatalf("fetch called %d times, want 2 (failures must not be cached)", got)
	}
}

func TestStore_GetOrFetch_CollapsesConcurrentMisses(t *testing.T) {
	t.Parallel()

	store := NewStore()
	var calls atomic.Int32

	fetch := func(context.Context) (any, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "value", nil
	}

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := store.GetOrFetch(context.Background(), "same-key", time.Minute, fetch)
			if err != nil {
				t.Errorf("GetOrFetch error: %v", err)
				return
			}
			if got, _ := v.(string); got != "value" {
				t.Errorf("got=%v want=value", v)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("fetch called %d times, want 1", got)
	}
}
