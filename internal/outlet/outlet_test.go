package outlet

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAcquireNeverExceedsCapacity(t *testing.T) {
	t.Parallel()

	const capacity = 3
	l := New(capacity)

	var (
		wg      sync.WaitGroup
		running atomic.Int32
		maxSeen atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			defer l.Release()

			n := running.Add(1)
			for {
				cur := maxSeen.Load()
				if n <= cur || maxSeen.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		}()
	}
	wg.Wait()

	if got := maxSeen.Load(); got > capacity {
		t.Fatalf("observed %d concurrent holders, capacity %d", got, capacity)
	}
	if got := l.Peak(); got > capacity || got < 1 {
		t.Fatalf("Peak() = %d, want 1..%d", got, capacity)
	}
	if got := l.InUse(); got != 0 {
		t.Fatalf("InUse() = %d after all released, want 0", got)
	}
}

func TestAcquireBlocksUntilRelease(t *testing.T) {
	t.Parallel()

	l := New(1)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		if err := l.Acquire(context.Background()); err == nil {
			close(acquired)
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire() succeeded while the only slot was held")
	case <-time.After(50 * time.Millisecond):
	}

	l.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Acquire() did not proceed after Release()")
	}
	l.Release()
}

func TestAcquireHonoursContext(t *testing.T) {
	t.Parallel()

	l := New(1)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer l.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire() error = %v, want deadline exceeded", err)
	}
	if got := l.InUse(); got != 1 {
		t.Fatalf("InUse() = %d after failed acquire, want 1", got)
	}
}

func TestReleaseWithoutAcquirePanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("Release() without Acquire() did not panic")
		}
	}()
	New(2).Release()
}
