// Package outlet bounds how many brews run at once.
package outlet

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"brewz/internal/check"
)

// Limiter is a counting semaphore with one slot per brewing outlet.
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int

	mu    sync.Mutex
	inUse int
	peak  int
}

// New returns a limiter with capacity slots. Capacity must be at least 1.
func New(capacity int) *Limiter {
	check.Assertf(capacity >= 1, "outlet.New: capacity = %d", capacity)
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire outlet: %w", err)
	}
	l.mu.Lock()
	l.inUse++
	if l.inUse > l.peak {
		l.peak = l.inUse
	}
	check.Assertf(l.inUse <= l.capacity, "outlets in use = %d, capacity %d", l.inUse, l.capacity)
	l.mu.Unlock()
	return nil
}

// Release returns a slot. It never blocks and panics if no slot is held.
func (l *Limiter) Release() {
	l.mu.Lock()
	if l.inUse == 0 {
		l.mu.Unlock()
		panic("outlet: release without acquire")
	}
	l.inUse--
	l.mu.Unlock()
	l.sem.Release(1)
}

func (l *Limiter) Capacity() int { return l.capacity }

// InUse returns how many slots are currently held.
func (l *Limiter) InUse() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inUse
}

// Peak returns the highest number of slots ever held at once.
func (l *Limiter) Peak() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peak
}
