package clock

import (
	"context"
	"sync"
	"testing"
	"time"
)

// recordingClock returns immediately and records each requested step.
type recordingClock struct {
	mu     sync.Mutex
	steps  []time.Duration
	stop   int // cancel after this many steps when > 0
	cancel context.CancelFunc
}

func (c *recordingClock) Now() time.Time { return time.Time{} }

func (c *recordingClock) Sleep(ctx context.Context, d time.Duration) bool {
	c.mu.Lock()
	c.steps = append(c.steps, d)
	n := len(c.steps)
	c.mu.Unlock()
	if c.stop > 0 && n == c.stop && c.cancel != nil {
		c.cancel()
	}
	return ctx.Err() == nil
}

func TestSleepPolledSplitsIntoSteps(t *testing.T) {
	t.Parallel()

	c := &recordingClock{}
	if !SleepPolled(context.Background(), c, 2500*time.Millisecond, time.Second) {
		t.Fatal("SleepPolled() = false, want true")
	}
	want := []time.Duration{time.Second, time.Second, 500 * time.Millisecond}
	if len(c.steps) != len(want) {
		t.Fatalf("steps = %v, want %v", c.steps, want)
	}
	for i := range want {
		if c.steps[i] != want[i] {
			t.Fatalf("steps = %v, want %v", c.steps, want)
		}
	}
}

func TestSleepPolledStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &recordingClock{stop: 2, cancel: cancel}

	if SleepPolled(ctx, c, 7*time.Second, time.Second) {
		t.Fatal("SleepPolled() = true, want false after cancel")
	}
	if len(c.steps) != 2 {
		t.Fatalf("step count = %d, want 2", len(c.steps))
	}
}

func TestRealSleepReturnsFalseWhenCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if (Real{}).Sleep(ctx, time.Minute) {
		t.Fatal("Sleep() = true on cancelled context")
	}
	if time.Since(start) > time.Second {
		t.Fatal("Sleep() did not return promptly on cancelled context")
	}
}
