// Package clock abstracts time for the machine's polled waits so tests can
// shrink or observe them.
package clock

import (
	"context"
	"time"
)

// Clock reports the current time and sleeps cooperatively.
type Clock interface {
	Now() time.Time
	// Sleep waits for d or until ctx is done. It returns false if ctx ended first.
	Sleep(ctx context.Context, d time.Duration) bool
}

// Real implements Clock using the system clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// SleepPolled sleeps for total in steps of at most poll, checking ctx between
// steps. It returns false as soon as a step is interrupted.
func SleepPolled(ctx context.Context, c Clock, total, poll time.Duration) bool {
	if poll <= 0 || poll > total {
		poll = total
	}
	for remaining := total; remaining > 0; remaining -= poll {
		step := min(poll, remaining)
		if !c.Sleep(ctx, step) {
			return false
		}
	}
	return ctx.Err() == nil
}
