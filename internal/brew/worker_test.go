package brew

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"brewz"
	"brewz/internal/inventory"
	"brewz/internal/outlet"
)

// instantClock never blocks. Each Sleep call is counted and may run a hook.
type instantClock struct {
	mu      sync.Mutex
	sleeps  int
	onSleep func(n int)
}

func (c *instantClock) Now() time.Time { return time.Unix(1700000000, 0) }

func (c *instantClock) Sleep(ctx context.Context, _ time.Duration) bool {
	c.mu.Lock()
	c.sleeps++
	n := c.sleeps
	hook := c.onSleep
	c.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return ctx.Err() == nil
}

type memJournal struct {
	mu      sync.Mutex
	results []brewz.BrewResult
}

func (j *memJournal) Record(_ context.Context, r brewz.BrewResult) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = append(j.results, r)
	return nil
}

func newWorker(t *testing.T, stock map[string]int, outlets int) (*Worker, *inventory.Inventory, *outlet.Limiter, *memJournal) {
	t.Helper()
	inv := inventory.New()
	inv.AddAll(stock)
	lim := outlet.New(outlets)
	j := &memJournal{}
	return &Worker{
		Inventory: inv,
		Outlets:   lim,
		Clock:     &instantClock{},
		Poll:      time.Second,
		Journal:   j,
	}, inv, lim, j
}

func TestBrewSuccess(t *testing.T) {
	t.Parallel()

	w, inv, lim, j := newWorker(t, map[string]int{"Water": 70, "Milk": 80}, 2)
	coffee := brewz.NewBeverage("Coffee", brewz.Recipe{"Water": 20, "Milk": 30}, brewz.WithPrepTime(3*time.Second))

	res := w.Brew(context.Background(), coffee)
	if res.Outcome != brewz.OutcomeBrewed {
		t.Fatalf("Brew() outcome = %s, want brewed", res.Outcome)
	}
	if res.ID == "" {
		t.Fatal("Brew() returned empty id")
	}
	if got := inv.Quantity("Water"); got != 50 {
		t.Fatalf("Water = %d, want 50", got)
	}
	if got := inv.Quantity("Milk"); got != 50 {
		t.Fatalf("Milk = %d, want 50", got)
	}
	if got := lim.InUse(); got != 0 {
		t.Fatalf("outlets in use = %d, want 0", got)
	}
	if got := w.Clock.(*instantClock).sleeps; got != 3 {
		t.Fatalf("prep sleep steps = %d, want 3", got)
	}
	if len(j.results) != 1 || j.results[0].ID != res.ID {
		t.Fatalf("journal = %v, want the brewed result", j.results)
	}
}

func TestBrewSkipsOnShortageWithoutTakingOutlet(t *testing.T) {
	t.Parallel()

	w, inv, lim, _ := newWorker(t, map[string]int{"Water": 5, "Milk": 80}, 1)
	// Hold the only outlet; a skipped brew must not wait for it.
	if err := lim.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer lim.Release()

	tea := brewz.NewBeverage("Tea", brewz.Recipe{"Water": 20, "Milk": 10})
	res := w.Brew(context.Background(), tea)

	if res.Outcome != brewz.OutcomeSkipped {
		t.Fatalf("Brew() outcome = %s, want skipped", res.Outcome)
	}
	if res.Shortage == nil {
		t.Fatal("Brew() shortage = nil")
	}
	want := brewz.Shortage{Ingredient: "Water", Required: 20, Available: 5}
	if *res.Shortage != want {
		t.Fatalf("shortage = %+v, want %+v", *res.Shortage, want)
	}
	if got := inv.Quantity("Milk"); got != 80 {
		t.Fatalf("Milk = %d, want 80 after skip", got)
	}
}

func TestBrewAbortReleasesOutlet(t *testing.T) {
	t.Parallel()

	w, inv, lim, j := newWorker(t, map[string]int{"Water": 50}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Clock = &instantClock{onSleep: func(n int) {
		if n == 2 {
			cancel()
		}
	}}

	res := w.Brew(ctx, brewz.NewBeverage("Tea", brewz.Recipe{"Water": 20}))
	if res.Outcome != brewz.OutcomeAborted {
		t.Fatalf("Brew() outcome = %s, want aborted", res.Outcome)
	}
	if !errors.Is(res.Err, brewz.ErrMachineStopped) {
		t.Fatalf("Brew() err = %v, want ErrMachineStopped", res.Err)
	}
	if got := lim.InUse(); got != 0 {
		t.Fatalf("outlets in use = %d, want 0", got)
	}
	// Reserved ingredients are consumed even when the brew is aborted.
	if got := inv.Quantity("Water"); got != 30 {
		t.Fatalf("Water = %d, want 30", got)
	}
	if len(j.results) != 1 || j.results[0].Outcome != brewz.OutcomeAborted {
		t.Fatalf("journal = %v, want one aborted result", j.results)
	}
}

func TestBrewAbortWhileWaitingForOutlet(t *testing.T) {
	t.Parallel()

	w, _, lim, _ := newWorker(t, map[string]int{"Water": 50}, 1)
	if err := lim.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer lim.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := w.Brew(ctx, brewz.NewBeverage("Tea", brewz.Recipe{"Water": 20}))
	if res.Outcome != brewz.OutcomeAborted {
		t.Fatalf("Brew() outcome = %s, want aborted", res.Outcome)
	}
	if got := lim.InUse(); got != 1 {
		t.Fatalf("outlets in use = %d, want 1", got)
	}
}

func TestBrewRecordsSpans(t *testing.T) {
	t.Parallel()

	w, _, _, _ := newWorker(t, map[string]int{"Water": 50}, 1)
	recorder := tracetest.NewSpanRecorder()
	w.Tracer = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")

	var hooked brewz.BrewResult
	w.OnResult = func(r brewz.BrewResult) { hooked = r }

	res := w.Brew(context.Background(), brewz.NewBeverage("Tea", brewz.Recipe{"Water": 20}))
	if hooked.ID != res.ID {
		t.Fatalf("OnResult id = %q, want %q", hooked.ID, res.ID)
	}

	names := map[string]bool{}
	for _, s := range recorder.Ended() {
		names[s.Name()] = true
	}
	for _, want := range []string{"brew Tea", "reserve", "acquire_outlet", "prepare"} {
		if !names[want] {
			t.Fatalf("spans = %v, missing %q", names, want)
		}
	}
}
