package runcmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"brewz"
	"brewz/cmd/brewz/ui"
	"brewz/config"
	"brewz/internal/journal"
)

const scenario = `{"machine": {
  "outlets": {"count_n": 2},
  "settings": {"prep_time": "5ms", "poll_interval": "1ms", "low_quantity_check_interval": "1h"},
  "1_total_items_quantity": {"Water": 100, "Milk": 100, "Syrup": 100},
  "2_beverages": {
    "Coffee": {"Water": 20, "Syrup": 40, "Milk": 20},
    "Tea": {"Water": 10},
    "Lemonade": {"Lemon": 5}
  }
}}`

// watchWriter buffers output and closes done once want occurrences of
// marker have been written.
type watchWriter struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	marker string
	want   int
	done   chan struct{}
	closed bool
}

func (w *watchWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, _ := w.buf.Write(p)
	if !w.closed && strings.Count(w.buf.String(), w.marker) >= w.want {
		w.closed = true
		close(w.done)
	}
	return n, nil
}

func (w *watchWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestRunBrewsUntilStop(t *testing.T) {
	ui.ConfigureInteraction(true)

	f, err := config.Parse([]byte(scenario))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	journalPath := filepath.Join(t.TempDir(), "journal.db")
	opts := options{journalPath: journalPath, drainTimeout: 5 * time.Second}

	// Two brewed and one skipped beverage each print a framed line of tildes.
	out := &watchWriter{marker: "brewed successfully", want: 2, done: make(chan struct{})}
	stdinR, stdinW := io.Pipe()
	errc := make(chan error, 1)
	go func() { errc <- run(context.Background(), opts, f, stdinR, out) }()

	select {
	case <-out.done:
	case <-time.After(10 * time.Second):
		t.Fatalf("beverages never brewed; output:\n%s", out.String())
	}
	if _, err := io.WriteString(stdinW, "espresso\nstop\n"); err != nil {
		t.Fatalf("write stdin: %v", err)
	}

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run() did not return after stop")
	}

	got := out.String()
	for _, want := range []string{"1_total_items_quantity", "2_beverages", "Skipping brewing [Lemonade]", "Lemon: required 5, found 0"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}

	store, err := journal.Open(journalPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()
	counts, err := store.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if counts[brewz.OutcomeBrewed] != 2 || counts[brewz.OutcomeSkipped] != 1 {
		t.Fatalf("summary = %v, want 2 brewed and 1 skipped", counts)
	}
}

func TestWaitForStop(t *testing.T) {
	t.Parallel()

	if err := waitForStop(context.Background(), strings.NewReader("tea\n  stop  \n")); err != nil {
		t.Fatalf("waitForStop() error = %v", err)
	}
}

func TestWaitForStopEndOfInputWaitsForContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := waitForStop(ctx, strings.NewReader("tea\nstopping\n"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("waitForStop() error = %v, want deadline exceeded", err)
	}
}

func TestMachineOptionsFromSettings(t *testing.T) {
	t.Parallel()

	if got := len(machineOptions(config.Settings{})); got != 0 {
		t.Fatalf("options for empty settings = %d, want 0", got)
	}

	limit := 5
	s := config.Settings{
		IngredientLimit:          &limit,
		LowQuantityCheckInterval: config.Duration(time.Minute),
		PrepTime:                 config.Duration(time.Second),
		PollInterval:             config.Duration(100 * time.Millisecond),
	}
	if got := len(machineOptions(s)); got != 5 {
		t.Fatalf("options = %d, want 5", got)
	}
}

func TestPrinterReportsAbortReason(t *testing.T) {
	ui.ConfigureInteraction(true)

	var buf bytes.Buffer
	p := &printer{w: &buf}
	p.result(brewz.BrewResult{Beverage: "Tea", Outcome: brewz.OutcomeAborted, Err: brewz.ErrMachineStopped})

	got := buf.String()
	for _, want := range []string{"ERROR: Brewing [Tea] failed", "machine stopped while brewing"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}
