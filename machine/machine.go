package machine

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"brewz"
	"brewz/internal/brew"
	"brewz/internal/clock"
	"brewz/internal/inventory"
	"brewz/internal/monitor"
	"brewz/internal/outlet"
	"brewz/internal/queue"
	"brewz/internal/telemetry"
)

// Machine is a multi-outlet beverage machine. All methods are safe for
// concurrent use.
type Machine struct {
	inventory Ingredients
	outlets   *outlet.Limiter
	pending   *queue.Queue
	worker    *brew.Worker

	clock         clock.Clock
	brewPoll      time.Duration
	prepTime      time.Duration
	threshold     int
	checkInterval time.Duration
	checkPoll     time.Duration
	tracer        trace.Tracer
	journal       Journal
	onResult      func(brewz.BrewResult)
	onLowStock    func(brewz.StockLevel)
	onDispatch    func(brewz.Beverage)

	mu     sync.Mutex
	phase  Phase
	runCtx context.Context
	cancel context.CancelFunc
	run    uint64 // incremented by every Start

	// tasks tracks the controller, the monitor and every brew goroutine.
	tasks    sync.WaitGroup
	inFlight atomic.Int64

	log *slog.Logger
}

type Phase = brewz.Phase

const (
	PhaseStopped = brewz.PhaseStopped
	PhaseRunning = brewz.PhaseRunning
)

// Option configures a Machine. Use these to inject test dependencies.
type Option func(*Machine)

// WithClock replaces the system clock for brewing and stock checks.
func WithClock(c clock.Clock) Option {
	return func(m *Machine) { m.clock = c }
}

// WithBrewPoll sets how often a brewing beverage checks for shutdown.
// Non-positive durations are ignored.
func WithBrewPoll(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.brewPoll = d
		}
	}
}

// WithPrepTime sets the prep time of beverages added by AddBeverages.
func WithPrepTime(d time.Duration) Option {
	return func(m *Machine) { m.prepTime = d }
}

// WithLowStockThreshold sets the quantity below which an ingredient is reported.
func WithLowStockThreshold(n int) Option {
	return func(m *Machine) { m.threshold = n }
}

// WithCheckInterval sets the pause between stock checks. Non-positive
// durations are ignored.
func WithCheckInterval(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.checkInterval = d
		}
	}
}

// WithCheckPoll sets how often the stock check pause looks for shutdown.
// Non-positive durations are ignored.
func WithCheckPoll(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.checkPoll = d
		}
	}
}

// WithTracer traces every brew attempt. A nil tracer keeps the no-op default.
func WithTracer(t trace.Tracer) Option {
	return func(m *Machine) {
		if t != nil {
			m.tracer = t
		}
	}
}

// WithJournal records every brew attempt.
func WithJournal(j Journal) Option {
	return func(m *Machine) { m.journal = j }
}

// WithResultHook is called from the brew goroutine after every attempt.
func WithResultHook(fn func(brewz.BrewResult)) Option {
	return func(m *Machine) { m.onResult = fn }
}

// WithDispatchHook is called from the dispatcher, in dispatch order, as each
// beverage leaves the queue.
func WithDispatchHook(fn func(brewz.Beverage)) Option {
	return func(m *Machine) { m.onDispatch = fn }
}

// WithLowStockHook is called for each low ingredient on every stock check.
func WithLowStockHook(fn func(brewz.StockLevel)) Option {
	return func(m *Machine) { m.onLowStock = fn }
}

// New creates a stopped machine with the given number of outlets.
func New(outlets int, opts ...Option) (*Machine, error) {
	if outlets < 1 {
		return nil, fmt.Errorf("create machine with %d outlets: %w", outlets, brewz.ErrInvalidOutlets)
	}

	m := &Machine{
		inventory:     inventory.New(),
		outlets:       outlet.New(outlets),
		pending:       queue.New(),
		clock:         clock.Real{},
		brewPoll:      brew.DefaultPoll,
		prepTime:      brewz.DefaultPrepTime,
		threshold:     monitor.DefaultThreshold,
		checkInterval: monitor.DefaultInterval,
		checkPoll:     monitor.DefaultPoll,
		tracer:        telemetry.NoopTracer(),
		log:           slog.With("component", "machine"),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.worker = &brew.Worker{
		Inventory: m.inventory,
		Outlets:   m.outlets,
		Clock:     m.clock,
		Poll:      m.brewPoll,
		Tracer:    m.tracer,
		Journal:   m.journal,
		OnResult:  m.onResult,
	}
	return m, nil
}

// Phase returns the current lifecycle phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncPhaseLocked()
	return m.phase
}

// AddIngredient adds qty of name to the stock and returns the new quantity.
// Negative quantities add nothing.
func (m *Machine) AddIngredient(name string, qty int) int {
	return m.inventory.Add(name, qty)
}

// AddIngredients adds every entry of quantities.
func (m *Machine) AddIngredients(quantities map[string]int) {
	m.inventory.AddAll(quantities)
}

// AddBeverage queues b. A running machine picks it up right away; a stopped
// one holds it until Start.
func (m *Machine) AddBeverage(b brewz.Beverage) {
	m.pending.Push(b)
}

// AddBeverages queues one beverage per recipe, in name order, using the
// machine's prep time.
func (m *Machine) AddBeverages(recipes map[string]brewz.Recipe) {
	for _, name := range slices.Sorted(maps.Keys(recipes)) {
		m.AddBeverage(brewz.NewBeverage(name, recipes[name], brewz.WithPrepTime(m.prepTime)))
	}
}

// AddBeverageList queues beverages in slice order.
func (m *Machine) AddBeverageList(beverages []brewz.Beverage) {
	for _, b := range beverages {
		m.AddBeverage(b)
	}
}

// PrepTime is the prep time AddBeverages gives new beverages.
func (m *Machine) PrepTime() time.Duration {
	return m.prepTime
}

// Inventory returns the stock sorted by ingredient name.
func (m *Machine) Inventory() []brewz.StockLevel {
	return m.inventory.Snapshot()
}

// Status returns a point-in-time snapshot of the machine.
func (m *Machine) Status() brewz.Status {
	return brewz.Status{
		Phase:        m.Phase(),
		Outlets:      m.outlets.Capacity(),
		OutletsInUse: m.outlets.InUse(),
		Pending:      m.pending.Names(),
		InFlight:     int(m.inFlight.Load()),
		Inventory:    m.inventory.Snapshot(),
	}
}

// PeakOutlets returns the highest number of outlets ever brewing at once.
func (m *Machine) PeakOutlets() int {
	return m.outlets.Peak()
}
