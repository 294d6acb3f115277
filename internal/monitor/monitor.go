// Package monitor runs the low-stock check alongside a running machine.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"brewz"
	"brewz/internal/check"
	"brewz/internal/clock"
)

const (
	DefaultThreshold = 10
	DefaultInterval  = 20 * time.Second
	DefaultPoll      = 1 * time.Second
)

// StockSource is the part of the inventory the monitor reads.
type StockSource interface {
	LowStock(threshold int) []brewz.StockLevel
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithThreshold sets the quantity below which an ingredient is reported.
func WithThreshold(n int) Option {
	return func(m *Monitor) { m.threshold = n }
}

// WithInterval sets the pause between two checks. Non-positive durations
// are ignored.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithPoll sets how often the pause checks for shutdown. Non-positive
// durations are ignored.
func WithPoll(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.poll = d
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

// WithReport is called once per low ingredient per check.
func WithReport(fn func(brewz.StockLevel)) Option {
	return func(m *Monitor) { m.report = fn }
}

// Monitor periodically reports ingredients running low.
type Monitor struct {
	stock     StockSource
	threshold int
	interval  time.Duration
	poll      time.Duration
	clock     clock.Clock
	report    func(brewz.StockLevel)
	log       *slog.Logger
}

func New(stock StockSource, opts ...Option) *Monitor {
	check.Assert(stock != nil, "monitor.New: stock must not be nil")
	m := &Monitor{
		stock:     stock,
		threshold: DefaultThreshold,
		interval:  DefaultInterval,
		poll:      DefaultPoll,
		clock:     clock.Real{},
		log:       slog.With("component", "low-stock-monitor"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run checks stock, then sleeps for the interval, until ctx is done.
// Intended to be called as a goroutine.
func (m *Monitor) Run(ctx context.Context) {
	m.log.Debug("Monitor started.", "threshold", m.threshold, "interval", m.interval)
	defer m.log.Debug("Monitor stopped.")

	for ctx.Err() == nil {
		m.Check()
		if !clock.SleepPolled(ctx, m.clock, m.interval, m.poll) {
			return
		}
	}
}

// Check runs a single scan and returns what it reported.
func (m *Monitor) Check() []brewz.StockLevel {
	low := m.stock.LowStock(m.threshold)
	for _, lvl := range low {
		m.log.Warn("Running low on ingredient.", "ingredient", lvl.Name, "quantity", lvl.Quantity, "threshold", m.threshold)
		if m.report != nil {
			m.report(lvl)
		}
	}
	return low
}
