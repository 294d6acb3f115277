package machine

import (
	"context"
	"fmt"

	"brewz/internal/monitor"
)

// Start begins dispatching queued beverages and monitoring stock. It returns
// immediately. Starting a running machine does nothing. Cancelling ctx stops
// the machine as Stop does.
func (m *Machine) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncPhaseLocked()
	if m.phase == PhaseRunning {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.runCtx = runCtx
	m.cancel = cancel
	m.phase = PhaseRunning
	m.run++
	run := m.run
	m.log.Info("Machine started.", "outlets", m.outlets.Capacity(), "pending", m.pending.Len())

	mon := monitor.New(m.inventory,
		monitor.WithThreshold(m.threshold),
		monitor.WithInterval(m.checkInterval),
		monitor.WithPoll(m.checkPoll),
		monitor.WithClock(m.clock),
		monitor.WithReport(m.onLowStock),
	)
	m.tasks.Go(func() { mon.Run(runCtx) })
	m.tasks.Go(func() { m.dispatch(runCtx) })
	m.tasks.Go(func() {
		<-runCtx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		m.stopLocked(run)
	})
}

// Stop signals the controller, the monitor and every brew to finish. It does
// not wait for them; use Wait for that. Stopping a stopped machine does nothing.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked(m.run)
}

// stopLocked ends run if it is still the current one. m.mu must be held.
func (m *Machine) stopLocked(run uint64) {
	if m.phase == PhaseStopped || run != m.run {
		return
	}
	m.phase = PhaseStopped
	m.cancel()
	m.cancel = nil
	m.runCtx = nil
	m.log.Info("Machine stopped.", "pending", m.pending.Len(), "in_flight", m.inFlight.Load())
}

// syncPhaseLocked moves a run whose parent context ended to stopped without
// waiting for its watcher. m.mu must be held.
func (m *Machine) syncPhaseLocked() {
	if m.phase == PhaseRunning && m.runCtx.Err() != nil {
		m.stopLocked(m.run)
	}
}

// Wait blocks until every goroutine the machine started has returned, or ctx
// is done.
func (m *Machine) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.tasks.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for brews to finish: %w", ctx.Err())
	}
}

// dispatch pops beverages in arrival order and brews each in its own
// goroutine until ctx is done.
func (m *Machine) dispatch(ctx context.Context) {
	m.log.Debug("Dispatcher started.")
	defer m.log.Debug("Dispatcher stopped.")

	for {
		if ctx.Err() != nil {
			return
		}
		b, ok := m.pending.Pop()
		if !ok {
			if !m.waitForWork(ctx) {
				return
			}
			continue
		}

		m.log.Debug("Dispatching beverage.", "beverage", b.Name())
		if m.onDispatch != nil {
			m.onDispatch(b)
		}
		m.inFlight.Add(1)
		m.tasks.Go(func() {
			defer m.inFlight.Add(-1)
			m.worker.Brew(ctx, b)
		})
	}
}

// waitForWork blocks until the queue signals a push or ctx is done. It
// reports false once ctx is done. A signal taken after ctx ended is handed
// back so the next run's dispatcher still sees it.
func (m *Machine) waitForWork(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-m.pending.Ready():
		if ctx.Err() != nil {
			m.pending.Wake()
			return false
		}
		return true
	}
}
