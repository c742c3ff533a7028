package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/hotclick/internal/input"
	"github.com/roach88/hotclick/internal/model"
)

// masterRun is one Idle -> Running -> Idle cycle of the master loop.
type masterRun struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// masterLoop owns the continuous action stream.
//
// State is the current run pointer: nil means Idle. Transitions happen under
// mu so that the status emitted for a transition is ordered with the
// transition itself; Running reads the pointer without locking.
//
// A run that ends on its own (budget exhausted) clears current only if it is
// still the current run, so a late finisher never clears a newer run.
type masterLoop struct {
	inj      input.Injector
	budget   *Budget
	sink     StatusSink
	runIDs   RunIDGenerator
	settings func() model.MasterSettings
	log      *slog.Logger

	mu      sync.Mutex
	current atomic.Pointer[masterRun]
	last    atomic.Pointer[masterRun]
}

// Running reports whether a run is active.
func (m *masterLoop) Running() bool {
	return m.current.Load() != nil
}

// Start begins a run unless one is active. Returns true if it started one.
//
// The first action's budget unit is reserved here, before the goroutine
// exists, so a started run always sends at least one action and a run
// stopped before it is scheduled cannot consume budget reset in between.
// With the budget already exhausted nothing starts.
func (m *masterLoop) Start(parent context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Load() != nil {
		return false
	}
	if !m.budget.TryConsume() {
		m.log.Info("master not started: budget exhausted",
			"sent", m.budget.Sent(),
			"cap", m.budget.Cap(),
			"event", "budget_exhausted",
		)
		return false
	}

	ctx, cancel := context.WithCancel(parent)
	r := &masterRun{id: m.runIDs.Generate(), cancel: cancel, done: make(chan struct{})}
	m.current.Store(r)
	m.last.Store(r)
	m.sink.Emit(model.StatusClicking())

	s := m.settings()
	m.log.Info("master started",
		"run_id", r.id,
		"action", s.Action.String(),
		"rate", s.Rate,
		"event", "master_started",
	)

	go m.run(ctx, r)
	return true
}

// Stop ends the active run. Returns false if the loop was idle.
//
// The run goroutine observes cancellation at its next suspension point, no
// later than one interval.
func (m *masterLoop) Stop(reason string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.current.Load()
	if r == nil {
		return false
	}
	m.current.Store(nil)
	r.cancel()
	m.sink.Emit(model.StatusIdle())
	m.log.Info("master stopped", "run_id", r.id, "reason", reason, "event", "master_stopped")
	return true
}

// Toggle stops an active run or starts a new one.
func (m *masterLoop) Toggle(parent context.Context) {
	if !m.Stop("toggle") {
		m.Start(parent)
	}
}

// Wait blocks until the goroutine of the most recent run has exited or ctx
// is done.
func (m *masterLoop) Wait(ctx context.Context) error {
	r := m.last.Load()
	if r == nil {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finish transitions to Idle after the run ended on its own.
func (m *masterLoop) finish(r *masterRun, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finishLocked(r, reason)
}

func (m *masterLoop) finishLocked(r *masterRun, reason string) {
	if !m.current.CompareAndSwap(r, nil) {
		return
	}
	r.cancel()
	m.sink.Emit(model.StatusIdle())
	m.log.Info("master stopped", "run_id", r.id, "reason", reason, "event", "master_stopped")
}

// reserve takes the next budget unit for r. It returns false when r is no
// longer the current run, or when the budget is exhausted, in which case the
// run is finished.
//
// Holding mu orders the check against Stop: once Stop returns, r can no
// longer consume, so a budget reset that follows it stays at zero.
func (m *masterLoop) reserve(r *masterRun) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Load() != r {
		return false
	}
	if m.budget.TryConsume() {
		return true
	}
	m.log.Info("budget exhausted",
		"run_id", r.id,
		"sent", m.budget.Sent(),
		"cap", m.budget.Cap(),
		"event", "budget_exhausted",
	)
	m.finishLocked(r, "budget_exhausted")
	return false
}

func (m *masterLoop) run(ctx context.Context, r *masterRun) {
	defer close(r.done)

	for {
		// Settings are read fresh every iteration.
		s := m.settings()

		if err := input.Perform(m.inj, s.Action); err != nil {
			m.log.Warn("master action failed", "run_id", r.id, "error", err, "event", "inject_failed")
		}

		if !sleepCtx(ctx, s.Interval()) {
			return
		}
		if !m.reserve(r) {
			return
		}
	}
}

// sleepCtx sleeps for d or until ctx is done. Returns false if ctx ended
// first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
