package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/hotclick/internal/input"
	"github.com/roach88/hotclick/internal/model"
)

// macroRunner spawns and tracks macro runs. Each firing gets its own
// goroutine and its own copy of the definition; runs never wait on each
// other and touch no lock besides the budget CAS.
//
// The live-run count is kept under mu together with an idle channel that is
// closed whenever the count drops to zero, so callers can wait for all runs
// without the Add-after-Wait hazard of a reused WaitGroup.
type macroRunner struct {
	inj           input.Injector
	budget        *Budget
	sink          StatusSink
	runIDs        RunIDGenerator
	masterRunning func() bool
	log           *slog.Logger

	mu     sync.Mutex
	active int
	idle   chan struct{}
}

func newMacroRunner() *macroRunner {
	idle := make(chan struct{})
	close(idle)
	return &macroRunner{idle: idle}
}

// Spawn starts a run of m on a new goroutine and returns its run ID.
func (r *macroRunner) Spawn(ctx context.Context, m model.Macro) string {
	id := r.runIDs.Generate()

	r.mu.Lock()
	if r.active == 0 {
		r.idle = make(chan struct{})
	}
	r.active++
	r.mu.Unlock()

	go func() {
		defer r.done()
		r.run(ctx, m, id)
	}()
	return id
}

// Active returns the number of live runs.
func (r *macroRunner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Wait blocks until no run is live or ctx is done.
func (r *macroRunner) Wait(ctx context.Context) error {
	r.mu.Lock()
	idle := r.idle
	r.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *macroRunner) done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active--
	if r.active == 0 {
		close(r.idle)
	}
}

// run executes one firing: optional start delay, then up to Repeat actions
// at Interval. It stops early when the budget is exhausted. A cancelled ctx
// (engine shutdown) ends the run without a terminal status.
func (r *macroRunner) run(ctx context.Context, m model.Macro, id string) {
	log := r.log.With("run_id", id, "macro", m.Name)

	if m.StartDelay > 0 {
		r.sink.Emit(model.StatusDelaying(m.Name))
		log.Debug("macro delaying", "delay", m.StartDelay, "event", "macro_delaying")
		if !sleepCtx(ctx, m.StartDelay) {
			log.Info("macro cancelled", "event", "macro_cancelled")
			return
		}
	}

	r.sink.Emit(model.StatusMacro(m.Name))
	log.Info("macro started",
		"trigger", m.Trigger.String(),
		"action", m.Action.String(),
		"repeat", m.Repeat,
		"event", "macro_started",
	)

	sent := 0
	for i := 0; i < m.Repeat; i++ {
		if !r.budget.TryConsume() {
			log.Info("budget exhausted",
				"sent", r.budget.Sent(),
				"cap", r.budget.Cap(),
				"event", "budget_exhausted",
			)
			break
		}

		if err := input.Perform(r.inj, m.Action); err != nil {
			log.Warn("macro action failed", "iteration", i+1, "error", err, "event", "inject_failed")
		}
		sent++

		if !sleepCtx(ctx, m.Interval) {
			log.Info("macro cancelled", "sent", sent, "event", "macro_cancelled")
			return
		}
	}

	// The terminal status reflects the master state now, not at firing.
	if r.masterRunning() {
		r.sink.Emit(model.StatusClicking())
	} else {
		r.sink.Emit(model.StatusIdle())
	}
	log.Info("macro finished", "sent", sent, "event", "macro_finished")
}
