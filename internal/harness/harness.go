package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/hotclick/internal/engine"
	"github.com/roach88/hotclick/internal/input"
	"github.com/roach88/hotclick/internal/keys"
	"github.com/roach88/hotclick/internal/model"
	"github.com/roach88/hotclick/internal/testutil"
)

// DefaultSettleTimeout bounds each settle step.
const DefaultSettleTimeout = 10 * time.Second

// Harness runs one scenario against a fresh engine wired to recording
// doubles.
type Harness struct {
	engine *engine.Engine
	inj    *testutil.RecordingInjector
	sink   *testutil.RecordingSink
	store  *testutil.MemoryStore
	logger *slog.Logger

	settleTimeout time.Duration
}

// Option configures a run.
type Option func(*Harness)

// WithLogger routes engine logs to l. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithSettleTimeout bounds each settle step.
func WithSettleTimeout(d time.Duration) Option {
	return func(h *Harness) {
		if d > 0 {
			h.settleTimeout = d
		}
	}
}

// Run executes a scenario and returns the result.
//
// Each run gets its own engine, recording injector, recording sink and
// in-memory store. Run IDs come from a sequence generator so logs are
// reproducible. An error is returned only when the scenario cannot be
// executed; failed expectations are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	settings, err := scenario.Master.Settings()
	if err != nil {
		return nil, fmt.Errorf("master settings: %w", err)
	}

	macros := make([]model.Macro, 0, len(scenario.Macros))
	for i, spec := range scenario.Macros {
		m, err := spec.Macro()
		if err != nil {
			return nil, fmt.Errorf("macros[%d]: %w", i, err)
		}
		macros = append(macros, m)
	}

	h := &Harness{
		inj:           testutil.NewRecordingInjector(),
		sink:          testutil.NewRecordingSink(),
		store:         testutil.NewMemoryStore(macros...),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		settleTimeout: DefaultSettleTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.engine = engine.New(h.inj, h.sink, h.store,
		engine.WithSettings(settings),
		engine.WithRunIDs(engine.NewSequenceGenerator(scenario.Name)),
		engine.WithLogger(h.logger.With("scenario", scenario.Name)),
	)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.settleTimeout)
		defer cancel()
		_ = h.engine.Shutdown(ctx)
	}()

	result := NewResult()
	if err := h.engine.Load(context.Background()); err != nil {
		result.LoadError = err.Error()
	}

	for i, step := range scenario.Steps {
		if err := h.execute(step); err != nil {
			return nil, fmt.Errorf("steps[%d] (%s): %w", i, step.Kind(), err)
		}
	}

	snap := h.engine.Snapshot()
	result.Sent = snap.Sent
	result.Running = snap.Running
	result.ActiveMacros = snap.ActiveMacros
	result.Statuses = append(result.Statuses, h.sink.Labels()...)
	for _, c := range h.inj.Calls() {
		result.Actions = append(result.Actions, c.String())
	}

	for _, msg := range EvaluateExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}

	h.logger.Debug("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"sent", result.Sent,
		"event", "scenario_finished",
	)
	return result, nil
}

func (h *Harness) execute(step Step) error {
	switch step.Kind() {
	case StepPress:
		h.engine.HandleKey(input.Press(keys.MustParse(step.Press)))
	case StepRelease:
		h.engine.HandleKey(input.Release(keys.MustParse(step.Release)))
	case StepWait:
		time.Sleep(step.Wait.Std())
	case StepStop:
		h.engine.StopImmediately()
	case StepSettle:
		return h.settle()
	default:
		return fmt.Errorf("empty step")
	}
	return nil
}

// settle waits for the master loop to stop on its own, then for every
// macro run and the master goroutine to exit.
func (h *Harness) settle() error {
	ctx, cancel := context.WithTimeout(context.Background(), h.settleTimeout)
	defer cancel()

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for h.engine.Running() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("master loop still running after %s", h.settleTimeout)
		case <-ticker.C:
		}
	}

	if err := h.engine.Settle(ctx); err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	return nil
}
