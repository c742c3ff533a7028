package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/hotclick/internal/input"
	"github.com/roach88/hotclick/internal/keys"
	"github.com/roach88/hotclick/internal/model"
)

// MacroStore persists the ordered macro list. Implemented by store.Store.
type MacroStore interface {
	Load(ctx context.Context) ([]model.Macro, error)
	Save(ctx context.Context, macros []model.Macro) error
}

// Engine dispatches key events to the master loop and macro runs.
//
// Thread-safety model:
//   - HandleKey: called from the listener goroutine; never sleeps
//   - AddMacro/EditMacro/RemoveMacro/UpdateSettings/Load: the editing path,
//     serialized by editMu; may be called from any goroutine
//   - Sent/Running/ActiveMacros/Settings/Macros: lock-free reads
//
// INVARIANTS:
//   - at most one master run is active
//   - macro triggers are unique among macros
//   - Budget.Sent() <= cap whenever cap > 0
type Engine struct {
	inj    input.Injector
	sink   StatusSink
	store  MacroStore
	runIDs RunIDGenerator
	log    *slog.Logger

	budget   *Budget
	settings atomic.Pointer[model.MasterSettings]
	table    atomic.Pointer[TriggerTable]

	master *masterLoop
	macros *macroRunner

	// editMu serializes the editing path. HandleKey never takes it.
	editMu sync.Mutex

	// lifeMu guards closed against concurrent spawns during Shutdown.
	lifeMu sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithRunIDs sets the run ID generator. Default: UUIDv7Generator.
func WithRunIDs(gen RunIDGenerator) EngineOption {
	return func(e *Engine) {
		e.runIDs = gen
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithSettings sets the initial master settings. The budget cap follows
// s.StopAfter. Default: model.DefaultMasterSettings().
func WithSettings(s model.MasterSettings) EngineOption {
	return func(e *Engine) {
		e.settings.Store(&s)
	}
}

// New creates an engine. sink may be nil (statuses are dropped) and store
// may be nil (nothing is persisted). The engine starts with no macros; call
// Load to read them from the store.
func New(inj input.Injector, sink StatusSink, store MacroStore, opts ...EngineOption) *Engine {
	if sink == nil {
		sink = NopSink{}
	}

	e := &Engine{
		inj:    inj,
		sink:   sink,
		store:  store,
		runIDs: UUIDv7Generator{},
		log:    slog.Default(),
	}
	defaults := model.DefaultMasterSettings()
	e.settings.Store(&defaults)

	for _, opt := range opts {
		opt(e)
	}

	s := e.settings.Load()
	e.budget = NewBudget(s.StopAfter)
	e.table.Store(&TriggerTable{master: s.Trigger})
	e.ctx, e.cancel = context.WithCancel(context.Background())

	e.master = &masterLoop{
		inj:      inj,
		budget:   e.budget,
		sink:     sink,
		runIDs:   e.runIDs,
		settings: e.Settings,
		log:      e.log,
	}
	e.macros = newMacroRunner()
	e.macros.inj = inj
	e.macros.budget = e.budget
	e.macros.sink = sink
	e.macros.runIDs = e.runIDs
	e.macros.masterRunning = e.master.Running
	e.macros.log = e.log

	return e
}

// HandleKey classifies one key event and starts, stops or spawns whatever
// it resolves to. It returns immediately.
//
// Macro triggers fire on press only. The master trigger follows the
// current mode: press mode starts on press and stops on release; toggle
// mode flips on press and ignores release.
func (e *Engine) HandleKey(ev input.KeyEvent) {
	e.lifeMu.RLock()
	defer e.lifeMu.RUnlock()
	if e.closed {
		return
	}

	res, ok := e.table.Load().Resolve(ev.Key)
	if !ok {
		return
	}

	switch res.Kind {
	case ResolveMacro:
		if ev.Type != input.KeyDown {
			return
		}
		id := e.macros.Spawn(e.ctx, res.Macro)
		e.log.Debug("macro fired", "run_id", id, "macro", res.Macro.Name, "index", res.Index)

	case ResolveMaster:
		switch e.settings.Load().Mode {
		case model.ModeToggle:
			if ev.Type == input.KeyDown {
				e.master.Toggle(e.ctx)
			}
		default:
			if ev.Type == input.KeyDown {
				e.master.Start(e.ctx)
			} else {
				e.master.Stop("release")
			}
		}
	}
}

// Load replaces the macro set with the store's contents.
//
// A load error, an invalid record or a duplicate trigger leaves the engine
// with no macros and returns a PERSISTENCE_LOAD_FAILURE error. The caller
// should surface it as a warning; the engine is fully usable either way.
func (e *Engine) Load(ctx context.Context) error {
	if e.store == nil {
		return nil
	}

	e.editMu.Lock()
	defer e.editMu.Unlock()

	master := e.settings.Load().Trigger
	tbl, err := e.loadTable(ctx, master)
	if err != nil {
		e.table.Store(&TriggerTable{master: master})
		e.log.Warn("macro load failed", "error", err, "event", "load_failed")
		return NewLoadError(err)
	}

	e.table.Store(tbl)
	e.log.Info("macros loaded", "count", tbl.Len(), "event", "macros_loaded")
	return nil
}

func (e *Engine) loadTable(ctx context.Context, master keys.Key) (*TriggerTable, error) {
	macros, err := e.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range macros {
		if err := macros[i].Validate(); err != nil {
			return nil, fmt.Errorf("macro %d: %w", i, err)
		}
	}
	return NewTriggerTable(macros, master)
}

// AddMacro validates m, registers it and saves. It returns the new macro's
// index.
//
// A validation error or DUPLICATE_TRIGGER leaves the macro set unchanged.
// A PERSISTENCE_SAVE_FAILURE is returned together with a valid index: the
// macro is registered in memory.
func (e *Engine) AddMacro(ctx context.Context, m model.Macro) (int, error) {
	if err := m.Validate(); err != nil {
		return -1, err
	}

	e.editMu.Lock()
	defer e.editMu.Unlock()

	next, err := e.table.Load().Register(m)
	if err != nil {
		return -1, err
	}
	e.table.Store(next)
	idx := next.Len() - 1
	e.log.Info("macro added", "index", idx, "macro", m.DisplayName(), "event", "macro_added")

	return idx, e.persist(ctx, next)
}

// EditMacro replaces the macro at index i. Runs already in flight keep the
// definition they started with.
func (e *Engine) EditMacro(ctx context.Context, i int, m model.Macro) error {
	if err := m.Validate(); err != nil {
		return err
	}

	e.editMu.Lock()
	defer e.editMu.Unlock()

	next, err := e.table.Load().Replace(i, m)
	if err != nil {
		return err
	}
	e.table.Store(next)
	e.log.Info("macro edited", "index", i, "macro", m.DisplayName(), "event", "macro_edited")

	return e.persist(ctx, next)
}

// RemoveMacro deletes the macro at index i.
func (e *Engine) RemoveMacro(ctx context.Context, i int) error {
	e.editMu.Lock()
	defer e.editMu.Unlock()

	cur := e.table.Load()
	next, err := cur.Remove(i)
	if err != nil {
		return err
	}
	e.table.Store(next)
	e.log.Info("macro removed", "index", i, "macro", cur.macros[i].DisplayName(), "event", "macro_removed")

	return e.persist(ctx, next)
}

// Macros returns a copy of the macro list in order.
func (e *Engine) Macros() []model.Macro {
	return e.table.Load().Macros()
}

// UpdateSettings replaces the master settings from raw input. Invalid
// fields fall back as described by model.ApplySettings and are returned as
// warnings; the update itself always applies. The budget cap follows the
// new StopAfter.
//
// A master run in progress picks the new rate and action up on its next
// iteration.
func (e *Engine) UpdateSettings(in model.SettingsInput) (model.MasterSettings, []error) {
	e.editMu.Lock()
	defer e.editMu.Unlock()

	next, warnings := model.ApplySettings(*e.settings.Load(), in)
	e.settings.Store(&next)
	e.table.Store(e.table.Load().WithMaster(next.Trigger))
	e.budget.SetCap(next.StopAfter)

	for _, w := range warnings {
		e.log.Warn("settings field rejected", "error", w, "event", "settings_warning")
	}
	e.log.Info("settings updated",
		"rate", next.Rate,
		"trigger", next.Trigger.String(),
		"mode", string(next.Mode),
		"action", next.Action.String(),
		"stop_after", next.StopAfter,
		"event", "settings_updated",
	)
	return next, warnings
}

// Settings returns the current master settings.
func (e *Engine) Settings() model.MasterSettings {
	return *e.settings.Load()
}

// StopImmediately stops the master loop and resets the budget. Macro runs
// in flight are not interrupted.
func (e *Engine) StopImmediately() {
	if !e.master.Stop("stop_immediately") {
		e.sink.Emit(model.StatusIdle())
	}
	e.budget.Reset()
	e.log.Info("stopped immediately", "active_macros", e.macros.Active(), "event", "stop_immediately")
}

// Sent returns the number of actions sent since the last reset.
func (e *Engine) Sent() int64 {
	return e.budget.Sent()
}

// Running reports whether the master loop is active.
func (e *Engine) Running() bool {
	return e.master.Running()
}

// ActiveMacros returns the number of macro runs in flight.
func (e *Engine) ActiveMacros() int {
	return e.macros.Active()
}

// Snapshot is a point-in-time view of the engine counters.
type Snapshot struct {
	Sent         int64 `json:"sent"`
	Cap          int64 `json:"cap"`
	Running      bool  `json:"running"`
	ActiveMacros int   `json:"active_macros"`
}

// Snapshot returns the current counters. Fields are read independently.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Sent:         e.budget.Sent(),
		Cap:          e.budget.Cap(),
		Running:      e.master.Running(),
		ActiveMacros: e.macros.Active(),
	}
}

// Settle waits until no macro run is live and the last master run's
// goroutine has exited. It does not stop anything.
func (e *Engine) Settle(ctx context.Context) error {
	if err := e.macros.Wait(ctx); err != nil {
		return err
	}
	if e.master.Running() {
		return nil
	}
	return e.master.Wait(ctx)
}

// Shutdown stops the master loop, cancels macro runs, waits for their
// goroutines (bounded by ctx) and saves the macro set. Key events received
// afterwards are ignored. Safe to call more than once.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.lifeMu.Lock()
	if e.closed {
		e.lifeMu.Unlock()
		return nil
	}
	e.closed = true
	e.lifeMu.Unlock()

	e.master.Stop("shutdown")
	e.cancel()

	var errs []error
	if err := e.macros.Wait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("wait for macro runs: %w", err))
	}
	if err := e.master.Wait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("wait for master loop: %w", err))
	}

	e.editMu.Lock()
	if err := e.persist(ctx, e.table.Load()); err != nil {
		errs = append(errs, err)
	}
	e.editMu.Unlock()

	e.log.Info("engine stopped", "sent", e.budget.Sent(), "event", "engine_stopped")
	return errors.Join(errs...)
}

// persist saves the table's macros. Called with editMu held.
func (e *Engine) persist(ctx context.Context, t *TriggerTable) error {
	if e.store == nil {
		return nil
	}
	if err := e.store.Save(ctx, t.Macros()); err != nil {
		e.log.Error("macro save failed", "count", t.Len(), "error", err, "event", "save_failed")
		return NewSaveError(err)
	}
	return nil
}
