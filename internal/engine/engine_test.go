package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hotclick/internal/input"
	"github.com/roach88/hotclick/internal/keys"
	"github.com/roach88/hotclick/internal/model"
	"github.com/roach88/hotclick/internal/testutil"
)

type testEngine struct {
	*Engine
	inj   *testutil.RecordingInjector
	sink  *testutil.RecordingSink
	store *testutil.MemoryStore
}

func masterSettings(rate float64, mode model.Mode, stopAfter int64) model.MasterSettings {
	return model.MasterSettings{
		Rate:      rate,
		Trigger:   keys.MustParse("f3"),
		Mode:      mode,
		Action:    model.Click(model.ActionLeft),
		StopAfter: stopAfter,
	}
}

func newTestEngine(t *testing.T, s model.MasterSettings, macros ...model.Macro) *testEngine {
	t.Helper()

	te := &testEngine{
		inj:   testutil.NewRecordingInjector(),
		sink:  testutil.NewRecordingSink(),
		store: testutil.NewMemoryStore(macros...),
	}
	te.Engine = New(te.inj, te.sink, te.store,
		WithSettings(s),
		WithRunIDs(NewSequenceGenerator("run")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, te.Load(context.Background()))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = te.Shutdown(ctx)
	})
	return te
}

func settle(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, e.Settle(ctx))
}

func press(e *Engine, k string)   { e.HandleKey(input.Press(keys.MustParse(k))) }
func release(e *Engine, k string) { e.HandleKey(input.Release(keys.MustParse(k))) }

func TestEngine_PressModeRunsWhileHeld(t *testing.T) {
	te := newTestEngine(t, masterSettings(100, model.ModePress, 0))

	press(te.Engine, "f3")
	assert.True(t, te.Running())

	time.Sleep(60 * time.Millisecond)
	release(te.Engine, "f3")
	assert.False(t, te.Running())
	settle(t, te.Engine)

	sent := te.inj.Actions()
	assert.Greater(t, sent, 1)
	assert.Equal(t, int64(sent), te.Sent())

	// Nothing runs after release.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, sent, te.inj.Actions())
	assert.Equal(t, []string{"clicking", "idle"}, te.sink.Labels())
}

func TestEngine_PressReleaseWithinOneInterval(t *testing.T) {
	te := newTestEngine(t, masterSettings(10, model.ModePress, 0))

	start := time.Now()
	press(te.Engine, "f3")
	release(te.Engine, "f3")
	settle(t, te.Engine)
	elapsed := time.Since(start)

	interval := te.Settings().Interval()
	maxActions := int(elapsed/interval) + 1

	assert.GreaterOrEqual(t, te.inj.Actions(), 1)
	assert.LessOrEqual(t, te.inj.Actions(), maxActions)
	assert.False(t, te.Running())
}

func TestEngine_PressModeStartIsIdempotent(t *testing.T) {
	te := newTestEngine(t, masterSettings(100, model.ModePress, 0))

	press(te.Engine, "f3")
	press(te.Engine, "f3")
	press(te.Engine, "f3")
	release(te.Engine, "f3")
	settle(t, te.Engine)

	assert.Equal(t, []string{"clicking", "idle"}, te.sink.Labels())
}

func TestEngine_ToggleMode(t *testing.T) {
	te := newTestEngine(t, masterSettings(100, model.ModeToggle, 0))

	press(te.Engine, "f3")
	assert.True(t, te.Running())

	// Release is ignored in toggle mode.
	release(te.Engine, "f3")
	assert.True(t, te.Running())

	press(te.Engine, "f3")
	assert.False(t, te.Running())

	press(te.Engine, "f3")
	assert.True(t, te.Running())

	press(te.Engine, "f3")
	assert.False(t, te.Running())
	settle(t, te.Engine)

	assert.Equal(t, []string{"clicking", "idle", "clicking", "idle"}, te.sink.Labels())
}

func TestEngine_ToggleStaysRunningUntilBudgetExhausted(t *testing.T) {
	te := newTestEngine(t, masterSettings(1000, model.ModeToggle, 5))

	press(te.Engine, "f3")
	require.True(t, te.sink.WaitForLabel("idle", 5*time.Second))
	settle(t, te.Engine)

	assert.False(t, te.Running())
	assert.Equal(t, int64(5), te.Sent())
	assert.Equal(t, 5, te.inj.Actions())
}

func TestEngine_CapSharedByMasterAndMacro(t *testing.T) {
	burst := model.Macro{
		Name:     "burst",
		Trigger:  keys.MustParse("f4"),
		Action:   model.Click(model.ActionRight),
		Repeat:   10,
		Interval: time.Millisecond,
	}
	te := newTestEngine(t, masterSettings(100, model.ModeToggle, 5), burst)

	press(te.Engine, "f3")
	press(te.Engine, "f4")

	require.True(t, te.sink.WaitForLabel("idle", 5*time.Second))
	settle(t, te.Engine)

	assert.Equal(t, int64(5), te.Sent())
	assert.Equal(t, 5, te.inj.Actions())

	// Further firings send nothing until a reset.
	press(te.Engine, "f4")
	settle(t, te.Engine)
	assert.Equal(t, 5, te.inj.Actions())
}

func TestEngine_DelayedMacroTimingAndStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("takes three seconds")
	}

	delayed := model.Macro{
		Name:       "slow",
		Trigger:    keys.MustParse("f5"),
		Action:     model.Click(model.ActionLeft),
		Repeat:     3,
		Interval:   500 * time.Millisecond,
		StartDelay: 2 * time.Second,
	}
	te := newTestEngine(t, masterSettings(1, model.ModePress, 0), delayed)

	start := time.Now()
	press(te.Engine, "f5")
	settle(t, te.Engine)

	assert.GreaterOrEqual(t, time.Since(start), 3*time.Second)
	assert.Equal(t, 3, te.inj.Actions())
	assert.Equal(t, []model.Status{
		model.StatusDelaying("slow"),
		model.StatusMacro("slow"),
		model.StatusIdle(),
	}, te.sink.Statuses())
}

func TestEngine_MacroTerminalStatusFollowsMaster(t *testing.T) {
	quick := model.Macro{
		Name:     "quick",
		Trigger:  keys.MustParse("q"),
		Action:   model.Keystroke("x"),
		Repeat:   2,
		Interval: time.Millisecond,
	}
	te := newTestEngine(t, masterSettings(50, model.ModeToggle, 0), quick)

	press(te.Engine, "f3")
	press(te.Engine, "q")
	settle(t, te.Engine)

	last, ok := te.sink.Last()
	require.True(t, ok)
	assert.Equal(t, model.StatusClicking(), last)
	assert.True(t, te.Running())

	press(te.Engine, "f3")
	press(te.Engine, "q")
	settle(t, te.Engine)

	last, _ = te.sink.Last()
	assert.Equal(t, model.StatusIdle(), last)
}

func TestEngine_MacroFiresOnPressOnly(t *testing.T) {
	m := model.Macro{Name: "once", Trigger: keys.MustParse("a"), Action: model.Click(model.ActionMiddle), Repeat: 1}
	te := newTestEngine(t, masterSettings(1, model.ModePress, 0), m)

	release(te.Engine, "a")
	settle(t, te.Engine)
	assert.Equal(t, 0, te.inj.Actions())

	press(te.Engine, "a")
	release(te.Engine, "a")
	settle(t, te.Engine)
	assert.Equal(t, 1, te.inj.Actions())
}

func TestEngine_ConcurrentInstancesOfSameMacro(t *testing.T) {
	m := model.Macro{
		Name:       "twice",
		Trigger:    keys.MustParse("t"),
		Action:     model.Click(model.ActionLeft).WithPoint(5, 6),
		Repeat:     2,
		StartDelay: 50 * time.Millisecond,
	}
	te := newTestEngine(t, masterSettings(1, model.ModePress, 0), m)

	press(te.Engine, "t")
	press(te.Engine, "t")
	assert.Equal(t, 2, te.ActiveMacros())

	settle(t, te.Engine)
	assert.Equal(t, 0, te.ActiveMacros())
	assert.Equal(t, 4, te.inj.Actions())

	// Pinned actions move before clicking.
	calls := te.inj.Calls()
	require.Len(t, calls, 8)
	assert.Equal(t, "move:5,6", calls[0].String())
}

func TestEngine_StopImmediately(t *testing.T) {
	m := model.Macro{Name: "burst", Trigger: keys.MustParse("b"), Action: model.Click(model.ActionLeft), Repeat: 3}
	te := newTestEngine(t, masterSettings(100, model.ModeToggle, 3), m)

	press(te.Engine, "b")
	settle(t, te.Engine)
	assert.Equal(t, int64(3), te.Sent())

	press(te.Engine, "f3")
	te.StopImmediately()
	assert.False(t, te.Running())
	assert.Equal(t, int64(0), te.Sent())
	settle(t, te.Engine)

	last, _ := te.sink.Last()
	assert.Equal(t, model.StatusIdle(), last)

	// The budget is usable again.
	te.inj.Reset()
	press(te.Engine, "b")
	settle(t, te.Engine)
	assert.Equal(t, 3, te.inj.Actions())
}

func TestEngine_StopImmediatelyWhenIdleEmitsIdle(t *testing.T) {
	te := newTestEngine(t, masterSettings(1, model.ModePress, 0))

	te.StopImmediately()
	assert.Equal(t, []string{"idle"}, te.sink.Labels())
}

func TestEngine_StopImmediatelyLeavesMacrosRunning(t *testing.T) {
	m := model.Macro{
		Name:     "long",
		Trigger:  keys.MustParse("l"),
		Action:   model.Click(model.ActionLeft),
		Repeat:   5,
		Interval: 20 * time.Millisecond,
	}
	te := newTestEngine(t, masterSettings(1, model.ModePress, 0), m)

	press(te.Engine, "l")
	time.Sleep(30 * time.Millisecond)
	te.StopImmediately()
	settle(t, te.Engine)

	assert.Equal(t, 5, te.inj.Actions())
}

func TestEngine_InjectionFailureKeepsLooping(t *testing.T) {
	te := newTestEngine(t, masterSettings(1000, model.ModeToggle, 3))
	te.inj.FailWith(errors.New("display gone"))

	press(te.Engine, "f3")
	require.True(t, te.sink.WaitForLabel("idle", 5*time.Second))
	settle(t, te.Engine)

	assert.Equal(t, int64(3), te.Sent(), "failed actions still consume budget")
	assert.Equal(t, 3, te.inj.Actions())
}

func TestEngine_LiveSettingsDuringRun(t *testing.T) {
	te := newTestEngine(t, masterSettings(200, model.ModeToggle, 0))

	press(te.Engine, "f3")
	time.Sleep(20 * time.Millisecond)

	_, warnings := te.UpdateSettings(model.SettingsInput{Rate: 200, Trigger: "f3", Mode: "toggle", Action: "key", Key: "x"})
	require.Empty(t, warnings)

	time.Sleep(40 * time.Millisecond)
	press(te.Engine, "f3")
	settle(t, te.Engine)

	var sawKey bool
	for _, c := range te.inj.Calls() {
		if c.Op == "key" && c.Key == "x" {
			sawKey = true
		}
	}
	assert.True(t, sawKey, "running loop should pick up the new action")
}

func TestEngine_UpdateSettings(t *testing.T) {
	te := newTestEngine(t, masterSettings(1, model.ModePress, 0))

	got, warnings := te.UpdateSettings(model.SettingsInput{
		Rate:      -1,
		Trigger:   "not a key",
		Mode:      "toggle",
		Action:    "right",
		StopAfter: 7,
	})
	require.Len(t, warnings, 2)
	assert.True(t, model.IsInvalidNumber(warnings[0]))
	assert.True(t, model.IsInvalidTrigger(warnings[1]))

	assert.Equal(t, model.MinRate, got.Rate)
	assert.Equal(t, keys.Key("f3"), got.Trigger, "bad trigger keeps the previous one")
	assert.Equal(t, model.ModeToggle, got.Mode)
	assert.Equal(t, model.ActionRight, got.Action.Kind)
	assert.Equal(t, got, te.Settings())
	assert.Equal(t, int64(7), te.Snapshot().Cap)

	// A new trigger replaces the old one.
	te.UpdateSettings(model.SettingsInput{Rate: 1, Trigger: "f9", Mode: "press"})
	press(te.Engine, "f3")
	assert.False(t, te.Running())
	press(te.Engine, "f9")
	assert.True(t, te.Running())
	release(te.Engine, "f9")
}

func TestEngine_AddEditRemoveMacro(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine(t, masterSettings(1, model.ModePress, 0))

	idx, err := te.AddMacro(ctx, model.Macro{Trigger: keys.MustParse("a"), Action: model.Click(model.ActionLeft), Repeat: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, model.DefaultMacroName, te.Macros()[0].Name)

	idx, err = te.AddMacro(ctx, model.Macro{Name: "b", Trigger: keys.MustParse("b"), Action: model.Click(model.ActionLeft), Repeat: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Len(t, te.store.Saved(), 2)

	_, err = te.AddMacro(ctx, model.Macro{Name: "dup", Trigger: keys.MustParse("a"), Action: model.Click(model.ActionLeft), Repeat: 1})
	assert.True(t, IsDuplicateTrigger(err))
	assert.Len(t, te.Macros(), 2)

	err = te.EditMacro(ctx, 1, model.Macro{Name: "b2", Trigger: keys.MustParse("a"), Action: model.Click(model.ActionLeft), Repeat: 1})
	assert.True(t, IsDuplicateTrigger(err))
	assert.Equal(t, "b", te.Macros()[1].Name, "rejected edit leaves both macros unchanged")
	assert.Equal(t, keys.Key("a"), te.Macros()[0].Trigger)

	require.NoError(t, te.EditMacro(ctx, 1, model.Macro{Name: "b2", Trigger: keys.MustParse("c"), Action: model.Click(model.ActionLeft), Repeat: 1}))
	assert.Equal(t, "b2", te.store.Saved()[1].Name)

	require.NoError(t, te.RemoveMacro(ctx, 0))
	require.Len(t, te.Macros(), 1)
	assert.Equal(t, "b2", te.Macros()[0].Name)

	assert.True(t, IsMacroNotFound(te.RemoveMacro(ctx, 5)))
	assert.True(t, IsMacroNotFound(te.EditMacro(ctx, -1, te.Macros()[0])))
}

func TestEngine_AddMacroValidation(t *testing.T) {
	te := newTestEngine(t, masterSettings(1, model.ModePress, 0))

	_, err := te.AddMacro(context.Background(), model.Macro{Name: "bad", Trigger: keys.MustParse("a"), Action: model.Click(model.ActionLeft), Repeat: 0})
	assert.True(t, model.IsInvalidNumber(err))
	assert.Empty(t, te.Macros())
	assert.Equal(t, 0, te.store.SaveCount())
}

func TestEngine_SaveFailureKeepsMemoryState(t *testing.T) {
	te := newTestEngine(t, masterSettings(1, model.ModePress, 0))
	te.store.FailSave(errors.New("read-only filesystem"))

	idx, err := te.AddMacro(context.Background(), model.Macro{Name: "kept", Trigger: keys.MustParse("k"), Action: model.Click(model.ActionLeft), Repeat: 1})
	require.Error(t, err)
	assert.True(t, IsSaveFailure(err))
	assert.Equal(t, 0, idx)
	require.Len(t, te.Macros(), 1)

	// The macro is live even though it was not saved.
	press(te.Engine, "k")
	settle(t, te.Engine)
	assert.Equal(t, 1, te.inj.Actions())
}

func TestEngine_LoadFailureYieldsEmptySet(t *testing.T) {
	store := testutil.NewMemoryStore(testMacro("one", "a"))
	store.FailLoad(errors.New("database is locked"))

	e := New(testutil.NewRecordingInjector(), nil, store, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	err := e.Load(context.Background())
	require.Error(t, err)
	assert.True(t, IsLoadFailure(err))
	assert.Empty(t, e.Macros())
}

func TestEngine_LoadRejectsDuplicateTriggers(t *testing.T) {
	store := testutil.NewMemoryStore(testMacro("one", "a"), testMacro("two", "a"))

	e := New(testutil.NewRecordingInjector(), nil, store, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	err := e.Load(context.Background())
	assert.True(t, IsLoadFailure(err))
	assert.Empty(t, e.Macros())
}

func TestEngine_LoadRejectsInvalidRecord(t *testing.T) {
	bad := testMacro("bad", "a")
	bad.Repeat = 0
	store := testutil.NewMemoryStore(testMacro("ok", "b"), bad)

	e := New(testutil.NewRecordingInjector(), nil, store, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	assert.True(t, IsLoadFailure(e.Load(context.Background())))
	assert.Empty(t, e.Macros())
}

func TestEngine_ShutdownCancelsAndSaves(t *testing.T) {
	m := model.Macro{
		Name:       "waiting",
		Trigger:    keys.MustParse("w"),
		Action:     model.Click(model.ActionLeft),
		Repeat:     1,
		StartDelay: time.Hour,
	}
	te := newTestEngine(t, masterSettings(100, model.ModeToggle, 0), m)

	press(te.Engine, "w")
	press(te.Engine, "f3")
	require.Equal(t, 1, te.ActiveMacros())

	saves := te.store.SaveCount()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, te.Shutdown(ctx))

	assert.False(t, te.Running())
	assert.Equal(t, 0, te.ActiveMacros())
	assert.Equal(t, saves+1, te.store.SaveCount())
	assert.Len(t, te.store.Saved(), 1)

	// Events after shutdown are ignored.
	press(te.Engine, "f3")
	assert.False(t, te.Running())

	// Second shutdown is a no-op.
	assert.NoError(t, te.Shutdown(ctx))
}

func TestEngine_ShutdownReportsSaveFailure(t *testing.T) {
	te := newTestEngine(t, masterSettings(1, model.ModePress, 0))
	te.store.FailSave(errors.New("gone"))

	err := te.Shutdown(context.Background())
	assert.True(t, IsSaveFailure(err))
}

func TestEngine_NilSinkAndStore(t *testing.T) {
	inj := testutil.NewRecordingInjector()
	e := New(inj, nil, nil, WithSettings(masterSettings(1000, model.ModeToggle, 2)))

	require.NoError(t, e.Load(context.Background()))
	_, err := e.AddMacro(context.Background(), testMacro("m", "m"))
	require.NoError(t, err)

	press(e, "f3")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for e.Running() && ctx.Err() == nil {
		time.Sleep(time.Millisecond)
	}
	require.NoError(t, e.Shutdown(ctx))
	assert.Equal(t, 2, inj.Actions())
}
