package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/hotclick/internal/model"
)

// InjectedCall records one call made on a RecordingInjector.
type InjectedCall struct {
	Op     string // "move", "click" or "key"
	Button model.ActionKind
	Key    string
	X, Y   int
}

// String renders the call compactly, e.g. "click:left", "move:10,20".
func (c InjectedCall) String() string {
	switch c.Op {
	case "move":
		return fmt.Sprintf("move:%d,%d", c.X, c.Y)
	case "click":
		return "click:" + string(c.Button)
	default:
		return "key:" + c.Key
	}
}

// RecordingInjector is an input.Injector that records calls instead of
// touching the OS.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type RecordingInjector struct {
	mu    sync.Mutex
	calls []InjectedCall
	err   error
}

// NewRecordingInjector creates an empty recorder.
func NewRecordingInjector() *RecordingInjector {
	return &RecordingInjector{}
}

// FailWith makes every subsequent call record itself and then return err.
// Pass nil to restore success.
func (r *RecordingInjector) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// MoveTo records a cursor move.
func (r *RecordingInjector) MoveTo(x, y int) error {
	return r.record(InjectedCall{Op: "move", X: x, Y: y})
}

// Click records a mouse click.
func (r *RecordingInjector) Click(button model.ActionKind) error {
	return r.record(InjectedCall{Op: "click", Button: button})
}

// KeyTap records a key tap.
func (r *RecordingInjector) KeyTap(key string) error {
	return r.record(InjectedCall{Op: "key", Key: key})
}

func (r *RecordingInjector) record(c InjectedCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	return r.err
}

// Calls returns a copy of every recorded call in order.
func (r *RecordingInjector) Calls() []InjectedCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]InjectedCall, len(r.calls))
	copy(out, r.calls)
	return out
}

// Actions counts clicks and key taps, the calls that consume budget.
func (r *RecordingInjector) Actions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Op != "move" {
			n++
		}
	}
	return n
}

// Reset forgets all recorded calls.
func (r *RecordingInjector) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
