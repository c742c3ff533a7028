// Package hook implements input.Listener with gohook, a libuiohook binding
// that reports global key presses and releases on Linux (X11), macOS and
// Windows.
package hook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gohook "github.com/robotn/gohook"

	"github.com/roach88/hotclick/internal/input"
	"github.com/roach88/hotclick/internal/keys"
)

// DefaultEnableTimeout bounds how long Start waits for the OS hook to come up.
const DefaultEnableTimeout = 3 * time.Second

// ErrHookUnavailable is returned when the global hook cannot be installed,
// typically because of missing accessibility or input-device permissions.
var ErrHookUnavailable = errors.New("global keyboard hook unavailable")

// Listener delivers global key events from gohook.
type Listener struct {
	enableTimeout time.Duration
	log           *slog.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// Option configures a Listener.
type Option func(*Listener)

// WithEnableTimeout overrides DefaultEnableTimeout.
func WithEnableTimeout(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.enableTimeout = d
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(l *Listener) {
		if log != nil {
			l.log = log
		}
	}
}

// New creates a listener. Nothing is installed until Start.
func New(opts ...Option) *Listener {
	l := &Listener{enableTimeout: DefaultEnableTimeout, log: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start installs the hook and waits for it to report enabled. Events are
// then delivered to h from a listener-owned goroutine until ctx is
// cancelled or Stop is called.
func (l *Listener) Start(ctx context.Context, h input.Handler) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return fmt.Errorf("listener already started")
	}
	l.running = true
	l.done = make(chan struct{})
	l.mu.Unlock()

	events := gohook.Start()

	if err := waitEnabled(ctx, events, l.enableTimeout); err != nil {
		gohook.End()
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
		return err
	}
	l.log.Info("keyboard hook enabled", "event", "hook_enabled")

	d := newDispatcher(h)
	go func() {
		defer close(l.done)
		for {
			select {
			case <-ctx.Done():
				_ = l.Stop()
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				switch ev.Kind {
				case gohook.KeyHold:
					d.handle(eventKey(ev), true)
				case gohook.KeyUp:
					d.handle(eventKey(ev), false)
				case gohook.HookDisabled:
					l.log.Warn("keyboard hook disabled by the OS", "event", "hook_disabled")
					return
				}
			}
		}
	}()

	return nil
}

// Stop removes the hook. Safe to call more than once.
func (l *Listener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return nil
	}
	l.running = false
	gohook.End()
	l.log.Info("keyboard hook removed", "event", "hook_removed")
	return nil
}

// Done is closed when the event goroutine exits.
func (l *Listener) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

func waitEnabled(ctx context.Context, events chan gohook.Event, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("%w: no enable event within %s", ErrHookUnavailable, timeout)
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("%w: event channel closed", ErrHookUnavailable)
			}
			if ev.Kind == gohook.HookEnabled {
				return nil
			}
		}
	}
}

// keycodeNames inverts gohook.Keycode (name -> libuiohook code).
var keycodeNames = func() map[uint16]string {
	m := make(map[uint16]string, len(gohook.Keycode))
	for name, code := range gohook.Keycode {
		if prev, ok := m[code]; !ok || len(name) > len(prev) {
			m[code] = name
		}
	}
	return m
}()

// eventKey names the key of a gohook event. The zero Key means the key has
// no name we can match against triggers.
func eventKey(ev gohook.Event) keys.Key {
	name := gohook.RawcodetoKeychar(ev.Rawcode)
	if k, ok := keyFromName(name); ok {
		return k
	}
	k, _ := keyFromName(keycodeNames[ev.Keycode])
	return k
}

func keyFromName(name string) (keys.Key, bool) {
	if name == "" {
		return "", false
	}
	k, err := keys.Parse(name)
	if err != nil {
		return "", false
	}
	return k, true
}

// dispatcher converts raw press/release transitions into KeyEvents and
// drops OS auto-repeat presses, so a held key yields one KeyDown.
type dispatcher struct {
	h    input.Handler
	held map[keys.Key]bool
}

func newDispatcher(h input.Handler) *dispatcher {
	return &dispatcher{h: h, held: make(map[keys.Key]bool)}
}

func (d *dispatcher) handle(k keys.Key, down bool) {
	if k.IsZero() {
		return
	}
	if down {
		if d.held[k] {
			return
		}
		d.held[k] = true
		d.h(input.Press(k))
		return
	}
	delete(d.held, k)
	d.h(input.Release(k))
}
