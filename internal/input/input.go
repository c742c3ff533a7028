// Package input defines the two OS-facing collaborators of the engine: the
// Injector that sends synthetic mouse/keyboard input, and the Listener that
// reports global key presses and releases.
//
// Platform implementations live in subpackages (robot, hook) so that the
// engine and its tests never link against cgo.
package input

import (
	"context"
	"fmt"

	"github.com/roach88/hotclick/internal/keys"
	"github.com/roach88/hotclick/internal/model"
)

// Injector sends synthetic input. Implementations must be safe for
// concurrent use: the master loop and any number of macro runs call it from
// their own goroutines.
type Injector interface {
	// MoveTo places the cursor at (x, y).
	MoveTo(x, y int) error

	// Click presses and releases a mouse button at the current cursor.
	Click(button model.ActionKind) error

	// KeyTap presses and releases the named key.
	KeyTap(key string) error
}

// Perform sends one action. A pinned action moves the cursor first. A key
// action with empty key text sends nothing.
func Perform(inj Injector, a model.Action) error {
	if a.At != nil {
		if err := inj.MoveTo(a.At.X, a.At.Y); err != nil {
			return fmt.Errorf("move to (%d,%d): %w", a.At.X, a.At.Y, err)
		}
	}

	switch {
	case a.Kind.IsMouse():
		if err := inj.Click(a.Kind); err != nil {
			return fmt.Errorf("click %s: %w", a.Kind, err)
		}
	case a.Kind == model.ActionKey:
		if a.Key == "" {
			return nil
		}
		if err := inj.KeyTap(a.Key); err != nil {
			return fmt.Errorf("key tap %q: %w", a.Key, err)
		}
	default:
		return fmt.Errorf("unsupported action kind %q", a.Kind)
	}
	return nil
}

// KeyEventType distinguishes presses from releases.
type KeyEventType int

const (
	KeyDown KeyEventType = iota + 1
	KeyUp
)

// String returns "down" or "up".
func (t KeyEventType) String() string {
	switch t {
	case KeyDown:
		return "down"
	case KeyUp:
		return "up"
	default:
		return "unknown"
	}
}

// KeyEvent is one observed key transition.
type KeyEvent struct {
	Key  keys.Key
	Type KeyEventType
}

// Press returns a KeyDown event for k.
func Press(k keys.Key) KeyEvent {
	return KeyEvent{Key: k, Type: KeyDown}
}

// Release returns a KeyUp event for k.
func Release(k keys.Key) KeyEvent {
	return KeyEvent{Key: k, Type: KeyUp}
}

// Handler consumes key events. It is called synchronously from the
// listener goroutine and must return promptly.
type Handler func(KeyEvent)

// Listener is a global keyboard hook.
type Listener interface {
	// Start installs the hook and delivers events to h until ctx is
	// cancelled or Stop is called. It returns an error if the hook could
	// not be acquired; after a nil return, events flow on a goroutine owned
	// by the listener.
	Start(ctx context.Context, h Handler) error

	// Stop removes the hook. Safe to call more than once.
	Stop() error
}
