// Package robot implements input.Injector on top of robotgo.
package robot

import (
	"sync"

	"github.com/go-vgo/robotgo"

	"github.com/roach88/hotclick/internal/model"
)

// Injector sends input through robotgo. Calls are serialized: robotgo
// drives a single process-wide event source.
type Injector struct {
	mu sync.Mutex
}

// New returns a robotgo-backed injector.
func New() *Injector {
	return &Injector{}
}

// MoveTo places the cursor at (x, y).
func (i *Injector) MoveTo(x, y int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	robotgo.Move(x, y)
	return nil
}

// Click presses and releases a mouse button at the current cursor.
func (i *Injector) Click(button model.ActionKind) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	robotgo.Click(buttonName(button), false)
	return nil
}

// KeyTap presses and releases the named key.
func (i *Injector) KeyTap(key string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return robotgo.KeyTap(key)
}

// Location returns the current cursor position.
func (i *Injector) Location() (x, y int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return robotgo.Location()
}

// buttonName maps action kinds onto robotgo button names. robotgo calls the
// middle button "center".
func buttonName(b model.ActionKind) string {
	switch b {
	case model.ActionMiddle:
		return "center"
	case model.ActionRight:
		return "right"
	default:
		return "left"
	}
}
