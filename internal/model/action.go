package model

import (
	"fmt"
	"strings"
)

// ActionKind selects what one action sends.
type ActionKind string

const (
	ActionLeft   ActionKind = "left"
	ActionMiddle ActionKind = "middle"
	ActionRight  ActionKind = "right"
	ActionKey    ActionKind = "key"
)

// ParseActionKind parses an action kind name. Matching is case-insensitive.
func ParseActionKind(s string) (ActionKind, error) {
	switch k := ActionKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ActionLeft, ActionMiddle, ActionRight, ActionKey:
		return k, nil
	}
	return "", &ValidationError{
		Code:    ErrCodeInvalidAction,
		Field:   "action",
		Message: fmt.Sprintf("unknown action kind %q (want left, middle, right or key)", s),
	}
}

// IsMouse reports whether k is a mouse button.
func (k ActionKind) IsMouse() bool {
	return k == ActionLeft || k == ActionMiddle || k == ActionRight
}

// Point is a screen coordinate.
type Point struct {
	X int
	Y int
}

// Action is one unit of input. Key is only meaningful when Kind is
// ActionKey. A nil At means "wherever the cursor is when the action fires".
type Action struct {
	Kind ActionKind
	Key  string
	At   *Point
}

// Click returns a mouse action at the current cursor.
func Click(kind ActionKind) Action {
	return Action{Kind: kind}
}

// Keystroke returns a key action.
func Keystroke(key string) Action {
	return Action{Kind: ActionKey, Key: key}
}

// WithPoint returns a copy of a pinned to (x, y).
func (a Action) WithPoint(x, y int) Action {
	a.At = &Point{X: x, Y: y}
	return a
}

// Equal reports whether two actions describe the same input.
func (a Action) Equal(b Action) bool {
	if a.Kind != b.Kind || a.Key != b.Key {
		return false
	}
	if (a.At == nil) != (b.At == nil) {
		return false
	}
	return a.At == nil || *a.At == *b.At
}

// String renders the action for logs, e.g. "left@(10,20)" or "key:enter".
func (a Action) String() string {
	s := string(a.Kind)
	if a.Kind == ActionKey {
		s = "key:" + a.Key
	}
	if a.At != nil {
		s += fmt.Sprintf("@(%d,%d)", a.At.X, a.At.Y)
	}
	return s
}
