package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/hotclick/internal/keys"
)

// DefaultMacroName is used when a macro is saved without a name.
const DefaultMacroName = "(no name)"

// Macro is a named, bounded burst of actions bound to a trigger key.
type Macro struct {
	Name       string
	Trigger    keys.Key
	Action     Action
	Repeat     int
	Interval   time.Duration
	StartDelay time.Duration
}

// Validate checks the definition. It fills in DefaultMacroName for an empty
// name and lower-cases the keystroke text.
func (m *Macro) Validate() error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		m.Name = DefaultMacroName
	}
	if m.Trigger.IsZero() {
		return invalidTrigger("trigger", keys.ErrEmptyKey)
	}
	if m.Repeat < 1 {
		return invalidNumber("repeat", "must be a positive integer, got %d", m.Repeat)
	}
	if m.Interval < 0 {
		return invalidNumber("interval", "must be non-negative, got %s", m.Interval)
	}
	if m.StartDelay < 0 {
		return invalidNumber("start_delay", "must be non-negative, got %s", m.StartDelay)
	}
	if _, err := ParseActionKind(string(m.Action.Kind)); err != nil {
		return err
	}
	m.Action.Key = strings.ToLower(strings.TrimSpace(m.Action.Key))
	if m.Action.Kind == ActionKey && m.Action.Key == "" {
		return &ValidationError{
			Code:    ErrCodeInvalidAction,
			Field:   "key",
			Message: "key action requires key text",
		}
	}
	return nil
}

// DisplayName renders the macro the way list views show it: "name [trigger]".
func (m Macro) DisplayName() string {
	hk := m.Trigger.String()
	if hk == "" {
		hk = "?"
	}
	return fmt.Sprintf("%s [%s]", m.Name, hk)
}

// Equal reports whether two definitions are identical.
func (m Macro) Equal(o Macro) bool {
	return m.Name == o.Name &&
		m.Trigger == o.Trigger &&
		m.Action.Equal(o.Action) &&
		m.Repeat == o.Repeat &&
		m.Interval == o.Interval &&
		m.StartDelay == o.StartDelay
}
