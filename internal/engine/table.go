package engine

import (
	"github.com/roach88/hotclick/internal/keys"
	"github.com/roach88/hotclick/internal/model"
)

// ResolutionKind says what a resolved key event starts.
type ResolutionKind int

const (
	// ResolveMacro starts a run of Resolution.Macro.
	ResolveMacro ResolutionKind = iota + 1
	// ResolveMaster starts, stops or toggles the master loop.
	ResolveMaster
)

// Resolution is the outcome of TriggerTable.Resolve.
type Resolution struct {
	Kind  ResolutionKind
	Index int
	Macro model.Macro
}

// TriggerTable maps trigger keys to what they start.
//
// A table is an immutable value. Register, Replace, Remove and WithMaster
// return a new table and leave the receiver untouched, which lets the
// engine publish tables through an atomic pointer.
//
// INVARIANTS:
//   - macro triggers are unique among macros
//   - macro order is registration order and is preserved across edits
type TriggerTable struct {
	macros []model.Macro
	master keys.Key
}

// NewTriggerTable builds a table, rejecting duplicate macro triggers.
// The macros slice is copied.
func NewTriggerTable(macros []model.Macro, master keys.Key) (*TriggerTable, error) {
	t := &TriggerTable{master: master}
	for _, m := range macros {
		next, err := t.Register(m)
		if err != nil {
			return nil, err
		}
		t = next
	}
	return t, nil
}

// Resolve classifies k. Macros are checked before the master trigger, so a
// macro bound to the master key wins. Resolve has no side effects.
func (t *TriggerTable) Resolve(k keys.Key) (Resolution, bool) {
	if k.IsZero() {
		return Resolution{}, false
	}
	for i, m := range t.macros {
		if m.Trigger == k {
			return Resolution{Kind: ResolveMacro, Index: i, Macro: m}, true
		}
	}
	if t.master == k {
		return Resolution{Kind: ResolveMaster, Index: -1}, true
	}
	return Resolution{}, false
}

// Register returns a table with m appended.
func (t *TriggerTable) Register(m model.Macro) (*TriggerTable, error) {
	if owner := t.owner(m.Trigger, -1); owner >= 0 {
		return nil, NewDuplicateTriggerError(m.Trigger.String(), owner)
	}
	next := t.clone(len(t.macros) + 1)
	next.macros = append(next.macros, m)
	return next, nil
}

// Replace returns a table with the macro at i replaced by m. A macro may
// keep its own trigger.
func (t *TriggerTable) Replace(i int, m model.Macro) (*TriggerTable, error) {
	if i < 0 || i >= len(t.macros) {
		return nil, NewMacroNotFoundError(i, len(t.macros))
	}
	if owner := t.owner(m.Trigger, i); owner >= 0 {
		return nil, NewDuplicateTriggerError(m.Trigger.String(), owner)
	}
	next := t.clone(len(t.macros))
	next.macros[i] = m
	return next, nil
}

// Remove returns a table without the macro at i.
func (t *TriggerTable) Remove(i int) (*TriggerTable, error) {
	if i < 0 || i >= len(t.macros) {
		return nil, NewMacroNotFoundError(i, len(t.macros))
	}
	next := &TriggerTable{master: t.master, macros: make([]model.Macro, 0, len(t.macros)-1)}
	next.macros = append(next.macros, t.macros[:i]...)
	next.macros = append(next.macros, t.macros[i+1:]...)
	return next, nil
}

// WithMaster returns a table whose master trigger is k.
func (t *TriggerTable) WithMaster(k keys.Key) *TriggerTable {
	next := t.clone(len(t.macros))
	next.master = k
	return next
}

// Master returns the master trigger.
func (t *TriggerTable) Master() keys.Key {
	return t.master
}

// Macros returns a copy of the registered macros in order.
func (t *TriggerTable) Macros() []model.Macro {
	out := make([]model.Macro, len(t.macros))
	copy(out, t.macros)
	return out
}

// Len returns the number of registered macros.
func (t *TriggerTable) Len() int {
	return len(t.macros)
}

// owner returns the index of the macro bound to k, ignoring skip, or -1.
func (t *TriggerTable) owner(k keys.Key, skip int) int {
	for i, m := range t.macros {
		if i != skip && m.Trigger == k {
			return i
		}
	}
	return -1
}

func (t *TriggerTable) clone(capacity int) *TriggerTable {
	next := &TriggerTable{master: t.master, macros: make([]model.Macro, len(t.macros), capacity)}
	copy(next.macros, t.macros)
	return next
}
