// Package model defines the data types shared by the engine, the store and
// the configuration layer.
//
// # Types
//
//   - Action: what one unit of input is (a mouse button or a keystroke),
//     optionally pinned to a screen coordinate.
//   - Macro: a named, bounded burst of Actions bound to a trigger key.
//   - MasterSettings: the continuous master stream configuration.
//   - Status: a label/color pair pushed to the display layer.
//
// Values are plain structs and safe to copy. A running macro works on its
// own copy, so editing the stored definition never affects a run that has
// already started.
//
// # Validation
//
// Macro.Validate rejects invalid definitions with *ValidationError.
// ApplySettings never rejects: it coerces each invalid field to a safe value
// and reports the coercions as warnings.
package model
