// Package store persists the hotclick macro list in SQLite.
//
// The store holds one ordered list. Save replaces the whole list in a
// single transaction, so a crash mid-save leaves the previous list intact;
// Load returns it in position order and fails as a whole on any bad row.
//
// Durations are integer nanoseconds. A pinned point is two nullable
// columns, both set or both NULL. Trigger keys are stored in canonical
// form and are unique from schema v1 on.
//
// A small meta table holds store-level flags, such as whether the legacy
// macros.json file has already been imported.
//
// ReadLegacyJSON and WriteLegacyJSON convert the legacy macros.json format
// for import and export.
package store
