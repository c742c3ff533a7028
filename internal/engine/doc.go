// Package engine implements the hotclick trigger-dispatch and execution core.
//
// The engine receives key events from a listener, classifies them against
// the registered triggers, and either drives the master loop or spawns a
// macro run. All producers share one action Budget.
//
// ARCHITECTURE:
//
// The listener goroutine calls HandleKey, which only classifies and then
// signals or spawns. It never sleeps.
//
// The master loop runs on its own goroutine, one per run. A run starts on a
// trigger press and ends on release (press mode), on a second press (toggle
// mode), on budget exhaustion or on StopImmediately. Settings are re-read on
// every iteration, so rate or action changes apply to a run in progress.
//
// Every macro firing gets its own goroutine with a private copy of the
// definition. Runs overlap freely with each other and with the master loop.
//
// SHARED STATE:
//
// Budget is the single synchronization point between producers (a CAS
// check-and-increment, zero overshoot). The trigger table and the master
// settings are immutable values published through atomic pointers; the
// editing path builds a new value and swaps it in, so HandleKey never takes
// a lock held by an editor.
//
// Status values go to a StatusSink. Producers emit from their own
// goroutines, so production wiring wraps the display sink in an AsyncSink.
//
// STOP-IMMEDIATELY:
//
// StopImmediately stops the master loop and resets the budget. Macro runs
// already in flight keep going.
package engine
