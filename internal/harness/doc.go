// Package harness runs scripted key sequences against a real engine and
// checks the outcome.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: macro_burst
//	description: "A macro fires on press and sends its repeat count"
//	master:
//	  rate: 20
//	  trigger: f3
//	  mode: toggle
//	  stop_after: 100
//	macros:
//	  - name: burst
//	    trigger: f6
//	    action: key
//	    key: x
//	    repeat: 4
//	    interval: 1ms
//	steps:
//	  - press: f6
//	  - release: f6
//	  - settle: true
//	expect:
//	  sent: 4
//	  final_status: idle
//	  statuses: ["macro: burst", idle]
//	golden: true
//
// Steps are press, release, wait (a duration), stop (StopImmediately) and
// settle (wait for the master loop and all macro runs to end). Unknown
// fields are rejected.
//
// # Determinism
//
// Each run gets a fresh engine with a recording injector, a synchronous
// recording sink, an in-memory macro store and sequential run IDs. Action
// counts still depend on timing unless a cap or a repeat count bounds them,
// so only bounded scenarios should set golden.
//
// Golden traces live in testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
