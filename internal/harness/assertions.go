package harness

import (
	"fmt"
	"slices"
	"strings"
)

// EvaluateExpectations checks result against expect and returns one message
// per failed check.
func EvaluateExpectations(result *Result, expect Expect) []string {
	var errs []string

	if expect.Sent != nil && result.Sent != *expect.Sent {
		errs = append(errs, fmt.Sprintf("sent: expected %d, got %d", *expect.Sent, result.Sent))
	}
	if expect.MinSent != nil && result.Sent < *expect.MinSent {
		errs = append(errs, fmt.Sprintf("sent: expected at least %d, got %d", *expect.MinSent, result.Sent))
	}

	if expect.FinalStatus != nil {
		if got := result.FinalStatus(); got != *expect.FinalStatus {
			errs = append(errs, fmt.Sprintf("final_status: expected %q, got %q", *expect.FinalStatus, got))
		}
	}

	if expect.Running != nil && result.Running != *expect.Running {
		errs = append(errs, fmt.Sprintf("running: expected %t, got %t", *expect.Running, result.Running))
	}

	if expect.Actions != nil {
		if got := countActions(result.Actions); got != *expect.Actions {
			errs = append(errs, fmt.Sprintf("actions: expected %d, got %d", *expect.Actions, got))
		}
	}

	if expect.Statuses != nil && !slices.Equal(expect.Statuses, result.Statuses) {
		errs = append(errs, fmt.Sprintf("statuses: expected [%s], got [%s]",
			strings.Join(expect.Statuses, ", "), strings.Join(result.Statuses, ", ")))
	}

	if expect.LoadFailure != nil {
		failed := result.LoadError != ""
		if failed != *expect.LoadFailure {
			errs = append(errs, fmt.Sprintf("load_failure: expected %t, got %t (%s)",
				*expect.LoadFailure, failed, result.LoadError))
		}
	}

	return errs
}

// countActions counts injected actions. Cursor moves that precede a pinned
// click are not actions of their own.
func countActions(calls []string) int {
	n := 0
	for _, c := range calls {
		if !strings.HasPrefix(c, "move:") {
			n++
		}
	}
	return n
}
