package harness

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	// Statuses lists emitted status labels in order.
	Statuses []string `json:"statuses"`

	// Actions lists injected calls in order ("click:left", "move:10,20").
	Actions []string `json:"actions"`

	// Sent is the budget counter after the last step.
	Sent int64 `json:"sent"`

	// Running reports whether the master loop was active after the last step.
	Running bool `json:"running"`

	// ActiveMacros is the number of live macro runs after the last step.
	ActiveMacros int `json:"active_macros"`

	// LoadError is the message of the macro load failure, if any.
	LoadError string `json:"load_error,omitempty"`

	// Errors contains failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Statuses: []string{},
		Actions:  []string{},
		Errors:   []string{},
	}
}

// AddError records a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// FinalStatus returns the last emitted label, or "" when none was emitted.
func (r *Result) FinalStatus() string {
	if len(r.Statuses) == 0 {
		return ""
	}
	return r.Statuses[len(r.Statuses)-1]
}
