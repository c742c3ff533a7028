package testutil

import (
	"sync"
	"time"

	"github.com/roach88/hotclick/internal/model"
)

// RecordingSink is a synchronous status sink that keeps every status it
// receives.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type RecordingSink struct {
	mu       sync.Mutex
	statuses []model.Status
	changed  chan struct{}
}

// NewRecordingSink creates an empty recorder.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{changed: make(chan struct{}, 1)}
}

// Emit records s.
func (r *RecordingSink) Emit(s model.Status) {
	r.mu.Lock()
	r.statuses = append(r.statuses, s)
	r.mu.Unlock()

	select {
	case r.changed <- struct{}{}:
	default:
	}
}

// Statuses returns a copy of the recorded statuses in order.
func (r *RecordingSink) Statuses() []model.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Status, len(r.statuses))
	copy(out, r.statuses)
	return out
}

// Labels returns the recorded labels in order.
func (r *RecordingSink) Labels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.statuses))
	for i, s := range r.statuses {
		out[i] = s.Label
	}
	return out
}

// Last returns the most recent status, or false if none was recorded.
func (r *RecordingSink) Last() (model.Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return model.Status{}, false
	}
	return r.statuses[len(r.statuses)-1], true
}

// WaitForLabel blocks until a status with the given label has been recorded
// or timeout elapses. Returns whether the label was seen.
func (r *RecordingSink) WaitForLabel(label string, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		for _, l := range r.Labels() {
			if l == label {
				return true
			}
		}
		select {
		case <-r.changed:
		case <-deadline.C:
			return false
		}
	}
}

// Reset forgets all recorded statuses.
func (r *RecordingSink) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = nil
}
