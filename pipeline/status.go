package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-openapi/strfmt"
)

// Status accumulates the per-record outcomes of a step. The owning step is
// the only writer for the whole run; anyone may read while the run is in
// flight, which is why a lock guards the counters. Counts only grow, there
// is no reset: after a fatal abort the contents up to that point are the
// final record of partial progress.
type Status struct {
	lock      sync.RWMutex
	started   strfmt.DateTime
	successes int64
	failures  []TraceError
}

// NewStatus creates an empty status, stamped with its creation time
func NewStatus() *Status {
	return &Status{started: strfmt.DateTime(time.Now().UTC())}
}

// RecordSuccess counts one successfully processed record. The entity
// itself is not retained, payload retention is the caller's concern.
func (s *Status) RecordSuccess() {
	s.lock.Lock()
	s.successes++
	s.lock.Unlock()
}

// RecordFailure counts a recoverable failure and keeps its record, in the
// order it happened
func (s *Status) RecordFailure(failure TraceError) {
	s.lock.Lock()
	s.failures = append(s.failures, failure)
	s.lock.Unlock()
}

// Successes processed so far
func (s *Status) Successes() int64 {
	s.lock.RLock()
	n := s.successes
	s.lock.RUnlock()
	return n
}

// FailureCount so far
func (s *Status) FailureCount() int64 {
	s.lock.RLock()
	n := int64(len(s.failures))
	s.lock.RUnlock()
	return n
}

// Failures returns a copy of the failure records in the order they happened
func (s *Status) Failures() []TraceError {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]TraceError, len(s.failures))
	copy(out, s.failures)
	return out
}

// Report is the JSON-facing snapshot of a status
type Report struct {
	Started   strfmt.DateTime `json:"started"`
	Successes int64           `json:"successes"`
	Failures  []TraceError    `json:"failures,omitempty"`
}

// Report takes a point-in-time snapshot for the orchestrator
func (s *Status) Report() Report {
	s.lock.RLock()
	defer s.lock.RUnlock()
	failures := make([]TraceError, len(s.failures))
	copy(failures, s.failures)
	return Report{
		Started:   s.started,
		Successes: s.successes,
		Failures:  failures,
	}
}

func (s *Status) String() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return fmt.Sprintf("%d succeeded, %d failed", s.successes, len(s.failures))
}
