package pipeline

import (
	"fmt"
	"runtime/debug"
)

// Entity is the opaque payload a step produces. The pipeline never looks
// inside one, it only counts and forwards them.
type Entity interface{}

// TraceError describes a recoverable failure with enough context to
// diagnose it without re-running the workflow.
type TraceError struct {
	Name       string `json:"name"`
	Message    string `json:"error"`
	StackTrace string `json:"stackTrace,omitempty"`
}

func (t TraceError) String() string {
	return fmt.Sprintf("%s: %s", t.Name, t.Message)
}

// Unhandled builds the failure record for a defect the step did not model,
// capturing the current goroutine stack.
func Unhandled(reason interface{}) TraceError {
	return TraceError{
		Name:       "Unhandled",
		Message:    fmt.Sprintf("unhandled error during workflow processing: [%v]", reason),
		StackTrace: string(debug.Stack()),
	}
}

// Either is the outcome of processing one record: a failure record or an
// entity, never both. Build one with Fail or Emit, the zero value is not a
// valid outcome. An Either only travels between a step's internal logic
// and its run wrapper, it never crosses the step boundary.
type Either struct {
	failure *TraceError
	entity  Entity
}

// Fail wraps a failure record in an envelope
func Fail(failure TraceError) Either {
	return Either{failure: &failure}
}

// Emit wraps a successfully produced entity in an envelope
func Emit(entity Entity) Either {
	return Either{entity: entity}
}

// IsFailure is true when the envelope carries a failure record
func (e Either) IsFailure() bool { return e.failure != nil }

// IsEntity is true when the envelope carries an entity
func (e Either) IsEntity() bool { return e.failure == nil && e.entity != nil }

// Failure returns the failure record, the zero record when IsFailure is false
func (e Either) Failure() TraceError {
	if e.failure == nil {
		return TraceError{}
	}
	return *e.failure
}

// Entity returns the entity, nil when IsEntity is false
func (e Either) Entity() Entity { return e.entity }
