package pipeline

import (
	"fmt"

	"github.com/hashicorp/errwrap"
)

// FatalErr creates the signal that stops the whole workflow, e.g. after a
// failed connection test. Anything else a step produces keeps the workflow
// running.
func FatalErr(err error) *FatalError {
	switch e := err.(type) {
	case *FatalError:
		return e
	default:
		return &FatalError{Err: err}
	}
}

// Fatalf creates a fatal signal from a format string
func Fatalf(format string, args ...interface{}) *FatalError {
	return &FatalError{Err: fmt.Errorf(format, args...)}
}

// FatalError aborts the workflow. It carries a message only, no recovery
// state: the status gathered before the abort is the authoritative record
// of partial progress. Run wrappers log it and hand it back unchanged,
// they never convert it to a failure record.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// WrappedErrors implements errwrap.Wrapper from https://github.com/hashicorp/errwrap
func (e *FatalError) WrappedErrors() []error {
	return []error{e.Err}
}

// IsFatal returns true when this error is, or wraps, the fatal signal
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := err.(*FatalError); ok {
		return true
	}
	return errwrap.ContainsType(err, &FatalError{})
}

// ConfigErr creates the error a factory returns when the provided
// configuration cannot produce a runnable step
func ConfigErr(err error) *ConfigurationError {
	switch e := err.(type) {
	case *ConfigurationError:
		return e
	default:
		return &ConfigurationError{Err: err}
	}
}

// Configf creates a configuration error from a format string
func Configf(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Err: fmt.Errorf(format, args...)}
}

// ConfigurationError surfaces only from the factory boundary, before any
// run begins, and fails workflow setup immediately.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return "invalid step configuration: " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// WrappedErrors implements errwrap.Wrapper from https://github.com/hashicorp/errwrap
func (e *ConfigurationError) WrappedErrors() []error {
	return []error{e.Err}
}

// IsConfiguration returns true when this error is, or wraps, a configuration error
func IsConfiguration(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := err.(*ConfigurationError); ok {
		return true
	}
	return errwrap.ContainsType(err, &ConfigurationError{})
}
