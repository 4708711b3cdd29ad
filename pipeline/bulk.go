package pipeline

import "context"

// BulkFunc does all of a step's processing in one opaque call, e.g. a
// single bulk network request that cannot be decomposed into per-record
// envelopes. It receives the step's status and owns its own bookkeeping
// and error classification.
type BulkFunc func(ctx context.Context, status *Status) error

// Bulk builds a step around a single opaque operation
func Bulk(name StepName, run BulkFunc, opts ...Option) *BulkStep {
	return &BulkStep{core: newCore(name, opts...), run: run}
}

// BulkStep executes one opaque operation per Run call. Unlike the other
// variants nothing is caught on its behalf: every error, the fatal signal
// included, reaches the caller unchanged, and panics propagate.
type BulkStep struct {
	*core
	run BulkFunc
}

// Run invokes the bulk operation with no wrapping
func (s *BulkStep) Run(ctx context.Context) error {
	return s.run(ctx, s.status)
}
