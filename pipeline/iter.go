package pipeline

import (
	"context"
	"iter"
	"sync/atomic"
)

// SourceFunc produces the finite, single-pass stream of envelopes an
// iterator step wraps
type SourceFunc func(ctx context.Context) iter.Seq2[Either, error]

// Iter builds a step whose Run is itself a lazy sequence, driven entirely
// by its consumer's pulls
func Iter(name StepName, source SourceFunc, opts ...Option) *IterStep {
	return &IterStep{core: newCore(name, opts...), source: source}
}

// IterStep wraps a lazy stream of envelopes into a lazy stream of entities
type IterStep struct {
	*core
	source  SourceFunc
	started atomic.Bool
}

// Run returns a single-pass, non-restartable sequence with one emission
// per source envelope, in source order. A failure envelope is recorded and
// comes through as a nil placeholder, so consumers that zip against
// another sequence keep their alignment. Status moves at the moment each
// element is produced, never eagerly. A fatal from the source is logged
// and surfaces at the pull site as the final non-nil error. Consumers may
// stop pulling early and simply leave the remainder unconsumed.
func (s *IterStep) Run(ctx context.Context) iter.Seq2[Entity, error] {
	if !s.started.CompareAndSwap(false, true) {
		s.log.Warnf("step [%s] already ran, its sequence is single-pass", s.Name())
		return func(func(Entity, error) bool) {}
	}

	return func(yield func(Entity, error) bool) {
		s.publish(StateProcessing, nil)
		next, stop := iter.Pull2(s.source(ctx))
		defer stop()

		for {
			result, serr, ok, defect := pullNext(next)
			if defect != nil {
				if ferr, isErr := defect.(error); isErr && IsFatal(ferr) {
					s.fatal(ferr)
					yield(nil, ferr)
					return
				}
				// the source itself blew up, record it and end the sequence
				s.unhandled(defect)
				s.publish(StateFailed, nil)
				return
			}
			if !ok {
				s.publish(StateCompleted, nil)
				return
			}

			if serr != nil {
				if IsFatal(serr) {
					s.fatal(serr)
					yield(nil, serr)
					return
				}
				// the source is still viable, record and move on without
				// emitting: errors are not envelopes
				s.unhandled(serr)
				continue
			}

			switch {
			case result.IsFailure():
				s.recordFailure(result.Failure())
				if !yield(nil, nil) {
					return
				}
			case result.IsEntity():
				s.recordSuccess()
				if !yield(result.Entity(), nil) {
					return
				}
			default:
				s.consume(result)
				if !yield(nil, nil) {
					return
				}
			}
		}
	}
}

// pullNext advances the source, converting a panic in its producer into a
// defect value instead of unwinding through the consumer's loop
func pullNext(next func() (Either, error, bool)) (result Either, err error, ok bool, defect interface{}) {
	defer func() {
		if r := recover(); r != nil {
			defect = r
			ok = false
		}
	}()
	result, err, ok = next()
	return
}
