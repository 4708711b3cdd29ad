package pipeline

import (
	"context"
	"iter"
)

// DrainFunc produces the finite stream of result envelopes for a stage
// step. The stage durably writes its output to a sink (a file, an
// intermediate store) as a side effect; the next pipeline stage reads that
// sink directly, the envelopes only feed the status bookkeeping.
type DrainFunc func(ctx context.Context) iter.Seq2[Either, error]

// Stage builds a step that drains its whole stream on every Run call
func Stage(name StepName, drain DrainFunc, opts ...Option) *StageStep {
	return &StageStep{core: newCore(name, opts...), drain: drain}
}

// StageStep consumes a stream of envelopes eagerly, recording each one
type StageStep struct {
	*core
	drain DrainFunc
}

// Run consumes the entire stream in source order, recording every
// envelope. An unanticipated defect records one Unhandled failure and
// gives up on the remainder of this invocation without escaping; the
// returned error is non-nil only for the fatal signal.
func (s *StageStep) Run(ctx context.Context) (err error) {
	s.publish(StateProcessing, nil)
	defer func() {
		if r := recover(); r != nil {
			if ferr, ok := r.(error); ok && IsFatal(ferr) {
				s.fatal(ferr)
				err = ferr
				return
			}
			s.unhandled(r)
			s.publish(StateFailed, nil)
			err = nil
		}
	}()

	for result, serr := range s.drain(ctx) {
		if serr != nil {
			if IsFatal(serr) {
				s.fatal(serr)
				return serr
			}
			s.unhandled(serr)
			s.publish(StateFailed, nil)
			return nil
		}
		s.consume(result)
	}
	s.publish(StateCompleted, nil)
	return nil
}
