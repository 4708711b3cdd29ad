package pipeline

import "context"

// UnitFunc is a single unit of work producing one result envelope. A
// returned error is either the fatal signal or an unanticipated defect;
// recoverable failures travel inside the envelope.
type UnitFunc func(ctx context.Context) (Either, error)

// Return builds a step that runs one unit of work per Run call
func Return(name StepName, unit UnitFunc, opts ...Option) *ReturnStep {
	return &ReturnStep{core: newCore(name, opts...), unit: unit}
}

// ReturnStep runs a single unit of work and hands back its entity
type ReturnStep struct {
	*core
	unit UnitFunc
}

// Run executes the unit once and handles the status bookkeeping. The
// entity is non-nil only for a recorded success; the error is non-nil only
// for the fatal signal, nothing else escapes.
func (s *ReturnStep) Run(ctx context.Context) (entity Entity, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ferr, ok := r.(error); ok && IsFatal(ferr) {
				s.fatal(ferr)
				entity, err = nil, ferr
				return
			}
			s.unhandled(r)
			entity, err = nil, nil
		}
	}()

	result, rerr := s.unit(ctx)
	if rerr != nil {
		if IsFatal(rerr) {
			s.fatal(rerr)
			return nil, rerr
		}
		s.unhandled(rerr)
		return nil, nil
	}

	if result.IsFailure() {
		s.recordFailure(result.Failure())
		return nil, nil
	}
	if result.IsEntity() {
		s.recordSuccess()
		return result.Entity(), nil
	}

	// empty envelopes are disallowed, surface the defect in the status
	s.consume(result)
	return nil, nil
}
