// Package pipeline contains the execution contract shared by every stage
// of a multi-stage data-processing workflow.
//
// A step is a unit of work with its own status and lifecycle. Its internal
// logic produces result envelopes, one per record: a recoverable failure on
// the left or an entity on the right. The step variants wrap that logic so
// implementations never re-do error handling or bookkeeping:
//
//	single := pipeline.Return("lookup", lookupFn)
//	writer := pipeline.Stage("stage-to-disk", drainFn)
//	reader := pipeline.Iter("read-rows", sourceFn)
//	sink   := pipeline.Bulk("bulk-load", loadFn)
//
// Recoverable failures are recorded on the step's Status and processing
// continues. Anything unanticipated is downgraded to an "Unhandled" failure
// record, so one bad record never takes the workflow down. The one
// exception is the fatal signal: a *FatalError is logged and handed back
// unchanged, and the orchestrator must stop the workflow when it sees one.
//
// The orchestrator drives every step the same way: build it through a
// Factory, call Run in the variant's shape, read Status whenever it likes,
// and Close exactly once on every exit path.
package pipeline
