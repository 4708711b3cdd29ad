package pipeline

import (
	"fmt"

	"github.com/casualjim/conveyor/eventbus"
)

// TopicLifecycle is the event topic for step lifecycle transitions.
// Steps publish waiting when they are built, processing when a run starts,
// completed or failed when it ends and aborted on a fatal signal. The
// single-result variant only reports aborts, its Run is per record and
// anything finer would flood the bus.
const TopicLifecycle = "lifecycle"

var stateKeyNames map[State]string
var namedStateKeys map[string]State

func init() {
	stateKeyNames = map[State]string{
		StateUnknown:    "unknown",
		StateWaiting:    "waiting",
		StateProcessing: "processing",
		StateCompleted:  "completed",
		StateFailed:     "failed",
		StateAborted:    "aborted",
	}

	namedStateKeys = make(map[string]State, len(stateKeyNames))
	for k, v := range stateKeyNames {
		namedStateKeys[v] = k
	}
}

// StateFromString creates a step state from a string
func StateFromString(name string) (State, error) {
	if v, ok := namedStateKeys[name]; ok {
		return v, nil
	}
	return StateUnknown, fmt.Errorf("invalid step state %q", name)
}

// State represents where a step is in its lifecycle
type State uint8

const (
	// StateUnknown indicates the step is unknown
	StateUnknown State = iota
	// StateWaiting indicates the step is built but hasn't run yet
	StateWaiting
	// StateProcessing indicates the step is currently executing
	StateProcessing
	// StateCompleted indicates the run finished, recoverable failures included
	StateCompleted
	// StateFailed indicates the run gave up on an unanticipated defect
	StateFailed
	// StateAborted indicates the run was cut short by the fatal signal
	StateAborted
)

func (e State) String() string {
	return stateKeyNames[e]
}

// MarshalText renders this step state to text
func (e State) MarshalText() (text []byte, err error) {
	return []byte(stateKeyNames[e]), nil
}

// UnmarshalText parses this step state from text
func (e *State) UnmarshalText(text []byte) error {
	st, err := StateFromString(string(text))
	if err != nil {
		return err
	}
	*e = st
	return nil
}

// A LifecycleEvent is emitted when a step changes state
type LifecycleEvent struct {
	Step   string
	ID     string
	State  State
	Reason error
}

// IsLifecycleEvent returns true if this is a lifecycle event in the given state
func IsLifecycleEvent(evt eventbus.Event, state State) bool {
	return LifecycleEventFilter(state)(evt)
}

// LifecycleEventFilter is an event filter that matches lifecycle events in
// the given state
func LifecycleEventFilter(state State) eventbus.EventPredicate {
	return func(evt eventbus.Event) bool {
		if evt.Name != TopicLifecycle {
			return false
		}
		lce, ok := evt.Args.(LifecycleEvent)
		return ok && lce.State == state
	}
}
