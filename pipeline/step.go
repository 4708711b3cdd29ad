package pipeline

import (
	"fmt"
	"sync"

	multierror "github.com/hashicorp/go-multierror"
	metrics "github.com/rcrowley/go-metrics"
	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"

	"github.com/casualjim/conveyor"
	"github.com/casualjim/conveyor/eventbus"
)

// A Step is a single stage of a processing pipeline with its own status
// and lifecycle. The orchestrator builds it through a Factory, runs it in
// its variant's shape, reads Status whenever it likes, and calls Close
// exactly once on every exit path.
type Step interface {
	Name() string
	Status() *Status
	Close() error
}

// StepName represents a step name
type StepName string

// Name method to make it easier to build named steps
func (s StepName) Name() string {
	return string(s)
}

// Config is the untyped key-value mapping handed to a factory. The
// pipeline treats it as opaque, validation semantics belong to each
// concrete step.
type Config map[string]interface{}

// Require reports every missing key in one configuration error
func (c Config) Require(keys ...string) error {
	var missing *multierror.Error
	for _, key := range keys {
		if _, ok := c[key]; !ok {
			missing = multierror.Append(missing, fmt.Errorf("missing required key %q", key))
		}
	}
	if err := missing.ErrorOrNil(); err != nil {
		return ConfigErr(err)
	}
	return nil
}

// String reads a string value from the config
func (c Config) String(key string) (string, error) {
	v, ok := c[key]
	if !ok {
		return "", Configf("missing required key %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", Configf("key %q is a %T, expected a string", key, v)
	}
	return s, nil
}

// Factory builds a ready-to-run step from a configuration mapping and an
// opaque connection descriptor. Setup problems surface here as a
// ConfigurationError, before any run begins.
type Factory func(config Config, conn interface{}) (Step, error)

// Option configures a step at construction time
type Option func(*core)

// LogWith sets the logger used for fatal and unhandled-error messages.
// The default logs through the global logrus logger.
func LogWith(log conveyor.Logger) Option {
	return func(c *core) { c.log = log }
}

// PublishTo emits lifecycle events for this step on the given bus
func PublishTo(bus eventbus.EventBus) Option {
	return func(c *core) { c.bus = bus }
}

// MeterWith registers the per-step success/failure counters on the given
// registry instead of metrics.DefaultRegistry
func MeterWith(reg metrics.Registry) Option {
	return func(c *core) { c.reg = reg }
}

// OnClose sets the release function invoked by Close
func OnClose(release func() error) Option {
	return func(c *core) { c.release = release }
}

// core carries the bookkeeping every step variant shares: the status it
// owns for its whole lifetime, its identity, and the reporting hooks.
type core struct {
	StepName
	id      ksuid.KSUID
	status  *Status
	log     conveyor.Logger
	bus     eventbus.EventBus
	reg     metrics.Registry
	release func() error
	closed  sync.Once

	succeeded metrics.Counter
	failed    metrics.Counter
}

func newCore(name StepName, opts ...Option) *core {
	c := &core{
		StepName: name,
		id:       ksuid.New(),
		status:   NewStatus(),
		log:      conveyor.FromLogrus(logrus.StandardLogger()),
		bus:      eventbus.NopBus,
		reg:      metrics.DefaultRegistry,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.succeeded = metrics.GetOrRegisterCounter(fmt.Sprintf("steps.%s.succeeded", name), c.reg)
	c.failed = metrics.GetOrRegisterCounter(fmt.Sprintf("steps.%s.failed", name), c.reg)
	c.publish(StateWaiting, nil)
	return c
}

// ID is the unique id of this step instance
func (c *core) ID() string {
	return c.id.String()
}

// Status of this step, readable at any time including mid-run
func (c *core) Status() *Status {
	return c.status
}

// Close releases the step's resources. It is safe on every exit path, a
// fatal abort included; only the first call runs the release function.
func (c *core) Close() error {
	var err error
	c.closed.Do(func() {
		if c.release != nil {
			err = c.release()
		}
	})
	return err
}

func (c *core) recordSuccess() {
	c.status.RecordSuccess()
	c.succeeded.Inc(1)
}

func (c *core) recordFailure(failure TraceError) {
	c.status.RecordFailure(failure)
	c.failed.Inc(1)
}

// consume records one envelope. An empty envelope is a programming defect
// and surfaces in the status instead of passing silently.
func (c *core) consume(result Either) {
	switch {
	case result.IsFailure():
		c.recordFailure(result.Failure())
	case result.IsEntity():
		c.recordSuccess()
	default:
		c.recordFailure(Unhandled(fmt.Sprintf("empty result envelope in step [%s]", c.Name())))
	}
}

// unhandled downgrades an unanticipated defect to a recorded failure, the
// workflow keeps running
func (c *core) unhandled(reason interface{}) {
	failure := Unhandled(reason)
	c.log.Warnf("%s in step [%s]", failure.Message, c.Name())
	c.recordFailure(failure)
}

// fatal logs and publishes the abort, the caller hands the signal back unchanged
func (c *core) fatal(err error) {
	c.log.Errorf("fatal error running step [%s]: [%v]", c.Name(), err)
	c.publish(StateAborted, err)
}

func (c *core) publish(state State, reason error) {
	c.bus.Publish(eventbus.NewEvent(TopicLifecycle, LifecycleEvent{
		Step:   c.Name(),
		ID:     c.id.String(),
		State:  state,
		Reason: reason,
	}))
}

// CloseAll closes every step, aggregating the release errors. Use it on
// the way out of a workflow so a failing close doesn't leak the rest.
func CloseAll(steps ...Step) error {
	var errs *multierror.Error
	for _, step := range steps {
		if err := step.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("closing step %q: %v", step.Name(), err))
		}
	}
	return errs.ErrorOrNil()
}
