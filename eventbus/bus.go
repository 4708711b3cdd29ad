// Package eventbus fans pipeline lifecycle notifications out to
// subscribers without making the publishing step wait on them.
package eventbus

import (
	"sync"
	"time"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
)

// Event is a single notification published on the bus
type Event struct {
	Name string
	At   time.Time
	Args interface{}
}

// NewEvent creates an event for the given topic, stamped with the current time
func NewEvent(name string, args interface{}) Event {
	return Event{Name: name, At: time.Now(), Args: args}
}

// EventHandler deals with handling events
type EventHandler interface {
	On(Event) error
}

// NOOPHandler drops events on the floor without taking action
var NOOPHandler = Handler(func(_ Event) error { return nil })

// Handler wraps a function that will be called when an event is received
func Handler(on func(Event) error) EventHandler {
	return &funcHandler{on: on}
}

type funcHandler struct {
	on func(Event) error
}

func (h *funcHandler) On(evt Event) error { return h.on(evt) }

// EventPredicate for filtering events
type EventPredicate func(Event) bool

// Filtered composes an event handler with a filter
func Filtered(matches EventPredicate, next EventHandler) EventHandler {
	return &filteredHandler{matches: matches, next: next}
}

type filteredHandler struct {
	matches EventPredicate
	next    EventHandler
}

func (f *filteredHandler) On(evt Event) error {
	if !f.matches(evt) {
		return nil
	}
	return f.next.On(evt)
}

// EventBus does fanout to registered handlers
type EventBus interface {
	Close() error
	Publish(Event)
	Subscribe(...EventHandler)
	Unsubscribe(...EventHandler)
	Len() int
}

// NopBus discards every published event, for when nobody is reporting
var NopBus EventBus = &nopBus{}

type nopBus struct{}

func (n *nopBus) Close() error               { return nil }
func (n *nopBus) Publish(Event)              {}
func (n *nopBus) Subscribe(...EventHandler)  {}
func (n *nopBus) Unsubscribe(...EventHandler) {}
func (n *nopBus) Len() int                   { return 0 }

// New event bus with the specified logger
func New(log logrus.FieldLogger) EventBus {
	return NewWithTimeout(log, 100*time.Millisecond)
}

// NewWithTimeout creates a new eventbus that gives up delivering an event
// to a subscriber that doesn't accept it within the timeout
func NewWithTimeout(log logrus.FieldLogger, timeout time.Duration) EventBus {
	if log == nil {
		log = logrus.StandardLogger()
	}
	b := &fanoutBus{
		incoming: make(chan Event, 100),
		closing:  make(chan chan struct{}),
		timeout:  timeout,
		log:      log,
	}
	go b.dispatch()
	return b
}

type fanoutBus struct {
	lock     sync.RWMutex
	subs     []*subscription
	incoming chan Event
	closing  chan chan struct{}
	timeout  time.Duration
	log      logrus.FieldLogger
}

type subscription struct {
	handler EventHandler
	events  chan Event
	done    chan struct{}
}

func (s *subscription) start(log logrus.FieldLogger) {
	go func() {
		defer close(s.done)
		for evt := range s.events {
			if err := s.handler.On(evt); err != nil {
				log.Errorln(err)
			}
		}
	}()
}

func (s *subscription) stop() {
	close(s.events)
	<-s.done
}

func (b *fanoutBus) dispatch() {
	timer := metrics.GetOrRegisterTimer("conveyor.events.notify", metrics.DefaultRegistry)
	for {
		select {
		case evt := <-b.incoming:
			timer.Time(func() { b.broadcast(evt) })
		case done := <-b.closing:
			// deliver what was already published before shutting down
			for {
				select {
				case evt := <-b.incoming:
					b.broadcast(evt)
					continue
				default:
				}
				break
			}
			b.lock.Lock()
			for _, sub := range b.subs {
				sub.stop()
			}
			b.subs = nil
			b.lock.Unlock()
			close(done)
			return
		}
	}
}

func (b *fanoutBus) broadcast(evt Event) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	for _, sub := range b.subs {
		timer := time.NewTimer(b.timeout)
		select {
		case sub.events <- evt:
			timer.Stop()
		case <-timer.C:
			b.log.Warnf("gave up delivering event %q to a subscriber after %v", evt.Name, b.timeout)
		}
	}
}

// Publish an event to all interested subscribers
func (b *fanoutBus) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	metrics.GetOrRegisterCounter("conveyor.events."+evt.Name, metrics.DefaultRegistry).Inc(1)
	b.incoming <- evt
}

// Subscribe to events published in the bus
func (b *fanoutBus) Subscribe(handlers ...EventHandler) {
	b.lock.Lock()
	for _, handler := range handlers {
		sub := &subscription{
			handler: handler,
			events:  make(chan Event),
			done:    make(chan struct{}),
		}
		sub.start(b.log)
		b.subs = append(b.subs, sub)
	}
	b.lock.Unlock()
}

// Unsubscribe the given handlers, each in-flight event is still delivered
func (b *fanoutBus) Unsubscribe(handlers ...EventHandler) {
	b.lock.Lock()
	for _, handler := range handlers {
		for i, sub := range b.subs {
			if sub.handler == handler {
				sub.stop()
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				break
			}
		}
	}
	b.lock.Unlock()
}

// Close delivers the events published so far and stops the dispatcher
func (b *fanoutBus) Close() error {
	done := make(chan struct{})
	b.closing <- done
	<-done
	close(b.closing)
	return nil
}

func (b *fanoutBus) Len() int {
	b.lock.RLock()
	sz := len(b.subs)
	b.lock.RUnlock()
	return sz
}
