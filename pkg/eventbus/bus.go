// Package eventbus is an in-process publish/subscribe bus for monitoring notifications
package eventbus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Topic creates a group of subscribers that only receive events published to that topic
type Topic string

const (
	defaultTopic Topic = "__default__"
)

// MaxPending is the number of undelivered events held for one subscriber.  Further events for a subscriber that has
// fallen this far behind are dropped and counted.
const MaxPending = 64

// ShutdownFunc is called by a subscriber once it has finished processing after its event channel is closed
type ShutdownFunc func()

type subscriber struct {
	events   chan Event
	pending  chan struct{}
	dropped  atomic.Int64
	quit     chan struct{}
	done     chan struct{}
	inflight sync.WaitGroup
	stop     sync.Once
	finish   sync.Once
}

// close stops delivery and closes the event channel once in-flight sends have given up
func (s *subscriber) close() {
	s.stop.Do(func() {
		close(s.quit)
		go func() {
			s.inflight.Wait()
			close(s.events)
		}()
	})
}

func (s *subscriber) shutdown() {
	s.finish.Do(func() { close(s.done) })
}

// EventBus dispatches events to all subcribers on one or more topics.  Subscribers without a topic are placed on a
// default topic that receives every event.
type EventBus struct {
	subscribers map[Topic][]*subscriber
	all         []*subscriber
	mutex       sync.RWMutex
}

// New returns a new event bus
func New() *EventBus {
	return &EventBus{
		subscribers: make(map[Topic][]*subscriber),
	}
}

// Subscribe registers a subscriber to 0 or more topics.  With no topic the subscriber receives all events published on
// any topic.
//
// The event channel is closed when the subscriber is removed or the bus shuts down.  Subscribers should treat a closed
// channel as a shutdown signal, finish outstanding work, then call the returned ShutdownFunc.
func (e *EventBus) Subscribe(topics ...Topic) (<-chan Event, ShutdownFunc) {
	s := e.subscribe(topics...)
	return s.events, s.shutdown
}

func (e *EventBus) subscribe(topics ...Topic) *subscriber {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	s := &subscriber{
		events:  make(chan Event, 1),
		pending: make(chan struct{}, MaxPending),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	e.all = append(e.all, s)

	if len(topics) == 0 {
		topics = []Topic{defaultTopic}
	}
	for _, topic := range topics {
		e.subscribers[topic] = append(e.subscribers[topic], s)
	}
	return s
}

// Unsubscribe removes the subscriber from receiving any more events and closes its event channel
func (e *EventBus) Unsubscribe(c <-chan Event) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	for topic, subs := range e.subscribers {
		e.subscribers[topic] = remove(subs, c)
	}
	for _, s := range e.all {
		if s.events == c {
			s.close()
			s.shutdown()
		}
	}
	e.all = remove(e.all, c)
}

// Dropped returns how many events a subscriber missed because it fell MaxPending events behind
func (e *EventBus) Dropped(c <-chan Event) int {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	for _, s := range e.all {
		if s.events == c {
			return int(s.dropped.Load())
		}
	}
	return 0
}

func remove(subs []*subscriber, c <-chan Event) []*subscriber {
	out := subs[:0]
	for _, s := range subs {
		if s.events != c {
			out = append(out, s)
		}
	}
	return out
}

// Dispatch sends the event to its type's topic and any additional topics.  All events are broadcast to default topic
// subscribers.  A subscriber on several of the topics receives the event once.  Delivery is asynchronous and preserves
// no ordering between events.  Dispatch never blocks; a subscriber with MaxPending events outstanding misses the event.
func (e *EventBus) Dispatch(event Event, topics ...Topic) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	topics = append(topics, event.Type.Topic(), defaultTopic)
	seen := make(map[*subscriber]bool)
	for _, topic := range topics {
		for _, s := range e.subscribers[topic] {
			if seen[s] {
				continue
			}
			seen[s] = true
			select {
			case s.pending <- struct{}{}:
				s.inflight.Add(1)
				go deliver(s, event)
			default:
				s.dropped.Add(1)
			}
		}
	}
}

func deliver(s *subscriber, event Event) {
	defer s.inflight.Done()
	defer func() { <-s.pending }()
	select {
	case <-s.quit:
	case s.events <- event:
	}
}

// Shutdown closes every subscriber channel and blocks until all subscribers have called their ShutdownFunc.  Shutdown
// returns ErrShutdownTimeout if the context is done first.
func (e *EventBus) Shutdown(ctx context.Context) error {
	e.mutex.Lock()
	all := append([]*subscriber{}, e.all...)
	e.all = nil
	e.subscribers = make(map[Topic][]*subscriber)
	e.mutex.Unlock()

	dones := make([]chan struct{}, 0, len(all))
	for _, s := range all {
		s.close()
		dones = append(dones, s.done)
	}

	done := make(chan struct{})
	go shutdownNotify(done, dones)

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrShutdownTimeout, ctx.Err())
	case <-done:
		return nil
	}
}

// shutdownNotify waits for every subscriber done channel to close and then closes done
func shutdownNotify(done chan struct{}, all []chan struct{}) {
	var wg sync.WaitGroup
	for _, ch := range all {
		wg.Add(1)
		go func(c chan struct{}) {
			defer wg.Done()
			<-c
		}(ch)
	}
	wg.Wait()
	close(done)
}
