package eventbus

import (
	"time"

	"github.com/BTBurke/spc/pkg/metric"
	"github.com/google/uuid"
)

// EventType represents the type of event being passed on the bus.  It allows handlers receiving the event to decide
// how to interpret Data.
type EventType string

const (
	// SampleClosed is dispatched when a reading completes a sample
	SampleClosed EventType = "sample_closed"
	// RuleViolated is dispatched once per violated rule per analysis
	RuleViolated EventType = "rule_violated"
	// StateChanged is dispatched when a collection moves between process states
	StateChanged EventType = "state_changed"
	// StoreError is dispatched when the storage layer fails unexpectedly
	StoreError EventType = "store_error"
)

// Event is passed on the event bus to every subscriber on the topic
type Event struct {
	ID   string
	Type EventType
	Time time.Time
	// Series labels the event with the collection and chart it concerns
	Series metric.Name
	Data   interface{}
}

// NewEvent returns an event with a fresh random ID
func NewEvent(t EventType, series metric.Name, data interface{}) Event {
	return Event{
		ID:     uuid.NewString(),
		Type:   t,
		Time:   time.Now().UTC(),
		Series: series,
		Data:   data,
	}
}

// Topic returns the topic events of this type are published on
func (t EventType) Topic() Topic {
	return Topic(t)
}
