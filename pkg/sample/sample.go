// Package sample groups a stream of scalar readings into fixed-size samples.  At most one sample in a collection is
// open (partially filled) and it is always the last one.
package sample

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BTBurke/spc/pkg/metric"
)

// DefaultSize is the number of readings in a closed sample
const DefaultSize = 5

// Kind is the measured quantity a collection holds.  Collections of different kinds share nothing.
type Kind string

const (
	Temperature Kind = "temperature"
	Humidity    Kind = "humidity"
)

// Kinds lists every supported measurement kind
var Kinds = []Kind{Temperature, Humidity}

// ErrUnknownKind is returned when parsing a measurement kind that is not supported
var ErrUnknownKind = errors.New("unknown measurement kind")

// ParseKind converts a case-insensitive name into a Kind
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Reading is a single measurement.  Timestamp is optional.
type Reading struct {
	Value     float64
	Timestamp *time.Time
}

// NewReading returns a reading without a timestamp
func NewReading(v float64) Reading {
	return Reading{Value: v}
}

// At returns a copy of the reading stamped with t
func (r Reading) At(t time.Time) Reading {
	return Reading{Value: r.Value, Timestamp: &t}
}

// Sample is a group of consecutive readings identified by a 1-based index.  A sample whose Readings is nil was
// loaded without its reading list; it can never be reopened.
type Sample struct {
	Index    int
	Readings []Reading
}

// Values returns the reading values in arrival order
func (s *Sample) Values() []float64 {
	out := make([]float64, len(s.Readings))
	for i, r := range s.Readings {
		out[i] = r.Value
	}
	return out
}

// Len returns the number of readings recorded in the sample
func (s *Sample) Len() int {
	return len(s.Readings)
}

// Mean returns the arithmetic mean of the sample readings
func (s *Sample) Mean() float64 {
	return metric.SampleAverage(s.Values())
}

// Range returns max - min of the sample readings
func (s *Sample) Range() float64 {
	return metric.SampleRange(s.Values())
}

func (s *Sample) acceptsReadings(size int) bool {
	return s != nil && s.Readings != nil && len(s.Readings) < size
}

func (s *Sample) clone() *Sample {
	if s == nil {
		return nil
	}
	out := &Sample{Index: s.Index}
	if s.Readings != nil {
		out.Readings = append(make([]Reading, 0, len(s.Readings)), s.Readings...)
	}
	return out
}
