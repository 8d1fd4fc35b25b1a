package sample

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformed is returned when persisted samples cannot be turned into a well-formed collection
var ErrMalformed = errors.New("malformed sample record")

// Record is the persisted shape of one sample: a string identifier and the reading values.  A record whose Dados
// is null was stored without its reading list.
type Record struct {
	ID   string    `json:"Amostra"`
	Data []float64 `json:"Dados"`
}

// Records converts the collection into its persisted shape.  Timestamps are not persisted.
func (c *Collection) Records() []Record {
	out := make([]Record, 0, len(c.samples))
	for _, s := range c.samples {
		if s == nil {
			continue
		}
		out = append(out, s.Record())
	}
	return out
}

// Record converts one sample into its persisted shape
func (s *Sample) Record() Record {
	r := Record{ID: strconv.Itoa(s.Index)}
	if s.Readings != nil {
		r.Data = s.Values()
	}
	return r
}

// FromRecords validates persisted records and builds a collection from them.  Identifiers must number the records
// 1, 2, 3... in order, no record may hold more than size readings, and only the last record may hold fewer.  A
// record without its reading list is kept so numbering is preserved, but it is never reopened.
func FromRecords(size int, records []Record) (*Collection, error) {
	c := NewCollection(size)
	for i, r := range records {
		idx, err := strconv.Atoi(r.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d has identifier %q", ErrMalformed, i+1, r.ID)
		}
		if idx != i+1 {
			return nil, fmt.Errorf("%w: record %d is numbered %d", ErrMalformed, i+1, idx)
		}
		if len(r.Data) > c.size {
			return nil, fmt.Errorf("%w: sample %d holds %d readings, capacity is %d", ErrMalformed, idx, len(r.Data), c.size)
		}
		if r.Data != nil && len(r.Data) < c.size && i < len(records)-1 {
			return nil, fmt.Errorf("%w: sample %d is open with %d readings but is not the last sample", ErrMalformed, idx, len(r.Data))
		}

		s := &Sample{Index: idx}
		if r.Data != nil {
			s.Readings = make([]Reading, 0, c.size)
			for _, v := range r.Data {
				s.Readings = append(s.Readings, NewReading(v))
			}
		}
		c.samples = append(c.samples, s)
	}
	return c, nil
}
