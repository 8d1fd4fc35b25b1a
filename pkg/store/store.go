// Package store persists sample collections.  Every store applies Update atomically per collection kind, so
// concurrent ingests never lose a reading or open two samples at once.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BTBurke/spc/pkg/sample"
	"github.com/cenkalti/backoff"
)

// Store loads and atomically updates one collection per measurement kind
type Store interface {
	// Load returns the stored collection, empty if nothing has been stored
	Load(ctx context.Context, kind sample.Kind) (*sample.Collection, error)
	// Update loads the collection, applies fn and saves the result as one atomic step.  Nothing is saved if fn
	// returns an error.  fn may be called more than once when a store retries a conflicting write.
	Update(ctx context.Context, kind sample.Kind, fn func(*sample.Collection) error) (*sample.Collection, error)
	// Clear removes the stored collection
	Clear(ctx context.Context, kind sample.Kind) error
}

// ErrConflict is returned when an optimistic update keeps losing to concurrent writers
var ErrConflict = errors.New("store: concurrent update conflict")

const defaultRetries = 10

// Option configures a store
type Option func(*settings)

type settings struct {
	size    int
	retries int
}

// WithSampleSize sets the number of readings per sample used when decoding stored collections
func WithSampleSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.size = n
		}
	}
}

// WithRetries sets how many times a failed write or conflicting update is retried
func WithRetries(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.retries = n
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{size: sample.DefaultSize, retries: defaultRetries}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// retryPolicy backs off exponentially for at most retries attempts after the first, giving up when ctx is done
func (s settings) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.retries)), ctx)
}

// encode renders a collection in the persisted [{"Amostra":"1","Dados":[...]}] shape
func encode(c *sample.Collection) ([]byte, error) {
	return json.MarshalIndent(c.Records(), "", "  ")
}

// decode parses the persisted shape.  Empty input decodes to an empty collection.
func decode(size int, b []byte) (*sample.Collection, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return sample.NewCollection(size), nil
	}
	var records []sample.Record
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", sample.ErrMalformed, err)
	}
	return sample.FromRecords(size, records)
}
