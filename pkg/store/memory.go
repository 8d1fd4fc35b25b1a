package store

import (
	"context"
	"sync"

	"github.com/BTBurke/spc/pkg/sample"
)

var _ Store = &Memory{}

// Memory keeps collections in process.  Collections are held in their persisted record form so every load goes
// through the same validation as the other stores.
type Memory struct {
	settings

	mu    sync.Mutex
	locks map[sample.Kind]*sync.Mutex
	data  map[sample.Kind][]sample.Record
}

// NewMemory returns an empty in-process store
func NewMemory(opts ...Option) *Memory {
	return &Memory{
		settings: newSettings(opts),
		locks:    make(map[sample.Kind]*sync.Mutex),
		data:     make(map[sample.Kind][]sample.Record),
	}
}

func (m *Memory) lock(kind sample.Kind) func() {
	m.mu.Lock()
	l, ok := m.locks[kind]
	if !ok {
		l = &sync.Mutex{}
		m.locks[kind] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (m *Memory) records(kind sample.Kind) []sample.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[kind]
}

func (m *Memory) Load(_ context.Context, kind sample.Kind) (*sample.Collection, error) {
	unlock := m.lock(kind)
	defer unlock()
	return sample.FromRecords(m.size, m.records(kind))
}

func (m *Memory) Update(_ context.Context, kind sample.Kind, fn func(*sample.Collection) error) (*sample.Collection, error) {
	unlock := m.lock(kind)
	defer unlock()

	c, err := sample.FromRecords(m.size, m.records(kind))
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.data[kind] = c.Records()
	m.mu.Unlock()
	return c, nil
}

func (m *Memory) Clear(_ context.Context, kind sample.Kind) error {
	unlock := m.lock(kind)
	defer unlock()
	m.mu.Lock()
	delete(m.data, kind)
	m.mu.Unlock()
	return nil
}
