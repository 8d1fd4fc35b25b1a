package spc

import (
	"context"
	"testing"
	"time"

	"github.com/BTBurke/spc/pkg/sample"
	"github.com/BTBurke/spc/pkg/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// test helper silences superfluous logging calls from the mock package
type foo struct {
	t *testing.T
}

func (f foo) Logf(format string, args ...interface{}) {
	// makes mock calls to log a no op to prevent a lot of superfluous logging calls
}
func (f foo) Errorf(format string, args ...interface{}) {
	f.t.Errorf(format, args...)
}
func (f foo) FailNow() {
	f.t.FailNow()
}

func silenceT(t *testing.T) mock.TestingT {
	return foo{t}
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Load(_ context.Context, kind sample.Kind) (*sample.Collection, error) {
	args := m.Called(kind)
	c, _ := args.Get(0).(*sample.Collection)
	return c, args.Error(1)
}

func (m *mockStore) Update(_ context.Context, kind sample.Kind, fn func(*sample.Collection) error) (*sample.Collection, error) {
	args := m.Called(kind)
	c, _ := args.Get(0).(*sample.Collection)
	return c, args.Error(1)
}

func (m *mockStore) Clear(_ context.Context, kind sample.Kind) error {
	return m.Called(kind).Error(0)
}

type mockReporter struct {
	mock.Mock
}

func (m *mockReporter) ReportError(err error) {
	m.Called(err)
}

func newTestMonitor(t *testing.T, opts ...MonitorOption) (*Monitor, store.Store) {
	s := store.NewMemory()
	m, err := NewMonitor(s, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		m.Close(ctx)
	})
	return m, s
}

func fill(t *testing.T, m *Monitor, kind sample.Kind, values ...float64) {
	t.Helper()
	for _, v := range values {
		_, err := m.Ingest(context.Background(), kind, sample.NewReading(v))
		require.NoError(t, err)
	}
}

// samples repeats the readings of one sample n times
func samples(n int, readings ...float64) []float64 {
	var out []float64
	for i := 0; i < n; i++ {
		out = append(out, readings...)
	}
	return out
}

// drain collects n events or fails after a timeout
func drain(t *testing.T, c <-chan Event, n int) []Event {
	t.Helper()
	var out []Event
	for len(out) < n {
		select {
		case e, ok := <-c:
			require.True(t, ok, "event channel closed")
			out = append(out, e)
		case <-time.After(2 * time.Second):
			t.Fatalf("received %d of %d events", len(out), n)
		}
	}
	return out
}
