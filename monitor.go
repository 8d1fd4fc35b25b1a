// Package spc monitors temperature and humidity readings with statistical process control.  Readings are grouped
// into fixed-size samples and the sample means and ranges are checked against the Western Electric run rules.
package spc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/BTBurke/spc/pkg/eventbus"
	"github.com/BTBurke/spc/pkg/fsm"
	"github.com/BTBurke/spc/pkg/metric"
	"github.com/BTBurke/spc/pkg/sample"
	"github.com/BTBurke/spc/pkg/stat"
	"github.com/BTBurke/spc/pkg/store"
)

// MinimumSamples is the number of complete samples needed before a collection can be analyzed
const MinimumSamples = 5

var (
	// ErrNoData is returned when a collection holds no readings
	ErrNoData = errors.New("no readings available")
	// ErrInsufficientData is returned when analyzing a collection with fewer than MinimumSamples complete samples
	ErrInsufficientData = errors.New("insufficient data for analysis")
	// ErrNoLimits is returned when analyzing without control limits
	ErrNoLimits = errors.New("no control limits configured")
	// ErrInvalidReading is returned for readings that are not finite numbers
	ErrInvalidReading = errors.New("reading must be a finite number")
)

// Monitor ingests readings into per-kind sample collections and analyzes them.  It is safe for concurrent use.
type Monitor struct {
	store    store.Store
	bus      *eventbus.EventBus
	machines map[sample.Kind]*fsm.Machine
	log      *slog.Logger
	reporter ErrorReporter
	counts   *metric.Counters
}

// MonitorOption configures a monitor
type MonitorOption func(m *Monitor) error

// WithLogger sets the logger.  Without it nothing is logged.
func WithLogger(l *slog.Logger) MonitorOption {
	return func(m *Monitor) error {
		if l == nil {
			return fmt.Errorf("logger must not be nil")
		}
		m.log = l
		return nil
	}
}

// WithErrorReporter forwards unexpected storage failures to r
func WithErrorReporter(r ErrorReporter) MonitorOption {
	return func(m *Monitor) error {
		if r == nil {
			return fmt.Errorf("error reporter must not be nil")
		}
		m.reporter = r
		return nil
	}
}

// NewMonitor returns a monitor over the store.  Every collection starts in the collecting state.
func NewMonitor(s store.Store, opts ...MonitorOption) (*Monitor, error) {
	m := &Monitor{
		store:    s,
		bus:      eventbus.New(),
		machines: make(map[sample.Kind]*fsm.Machine, len(sample.Kinds)),
		log:      discardLogger(),
		reporter: noReports{},
		counts:   metric.NewCounters(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	for _, kind := range sample.Kinds {
		machine, err := stat.NewProcessMachine(fsm.OnTransition(m.onTransition(kind)))
		if err != nil {
			return nil, err
		}
		m.machines[kind] = machine
	}
	return m, nil
}

func (m *Monitor) onTransition(kind sample.Kind) fsm.Hook {
	return func(from, to fsm.State) {
		m.log.Info("process state changed", "kind", kind, "from", from, "state", to)
		m.bus.Dispatch(eventbus.NewEvent(eventbus.StateChanged, series(kind, ""), StateChange{Kind: kind, From: from, To: to}))
	}
}

func (m *Monitor) machine(kind sample.Kind) (*fsm.Machine, error) {
	machine, ok := m.machines[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", sample.ErrUnknownKind, kind)
	}
	return machine, nil
}

// series names the charted series of a collection, e.g. temperature_xbar[chart=X kind=temperature]
func series(kind sample.Kind, chart stat.Chart) metric.Name {
	labels := map[string]string{"kind": string(kind)}
	switch chart {
	case stat.XBar:
		return metric.NewName(string(kind)+"_xbar", labels).With("chart", string(chart))
	case stat.Range:
		return metric.NewName(string(kind)+"_range", labels).With("chart", string(chart))
	}
	return metric.NewName(string(kind), labels)
}

// count names a per-process tally, e.g. readings_ingested[kind=humidity]
func count(name string, kind sample.Kind) metric.Name {
	return metric.NewName(name, map[string]string{"kind": string(kind)})
}

// Counts returns the readings, closed samples and rule violations tallied by this monitor since it was created
func (m *Monitor) Counts() map[string]int {
	return m.counts.Snapshot()
}

// fail logs and reports an unexpected storage error and publishes it on the bus
func (m *Monitor) fail(kind sample.Kind, op string, err error) error {
	err = fmt.Errorf("%s %s: %w", op, kind, err)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	m.log.Error("storage failure", "kind", kind, "op", op, "err", err)
	m.reporter.ReportError(err)
	m.bus.Dispatch(eventbus.NewEvent(eventbus.StoreError, series(kind, ""), err))
	return err
}

// IngestResult reports where a reading landed
type IngestResult struct {
	Kind         sample.Kind `json:"kind"`
	Value        float64     `json:"value"`
	SampleIndex  int         `json:"sample_number"`
	Position     int         `json:"position_in_sample"`
	Complete     bool        `json:"sample_complete"`
	TotalSamples int         `json:"total_samples"`
}

// SampleClosed is the payload of a sample_closed event
type SampleClosed struct {
	Kind  sample.Kind
	Index int
	Mean  float64
	Range float64
}

// Ingest appends one reading to the collection of its kind.  The find-or-create-append-save sequence runs as one
// atomic store update.
func (m *Monitor) Ingest(ctx context.Context, kind sample.Kind, r sample.Reading) (IngestResult, error) {
	if _, err := m.machine(kind); err != nil {
		return IngestResult{}, err
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return IngestResult{}, fmt.Errorf("%w: %v", ErrInvalidReading, r.Value)
	}

	var pos sample.Position
	c, err := m.store.Update(ctx, kind, func(c *sample.Collection) error {
		pos = c.Ingest(r)
		return nil
	})
	if err != nil {
		return IngestResult{}, m.fail(kind, "ingest", err)
	}

	m.counts.Add(count("readings_ingested", kind), 1)
	m.log.Debug("reading ingested", "kind", kind, "value", r.Value, "sample", pos.Index, "position", pos.Position)
	if pos.Complete {
		closed := SampleClosed{Kind: kind, Index: pos.Index}
		for _, s := range c.Summaries(true) {
			if s.Index == pos.Index {
				closed.Mean, closed.Range = s.Mean, s.Range
			}
		}
		m.counts.Add(count("samples_closed", kind), 1)
		m.log.Info("sample closed", "kind", kind, "sample", pos.Index, "mean", closed.Mean, "range", closed.Range)
		name := series(kind, "").With("sample", strconv.Itoa(pos.Index)).Annotate("complete")
		m.bus.Dispatch(eventbus.NewEvent(eventbus.SampleClosed, name, closed))
	}

	return IngestResult{
		Kind:         kind,
		Value:        r.Value,
		SampleIndex:  pos.Index,
		Position:     pos.Position,
		Complete:     pos.Complete,
		TotalSamples: c.Len(),
	}, nil
}

// CombinedResult reports where a paired temperature and humidity reading landed
type CombinedResult struct {
	Temperature IngestResult `json:"temperature"`
	Humidity    IngestResult `json:"humidity"`
}

// IngestCombined records a temperature and a humidity reading taken together.  The collections are independent; a
// failure ingesting humidity leaves the temperature reading in place.
func (m *Monitor) IngestCombined(ctx context.Context, temperature, humidity float64, ts *time.Time) (CombinedResult, error) {
	reading := func(v float64) sample.Reading {
		r := sample.NewReading(v)
		if ts != nil {
			r = r.At(*ts)
		}
		return r
	}
	var out CombinedResult
	if math.IsNaN(humidity) || math.IsInf(humidity, 0) {
		return out, fmt.Errorf("%w: humidity %v", ErrInvalidReading, humidity)
	}
	t, err := m.Ingest(ctx, sample.Temperature, reading(temperature))
	if err != nil {
		return out, err
	}
	out.Temperature = t
	h, err := m.Ingest(ctx, sample.Humidity, reading(humidity))
	if err != nil {
		return out, err
	}
	out.Humidity = h
	return out, nil
}

// LatestResult is the most recent reading of a collection
type LatestResult struct {
	Kind         sample.Kind `json:"kind"`
	Value        float64     `json:"value"`
	Timestamp    *time.Time  `json:"timestamp,omitempty"`
	SampleIndex  int         `json:"sample_number"`
	Position     int         `json:"position_in_sample"`
	SamplesCount int         `json:"samples_count"`
}

// Latest returns the most recent reading, or ErrNoData
func (m *Monitor) Latest(ctx context.Context, kind sample.Kind) (LatestResult, error) {
	c, err := m.load(ctx, kind)
	if err != nil {
		return LatestResult{}, err
	}
	r, s, ok := c.Latest()
	if !ok {
		return LatestResult{}, fmt.Errorf("%w for %s", ErrNoData, kind)
	}
	return LatestResult{
		Kind:         kind,
		Value:        r.Value,
		Timestamp:    r.Timestamp,
		SampleIndex:  s.Index,
		Position:     s.Len(),
		SamplesCount: c.Len(),
	}, nil
}

func (m *Monitor) load(ctx context.Context, kind sample.Kind) (*sample.Collection, error) {
	if _, err := m.machine(kind); err != nil {
		return nil, err
	}
	c, err := m.store.Load(ctx, kind)
	if err != nil {
		return nil, m.fail(kind, "load", err)
	}
	return c, nil
}

// History lists stored samples in their persisted shape
type History struct {
	Kind          sample.Kind     `json:"kind"`
	Samples       []sample.Record `json:"samples"`
	TotalSamples  int             `json:"total_samples"`
	TotalReadings int             `json:"total_readings"`
	CurrentSample *sample.Record  `json:"current_sample"`
}

// History returns the last limit samples, or all samples when limit < 1
func (m *Monitor) History(ctx context.Context, kind sample.Kind, limit int) (History, error) {
	c, err := m.load(ctx, kind)
	if err != nil {
		return History{}, err
	}
	h := History{
		Kind:          kind,
		Samples:       make([]sample.Record, 0),
		TotalSamples:  c.Len(),
		TotalReadings: c.TotalReadings(),
	}
	for _, s := range c.Tail(limit) {
		if s != nil {
			h.Samples = append(h.Samples, s.Record())
		}
	}
	if n := len(h.Samples); n > 0 && c.Len() > 0 {
		last := h.Samples[n-1]
		h.CurrentSample = &last
	}
	return h, nil
}

// CurrentSample describes the last sample of a collection
type CurrentSample struct {
	Number        int  `json:"number"`
	ReadingsCount int  `json:"readings_count"`
	IsComplete    bool `json:"is_complete"`
}

// CollectionStatus summarizes one collection
type CollectionStatus struct {
	TotalSamples    int            `json:"total_samples"`
	CompleteSamples int            `json:"complete_samples"`
	TotalReadings   int            `json:"total_readings"`
	CurrentSample   *CurrentSample `json:"current_sample"`
	MinimumRequired int            `json:"minimum_required"`
	CanAnalyze      bool           `json:"can_analyze"`
	State           fsm.State      `json:"state"`
}

// Status summarizes every collection
type Status struct {
	Collections               map[sample.Kind]CollectionStatus `json:"collections"`
	CombinedAnalysisAvailable bool                             `json:"combined_analysis_available"`
	Counts                    map[string]int                   `json:"session_counts"`
}

// Status reports sample counts, analysis readiness and process state of every collection
func (m *Monitor) Status(ctx context.Context) (Status, error) {
	out := Status{
		Collections:               make(map[sample.Kind]CollectionStatus, len(sample.Kinds)),
		CombinedAnalysisAvailable: true,
		Counts:                    m.Counts(),
	}
	for _, kind := range sample.Kinds {
		c, err := m.load(ctx, kind)
		if err != nil {
			return Status{}, err
		}
		st := CollectionStatus{
			TotalSamples:    c.Len(),
			CompleteSamples: c.Complete(),
			TotalReadings:   c.TotalReadings(),
			MinimumRequired: MinimumSamples,
			CanAnalyze:      c.Complete() >= MinimumSamples,
			State:           m.machines[kind].State(),
		}
		if samples := c.Tail(1); len(samples) == 1 && samples[0] != nil {
			st.CurrentSample = &CurrentSample{
				Number:        samples[0].Index,
				ReadingsCount: samples[0].Len(),
				IsComplete:    samples[0].Len() >= c.Size(),
			}
		}
		out.Collections[kind] = st
		out.CombinedAnalysisAvailable = out.CombinedAnalysisAvailable && st.CanAnalyze
	}
	return out, nil
}
