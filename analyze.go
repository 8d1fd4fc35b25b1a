package spc

import (
	"context"
	"fmt"

	"github.com/BTBurke/spc/pkg/eventbus"
	"github.com/BTBurke/spc/pkg/fsm"
	"github.com/BTBurke/spc/pkg/sample"
	"github.com/BTBurke/spc/pkg/stat"
)

// ChartAnalysis is the rule report of one chart
type ChartAnalysis struct {
	Chart       stat.Chart    `json:"chart"`
	Limits      stat.Limits   `json:"limits"`
	Sigma       float64       `json:"sigma"`
	Points      []float64     `json:"points"`
	OutOfLimits int           `json:"out_of_limits"`
	Rules       stat.Report   `json:"rules"`
	Violations  []stat.RuleID `json:"violations"`
}

// Analysis is the X and R chart analysis of one collection
type Analysis struct {
	Kind            sample.Kind   `json:"kind"`
	TotalSamples    int           `json:"total_samples"`
	AnalyzedSamples int           `json:"analyzed_samples"`
	X               ChartAnalysis `json:"x"`
	R               ChartAnalysis `json:"r"`
	State           fsm.State     `json:"state"`
}

// InControl is true when neither chart violates a rule
func (a Analysis) InControl() bool {
	return a.X.Rules.InControl() && a.R.Rules.InControl()
}

// RuleViolation is the payload of a rule_violated event
type RuleViolation struct {
	Kind  sample.Kind
	Chart stat.Chart
	Rule  stat.RuleID
	Name  string
}

// StateChange is the payload of a state_changed event
type StateChange struct {
	Kind sample.Kind
	From fsm.State
	To   fsm.State
}

// Analyze evaluates the complete samples of a collection against the run rules, charting sample means against the
// X limits and sample ranges against the R limits.  The collection moves to the in or out of control state.
func (m *Monitor) Analyze(ctx context.Context, kind sample.Kind, limits ChartLimits) (Analysis, error) {
	if err := limits.check(kind); err != nil {
		return Analysis{}, err
	}
	c, err := m.load(ctx, kind)
	if err != nil {
		return Analysis{}, err
	}
	return m.analyze(kind, c, limits)
}

func (m *Monitor) analyze(kind sample.Kind, c *sample.Collection, limits ChartLimits) (Analysis, error) {
	if n := c.Complete(); n < MinimumSamples {
		return Analysis{}, fmt.Errorf("%w: %s needs %d complete samples, found %d", ErrInsufficientData, kind, MinimumSamples, n)
	}

	summaries := c.Summaries(true)
	a := Analysis{
		Kind:            kind,
		TotalSamples:    c.Len(),
		AnalyzedSamples: len(summaries),
		X:               m.chart(kind, stat.XBar, sample.Means(summaries), limits.X),
		R:               m.chart(kind, stat.Range, sample.Ranges(summaries), limits.R),
	}

	machine := m.machines[kind]
	if err := machine.Transition(stat.StateFor(a.X.Rules, a.R.Rules)); err != nil {
		return Analysis{}, err
	}
	a.State = machine.State()
	m.log.Info("analysis complete", "kind", kind, "samples", a.AnalyzedSamples, "state", a.State,
		"x_violations", len(a.X.Violations), "r_violations", len(a.R.Violations))
	return a, nil
}

func (m *Monitor) chart(kind sample.Kind, chart stat.Chart, points []float64, limits stat.Limits) ChartAnalysis {
	ctx := limits.Context()
	report := stat.Evaluate(points, chart, ctx)
	out := ChartAnalysis{
		Chart:       chart,
		Limits:      limits,
		Sigma:       ctx.Sigma,
		Points:      points,
		OutOfLimits: stat.OutOfLimits(points, limits),
		Rules:       report,
		Violations:  report.Violated(),
	}
	name := series(kind, chart)
	m.counts.Add(count("rule_violations", kind).With("chart", string(chart)), uint(len(out.Violations)))
	for _, id := range out.Violations {
		m.log.Warn("rule violated", "kind", kind, "chart", chart, "rule", id, "name", report[id].Name)
		m.bus.Dispatch(eventbus.NewEvent(eventbus.RuleViolated, name.With("rule", string(id)), RuleViolation{
			Kind:  kind,
			Chart: chart,
			Rule:  id,
			Name:  report[id].Name,
		}))
	}
	return out
}

// CombinedAnalysis holds the analysis of every collection
type CombinedAnalysis struct {
	Analyses  map[sample.Kind]Analysis `json:"analyses"`
	InControl bool                     `json:"in_control"`
}

// AnalyzeCombined analyzes every collection.  Nothing is analyzed unless every collection has limits and enough
// complete samples.
func (m *Monitor) AnalyzeCombined(ctx context.Context, limits map[sample.Kind]ChartLimits) (CombinedAnalysis, error) {
	collections := make(map[sample.Kind]*sample.Collection, len(sample.Kinds))
	for _, kind := range sample.Kinds {
		if err := limits[kind].check(kind); err != nil {
			return CombinedAnalysis{}, err
		}
		c, err := m.load(ctx, kind)
		if err != nil {
			return CombinedAnalysis{}, err
		}
		if n := c.Complete(); n < MinimumSamples {
			return CombinedAnalysis{}, fmt.Errorf("%w: %s needs %d complete samples, found %d", ErrInsufficientData, kind, MinimumSamples, n)
		}
		collections[kind] = c
	}

	out := CombinedAnalysis{Analyses: make(map[sample.Kind]Analysis, len(collections)), InControl: true}
	for _, kind := range sample.Kinds {
		a, err := m.analyze(kind, collections[kind], limits[kind])
		if err != nil {
			return CombinedAnalysis{}, err
		}
		out.Analyses[kind] = a
		out.InControl = out.InControl && a.InControl()
	}
	return out, nil
}

// Clear removes every sample of a collection and returns it to the collecting state
func (m *Monitor) Clear(ctx context.Context, kind sample.Kind) error {
	machine, err := m.machine(kind)
	if err != nil {
		return err
	}
	if err := m.store.Clear(ctx, kind); err != nil {
		return m.fail(kind, "clear", err)
	}
	machine.Reset()
	m.counts.Reset("kind", string(kind))
	m.log.Info("collection cleared", "kind", kind)
	return nil
}

// ClearAll clears every collection
func (m *Monitor) ClearAll(ctx context.Context) error {
	for _, kind := range sample.Kinds {
		if err := m.Clear(ctx, kind); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe receives monitor events on the given topics, or every event when no topic is given.  See
// eventbus.EventBus.Subscribe for the shutdown protocol.
func (m *Monitor) Subscribe(topics ...eventbus.Topic) (<-chan Event, eventbus.ShutdownFunc) {
	return m.bus.Subscribe(topics...)
}

// Event is a notification published by the monitor
type Event = eventbus.Event

// Close shuts down the event bus, waiting for subscribers to finish until ctx is done
func (m *Monitor) Close(ctx context.Context) error {
	return m.bus.Shutdown(ctx)
}
