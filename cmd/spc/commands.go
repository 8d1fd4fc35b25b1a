package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/BTBurke/spc"
	"github.com/BTBurke/spc/pkg/eventbus"
	"github.com/BTBurke/spc/pkg/rng"
	"github.com/BTBurke/spc/pkg/sample"
	"github.com/spf13/pflag"
)

// command runs one subcommand and returns the value printed as JSON, or nil to print nothing
type command func(ctx context.Context, e *env, args []string) (interface{}, error)

var commands = map[string]command{
	"ingest":   ingest,
	"combined": combined,
	"latest":   latest,
	"history":  history,
	"status":   status,
	"analyze":  analyze,
	"clear":    clearCollections,
	"simulate": simulate,
}

func flagSet(name, usage string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Printf("Usage of spc %s:\nspc <options> %s %s\n\n%s", name, name, usage, fs.FlagUsagesWrapped(10))
	}
	return fs
}

func kindFlag(fs *pflag.FlagSet) *string {
	return fs.StringP("kind", "k", string(sample.Temperature), "Measurement kind: temperature or humidity")
}

func parseValues(args []string) ([]float64, error) {
	out := make([]float64, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("reading %q is not a number", a)
		}
		out = append(out, v)
	}
	return out, nil
}

func ingest(ctx context.Context, e *env, args []string) (interface{}, error) {
	fs := flagSet("ingest", "[--kind K] VALUE...")
	k := kindFlag(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	kind, err := sample.ParseKind(*k)
	if err != nil {
		return nil, err
	}
	values, err := parseValues(fs.Args())
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no readings given")
	}

	results := make([]spc.IngestResult, 0, len(values))
	for _, v := range values {
		r, err := e.monitor.Ingest(ctx, kind, sample.NewReading(v).At(time.Now()))
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

func combined(ctx context.Context, e *env, args []string) (interface{}, error) {
	fs := flagSet("combined", "TEMPERATURE HUMIDITY")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	values, err := parseValues(fs.Args())
	if err != nil {
		return nil, err
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("combined takes a temperature and a humidity reading, got %d values", len(values))
	}
	now := time.Now()
	return e.monitor.IngestCombined(ctx, values[0], values[1], &now)
}

func latest(ctx context.Context, e *env, args []string) (interface{}, error) {
	fs := flagSet("latest", "[--kind K]")
	k := kindFlag(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	kind, err := sample.ParseKind(*k)
	if err != nil {
		return nil, err
	}
	return e.monitor.Latest(ctx, kind)
}

func history(ctx context.Context, e *env, args []string) (interface{}, error) {
	fs := flagSet("history", "[--kind K] [--limit N]")
	k := kindFlag(fs)
	limit := fs.IntP("limit", "n", 0, "Only show the last N samples")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	kind, err := sample.ParseKind(*k)
	if err != nil {
		return nil, err
	}
	return e.monitor.History(ctx, kind, *limit)
}

func status(ctx context.Context, e *env, args []string) (interface{}, error) {
	fs := flagSet("status", "")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return e.monitor.Status(ctx)
}

// limitFlags overrides configured control limits from the command line
type limitFlags struct {
	fs     *pflag.FlagSet
	values map[string]*float64
}

func newLimitFlags(fs *pflag.FlagSet) *limitFlags {
	l := &limitFlags{fs: fs, values: make(map[string]*float64)}
	for _, chart := range []string{"x", "r"} {
		for _, line := range []string{"cl", "ucl", "lcl"} {
			name := chart + "-" + line
			l.values[name] = fs.Float64(name, 0, fmt.Sprintf("%s of the %s chart", line, chart))
		}
	}
	return l
}

func (l *limitFlags) changed() bool {
	for name := range l.values {
		if l.fs.Changed(name) {
			return true
		}
	}
	return false
}

func (l *limitFlags) apply(limits spc.ChartLimits) spc.ChartLimits {
	set := func(name string, dst *float64) {
		if l.fs.Changed(name) {
			*dst = *l.values[name]
		}
	}
	set("x-cl", &limits.X.CL)
	set("x-ucl", &limits.X.UCL)
	set("x-lcl", &limits.X.LCL)
	set("r-cl", &limits.R.CL)
	set("r-ucl", &limits.R.UCL)
	set("r-lcl", &limits.R.LCL)
	return limits
}

func analyze(ctx context.Context, e *env, args []string) (interface{}, error) {
	fs := flagSet("analyze", "[--kind K | --all] [--x-cl N --x-ucl N --x-lcl N --r-cl N --r-ucl N --r-lcl N]")
	k := kindFlag(fs)
	all := fs.Bool("all", false, "Analyze every collection together")
	overrides := newLimitFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *all {
		if overrides.changed() {
			return nil, fmt.Errorf("limit flags apply to a single --kind and cannot be combined with --all")
		}
		limits := make(map[sample.Kind]spc.ChartLimits, len(sample.Kinds))
		for _, kind := range sample.Kinds {
			limits[kind] = e.cfg.Limits[kind]
		}
		return e.monitor.AnalyzeCombined(ctx, limits)
	}
	kind, err := sample.ParseKind(*k)
	if err != nil {
		return nil, err
	}
	return e.monitor.Analyze(ctx, kind, overrides.apply(e.cfg.Limits[kind]))
}

func clearCollections(ctx context.Context, e *env, args []string) (interface{}, error) {
	fs := flagSet("clear", "[--kind K | --all]")
	k := kindFlag(fs)
	all := fs.Bool("all", false, "Clear every collection")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *all {
		return nil, e.monitor.ClearAll(ctx)
	}
	kind, err := sample.ParseKind(*k)
	if err != nil {
		return nil, err
	}
	return nil, e.monitor.Clear(ctx, kind)
}

// simulate sends paired readings drawn from normal distributions until count readings are sent or ctx is done
func simulate(ctx context.Context, e *env, args []string) (interface{}, error) {
	fs := flagSet("simulate", "[--count N] [--interval D]")
	count := fs.Int("count", 0, "Number of readings to send, 0 runs until interrupted")
	every := fs.Duration("interval", e.cfg.ReadInterval, "Delay between readings")
	tempMean := fs.Float64("temperature-mean", 25, "Mean simulated temperature")
	tempSD := fs.Float64("temperature-sd", 5, "Standard deviation of simulated temperature")
	humMean := fs.Float64("humidity-mean", 60, "Mean simulated humidity")
	humSD := fs.Float64("humidity-sd", 10, "Standard deviation of simulated humidity")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *every <= 0 {
		return nil, fmt.Errorf("delay between readings must be positive")
	}

	temperature := rng.Rounded{RNG: rng.NewNormalRNG(*tempMean, *tempSD), Places: 2}
	humidity := rng.Rounded{RNG: rng.NewNormalRNG(*humMean, *humSD), Places: 2}

	events, done := e.monitor.Subscribe(eventbus.SampleClosed.Topic(), eventbus.StateChanged.Topic())
	go func() {
		defer done()
		for evt := range events {
			e.log.Debug("event", "type", evt.Type, "series", evt.Series.String(), "id", evt.ID)
		}
	}()

	defer func() {
		e.log.Info("simulation finished", "counts", e.monitor.Counts())
	}()

	enc := json.NewEncoder(e.out)
	ticker := time.NewTicker(*every)
	defer ticker.Stop()
	for sent := 0; *count == 0 || sent < *count; sent++ {
		if sent > 0 {
			select {
			case <-ctx.Done():
				return nil, nil
			case <-ticker.C:
			}
		}
		now := time.Now()
		r, err := e.monitor.IngestCombined(ctx, temperature.Rand(), humidity.Rand(), &now)
		if err != nil {
			return nil, err
		}
		if err := enc.Encode(r); err != nil {
			return nil, err
		}
		e.analyzeClosed(ctx, r)
	}
	return nil, nil
}

// analyzeClosed runs an analysis whenever a reading closes a sample of a collection with configured limits
func (e *env) analyzeClosed(ctx context.Context, r spc.CombinedResult) {
	for _, res := range []spc.IngestResult{r.Temperature, r.Humidity} {
		limits, ok := e.cfg.Limits[res.Kind]
		if !res.Complete || !ok {
			continue
		}
		a, err := e.monitor.Analyze(ctx, res.Kind, limits)
		if err != nil {
			e.log.Debug("analysis skipped", "kind", res.Kind, "err", err)
			continue
		}
		if !a.InControl() {
			e.log.Warn("process out of control", "kind", res.Kind, "x", a.X.Violations, "r", a.R.Violations)
		}
	}
}
