package spc

import (
	"log/slog"
	"testing"
	"time"

	"github.com/BTBurke/spc/pkg/sample"
	"github.com/BTBurke/spc/pkg/stat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	c, errs := NewConfig()
	require.Empty(t, errs)
	assert.Equal(t, sample.DefaultSize, c.SampleSize)
	assert.Equal(t, "data", c.DataDir)
	assert.Equal(t, slog.LevelInfo, c.LogLevel)
	assert.Equal(t, 5*time.Second, c.ReadInterval)
	assert.Empty(t, c.Limits)
}

func TestConfigOptions(t *testing.T) {
	tt := []struct {
		name   string
		option ConfigOption
		check  func(t *testing.T, c *Config)
		err    bool
	}{
		{name: "sample size", option: SampleSize("8"), check: func(t *testing.T, c *Config) { assert.Equal(t, 8, c.SampleSize) }},
		{name: "zero sample size", option: SampleSize("0"), err: true},
		{name: "bad sample size", option: SampleSize("five"), err: true},
		{name: "empty data dir", option: DataDir(" "), err: true},
		{name: "redis db", option: RedisDB("3"), check: func(t *testing.T, c *Config) { assert.Equal(t, 3, c.RedisDB) }},
		{name: "negative redis db", option: RedisDB("-1"), err: true},
		{name: "retries", option: RetryAttempts("0"), check: func(t *testing.T, c *Config) { assert.Equal(t, 0, c.RetryAttempts) }},
		{name: "log level", option: LogLevel("WARN"), check: func(t *testing.T, c *Config) { assert.Equal(t, slog.LevelWarn, c.LogLevel) }},
		{name: "bad log level", option: LogLevel("loud"), err: true},
		{name: "rollbar", option: RollbarToken("abc"), check: func(t *testing.T, c *Config) { assert.Equal(t, "abc", c.RollbarToken) }},
		{name: "interval", option: ReadInterval("1m"), check: func(t *testing.T, c *Config) { assert.Equal(t, time.Minute, c.ReadInterval) }},
		{name: "negative interval", option: ReadInterval("-1s"), err: true},
		{name: "limits", option: Limits(sample.Humidity, stat.Range, stat.Limits{CL: 4, UCL: 10}), check: func(t *testing.T, c *Config) {
			assert.Equal(t, ChartLimits{R: stat.Limits{CL: 4, UCL: 10}}, c.Limits[sample.Humidity])
		}},
		{name: "inverted limits", option: Limits(sample.Humidity, stat.XBar, stat.Limits{CL: 4, UCL: 1, LCL: 6}), err: true},
		{name: "unknown chart", option: Limits(sample.Humidity, stat.Chart("P"), stat.Limits{}), err: true},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			c, errs := NewConfig(tc.option)
			if tc.err {
				assert.Len(t, errs, 1)
				assert.Nil(t, c)
				return
			}
			require.Empty(t, errs)
			tc.check(t, c)
		})
	}
}

func TestConfigCollectsAllErrors(t *testing.T) {
	_, errs := NewConfig(SampleSize("x"), LogLevel("y"), DataDir("ok"))
	assert.Len(t, errs, 2)
}

func TestErrorReporterSelection(t *testing.T) {
	c, _ := NewConfig(RollbarToken("abc"))
	assert.IsType(t, errorService{}, NewErrorReporter(c))

	c, _ = NewConfig(RollbarToken("abc"), NoErrorReports())
	assert.IsType(t, noReports{}, NewErrorReporter(c))

	c, _ = NewConfig()
	assert.IsType(t, noReports{}, NewErrorReporter(c))
}
