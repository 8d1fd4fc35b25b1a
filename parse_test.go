package spc

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BTBurke/spc/pkg/sample"
	"github.com/BTBurke/spc/pkg/stat"
	"github.com/go-yaml/yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createComparisonConfigs applies both option lists to default configs so options can be compared by effect
func createComparisonConfigs(expected []ConfigOption, received []ConfigOption) (*Config, *Config) {
	e, _ := NewConfig(expected...)
	r, _ := NewConfig(received...)
	return e, r
}

func TestParseFlags(t *testing.T) {
	tt := []struct {
		Name     string
		Cmdline  string
		Expected []ConfigOption
		Args     []string
		Error    bool
	}{
		{Name: "data-dir", Cmdline: "--data-dir /var/spc status", Expected: []ConfigOption{DataDir("/var/spc")}, Args: []string{"status"}},
		{Name: "redis", Cmdline: "--redis localhost:6379 --redis-db 2 status", Expected: []ConfigOption{RedisAddr("localhost:6379"), RedisDB("2")}, Args: []string{"status"}},
		{Name: "sample-size", Cmdline: "--sample-size 4 status", Expected: []ConfigOption{SampleSize("4")}, Args: []string{"status"}},
		{Name: "retries", Cmdline: "--retries 3 status", Expected: []ConfigOption{RetryAttempts("3")}, Args: []string{"status"}},
		{Name: "log-level", Cmdline: "--log-level debug status", Expected: []ConfigOption{LogLevel("debug")}, Args: []string{"status"}},
		{Name: "no-error-reports", Cmdline: "--no-error-reports status", Expected: []ConfigOption{NoErrorReports()}, Args: []string{"status"}},
		{Name: "interval", Cmdline: "--interval 2s simulate", Expected: []ConfigOption{ReadInterval("2s")}, Args: []string{"simulate"}},
		{Name: "command flags are left alone", Cmdline: "ingest --kind temperature 25.5", Expected: []ConfigOption{}, Args: []string{"ingest", "--kind", "temperature", "25.5"}},
		{Name: "error on unknown flag", Cmdline: "--does-not-exist", Error: true},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			pf := createFlagSet()
			args, options, err := parse(strings.Split(tc.Cmdline, " "), pf)
			if tc.Error {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			expected, received := createComparisonConfigs(tc.Expected, options)
			assert.Equal(t, expected, received)
			assert.Equal(t, tc.Args, args)
		})
	}
}

func writeYAML(t *testing.T, v interface{}) string {
	t.Helper()
	y, err := yaml.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "spc.yml")
	require.NoError(t, os.WriteFile(path, y, 0o644))
	return path
}

func TestParseYAML(t *testing.T) {
	tt := []struct {
		Name     string
		Yaml     map[string]interface{}
		Expected []ConfigOption
		Error    bool
	}{
		{Name: "data-dir", Yaml: map[string]interface{}{"data-dir": "/var/spc"}, Expected: []ConfigOption{DataDir("/var/spc")}},
		{Name: "sample-size", Yaml: map[string]interface{}{"sample-size": 4}, Expected: []ConfigOption{SampleSize("4")}},
		{Name: "no-error-reports", Yaml: map[string]interface{}{"no-error-reports": true}, Expected: []ConfigOption{NoErrorReports()}},
		{Name: "false bool is ignored", Yaml: map[string]interface{}{"no-error-reports": false}, Expected: []ConfigOption{}},
		{Name: "interval", Yaml: map[string]interface{}{"interval": "1m"}, Expected: []ConfigOption{ReadInterval("1m")}},
		{Name: "limits", Yaml: map[string]interface{}{"limits": map[string]interface{}{
			"temperature": map[string]interface{}{
				"x": map[string]float64{"cl": 25, "ucl": 31, "lcl": 19},
				"r": map[string]float64{"cl": 11.6, "ucl": 24.5, "lcl": 0},
			},
		}}, Expected: []ConfigOption{
			Limits(sample.Temperature, stat.XBar, stat.Limits{CL: 25, UCL: 31, LCL: 19}),
			Limits(sample.Temperature, stat.Range, stat.Limits{CL: 11.6, UCL: 24.5, LCL: 0}),
		}},
		{Name: "unknown kind in limits", Yaml: map[string]interface{}{"limits": map[string]interface{}{"pressure": map[string]interface{}{}}}, Error: true},
		{Name: "error on unknown key", Yaml: map[string]interface{}{"does-not-exist": "test"}, Error: true},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			path := writeYAML(t, tc.Yaml)
			pf := createFlagSet()
			_, options, err := parse([]string{"-c", path}, pf)
			if tc.Error {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			expected, received := createComparisonConfigs(tc.Expected, options)
			assert.Equal(t, expected, received)
		})
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeYAML(t, map[string]interface{}{"data-dir": "/from/file", "sample-size": 3})
	_, options, err := parse([]string{"--data-dir", "/from/flag", "-c", path, "status"}, createFlagSet())
	require.NoError(t, err)
	c, errs := NewConfig(options...)
	require.Empty(t, errs)
	assert.Equal(t, "/from/flag", c.DataDir)
	assert.Equal(t, 3, c.SampleSize)
}

func TestParseEnv(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("SPC_DATA_DIR=/from/env\nSPC_SAMPLE_SIZE=4\nUNRELATED=1\n"), 0o644))
	t.Setenv("SPC_SAMPLE_SIZE", "6")
	t.Setenv("SPC_READ_INTERVAL", "250ms")

	options, err := ParseEnv(env, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	c, errs := NewConfig(options...)
	require.Empty(t, errs)
	assert.Equal(t, "/from/env", c.DataDir)
	assert.Equal(t, 6, c.SampleSize)
	assert.Equal(t, 250*time.Millisecond, c.ReadInterval)
	assert.Equal(t, slog.LevelInfo, c.LogLevel)
}
