package spc

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/BTBurke/spc/pkg/sample"
	"github.com/BTBurke/spc/pkg/stat"
)

// Config is the runtime configuration of a monitor and its command line tool
type Config struct {
	SampleSize     int
	DataDir        string
	RedisAddr      string
	RedisDB        int
	RetryAttempts  int
	LogLevel       slog.Level
	NoErrorReports bool
	RollbarToken   string
	ReadInterval   time.Duration
	Limits         map[sample.Kind]ChartLimits
}

// ChartLimits are the control limits of the X and R charts of one collection
type ChartLimits struct {
	X stat.Limits `yaml:"x" json:"x"`
	R stat.Limits `yaml:"r" json:"r"`
}

// check returns ErrNoLimits unless both charts have limits.  An unset chart would be evaluated with a zero
// sigma and flag every nonzero point.
func (l ChartLimits) check(kind sample.Kind) error {
	noX, noR := l.X == (stat.Limits{}), l.R == (stat.Limits{})
	switch {
	case noX && noR:
		return fmt.Errorf("%w for %s", ErrNoLimits, kind)
	case noX:
		return fmt.Errorf("%w for the %s chart of %s", ErrNoLimits, stat.XBar, kind)
	case noR:
		return fmt.Errorf("%w for the %s chart of %s", ErrNoLimits, stat.Range, kind)
	}
	return nil
}

// ConfigOption sets one configuration value.  Options return an error instead of panicking on bad input so that
// every problem with a configuration can be reported at once.
type ConfigOption func(c *Config) error

// NewConfig applies options over the defaults.  All option errors are returned together.
func NewConfig(options ...ConfigOption) (*Config, []error) {
	c := &Config{
		SampleSize:    sample.DefaultSize,
		DataDir:       "data",
		RetryAttempts: 10,
		LogLevel:      slog.LevelInfo,
		ReadInterval:  5 * time.Second,
		Limits:        make(map[sample.Kind]ChartLimits),
	}

	var errors []error
	for _, option := range options {
		if err := option(c); err != nil {
			errors = append(errors, err)
		}
	}
	if len(errors) > 0 {
		return nil, errors
	}
	return c, nil
}

func SampleSize(size string) ConfigOption {
	return func(c *Config) error {
		n, err := strconv.Atoi(size)
		if err != nil || n < 1 {
			return fmt.Errorf("sample-size must be a positive integer, got %q", size)
		}
		c.SampleSize = n
		return nil
	}
}

func DataDir(dir string) ConfigOption {
	return func(c *Config) error {
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("data-dir must not be empty")
		}
		c.DataDir = dir
		return nil
	}
}

// RedisAddr stores collections in Redis at host:port instead of the data directory
func RedisAddr(addr string) ConfigOption {
	return func(c *Config) error {
		c.RedisAddr = addr
		return nil
	}
}

func RedisDB(db string) ConfigOption {
	return func(c *Config) error {
		n, err := strconv.Atoi(db)
		if err != nil || n < 0 {
			return fmt.Errorf("redis-db must be a non-negative integer, got %q", db)
		}
		c.RedisDB = n
		return nil
	}
}

// RetryAttempts sets how many times a failed write or conflicting update is retried
func RetryAttempts(attempts string) ConfigOption {
	return func(c *Config) error {
		n, err := strconv.Atoi(attempts)
		if err != nil || n < 0 {
			return fmt.Errorf("retries must be a non-negative integer, got %q", attempts)
		}
		c.RetryAttempts = n
		return nil
	}
}

// LogLevel accepts debug, info, warn or error
func LogLevel(level string) ConfigOption {
	return func(c *Config) error {
		var l slog.Level
		if err := l.UnmarshalText([]byte(level)); err != nil {
			return fmt.Errorf("unrecognized log level %q", level)
		}
		c.LogLevel = l
		return nil
	}
}

func NoErrorReports() ConfigOption {
	return func(c *Config) error {
		c.NoErrorReports = true
		return nil
	}
}

func RollbarToken(token string) ConfigOption {
	return func(c *Config) error {
		c.RollbarToken = token
		return nil
	}
}

// ReadInterval is the delay between simulated readings
func ReadInterval(interval string) ConfigOption {
	return func(c *Config) error {
		d, err := time.ParseDuration(interval)
		if err != nil || d <= 0 {
			return fmt.Errorf("unrecognized read interval %q", interval)
		}
		c.ReadInterval = d
		return nil
	}
}

// Limits sets the control limits of one chart of one collection
func Limits(kind sample.Kind, chart stat.Chart, l stat.Limits) ConfigOption {
	return func(c *Config) error {
		if l.UCL < l.CL || l.LCL > l.CL {
			return fmt.Errorf("%s %s limits must satisfy lcl <= cl <= ucl, got %+v", kind, chart, l)
		}
		cl := c.Limits[kind]
		switch chart {
		case stat.XBar:
			cl.X = l
		case stat.Range:
			cl.R = l
		default:
			return fmt.Errorf("unknown chart %q", chart)
		}
		c.Limits[kind] = cl
		return nil
	}
}
