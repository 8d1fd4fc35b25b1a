package spc

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"

	"github.com/BTBurke/spc/pkg/sample"
	"github.com/BTBurke/spc/pkg/stat"
	"github.com/go-yaml/yaml"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

type options struct {
	file    []ConfigOption
	options []ConfigOption
	err     error
}

// ParseCommandLine reads global options from the command line and from a YAML configuration file passed with -c.
// Parsing stops at the first non-flag argument.  Returns the command with its arguments and the options, file
// options first so that flags take precedence.
func ParseCommandLine() ([]string, []ConfigOption, error) {
	pf := createFlagSet()
	return parse(os.Args[1:], pf)
}

func parse(args []string, pf *pflag.FlagSet) ([]string, []ConfigOption, error) {
	o := options{}
	if err := pf.ParseAll(args, parseFlag(&o)); err != nil {
		return pf.Args(), append(o.file, o.options...), err
	}
	return pf.Args(), append(o.file, o.options...), o.err
}

func createFlagSet() *pflag.FlagSet {
	pf := pflag.NewFlagSet("spc", pflag.ContinueOnError)
	pf.SetInterspersed(false)
	pf.Usage = func() {
		fmt.Printf("Usage of spc:\nspc <options> <command> <command-options>\n")
		fmt.Printf("\nCommands: ingest, combined, latest, history, status, analyze, clear, simulate\n")
		fmt.Printf("\n%s", pf.FlagUsagesWrapped(10))
	}

	pf.StringP("config", "c", "", "Use yaml configuration file")
	pf.String("data-dir", "data", "Directory holding the sample collection files")
	pf.String("redis", "", "Store collections in Redis at host:port instead of the data directory")
	pf.Int("redis-db", 0, "Redis database number")
	pf.Int("sample-size", sample.DefaultSize, "Number of readings per sample")
	pf.Int("retries", 10, "Number of times a failed or conflicting write is retried")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.Bool("no-error-reports", false, "Do not send reports when there are unexpected errors")
	pf.String("rollbar-token", "", "Token used to send unexpected errors to Rollbar")
	pf.Duration("interval", 0, "Delay between simulated readings (e.g., 5s)")

	return pf
}

func parseFlag(o *options) func(*pflag.Flag, string) error {
	return func(flag *pflag.Flag, value string) error {
		switch flag.Name {
		case "config":
			opts, err := parseFromFile(value)
			if err != nil {
				o.err = err
				return err
			}
			o.file = append(o.file, opts...)
		default:
			option, err := handleOption(flag.Name, value)
			if err != nil {
				o.err = err
				return err
			}
			o.options = append(o.options, option)
		}
		return nil
	}
}

func handleOption(name string, value string) (ConfigOption, error) {
	switch name {
	case "data-dir":
		return DataDir(value), nil
	case "redis":
		return RedisAddr(value), nil
	case "redis-db":
		return RedisDB(value), nil
	case "sample-size":
		return SampleSize(value), nil
	case "retries":
		return RetryAttempts(value), nil
	case "log-level":
		return LogLevel(value), nil
	case "no-error-reports":
		return NoErrorReports(), nil
	case "rollbar-token":
		return RollbarToken(value), nil
	case "interval":
		return ReadInterval(value), nil
	default:
		return nil, fmt.Errorf("unknown option: %s", name)
	}
}

// limitsYAML holds the nested limits section of a configuration file, e.g.
//
//	limits:
//	  temperature:
//	    x: {cl: 25, ucl: 31, lcl: 19}
//	    r: {cl: 11.6, ucl: 24.5, lcl: 0}
type limitsYAML struct {
	Limits map[string]ChartLimits `yaml:"limits"`
}

func parseFromFile(fpath string) ([]ConfigOption, error) {
	var options []ConfigOption
	data, err := os.ReadFile(fpath)
	if err != nil {
		return options, err
	}

	cfg := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return options, err
	}
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		var value string
		switch v := cfg[k].(type) {
		case string:
			value = v
		case int:
			value = strconv.Itoa(v)
		case float64:
			value = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			if !v {
				continue
			}
		case nil:
			continue
		default:
			if k != "limits" {
				return options, fmt.Errorf("could not process config key %s, unknown type", k)
			}
			opts, err := parseLimits(data)
			if err != nil {
				return options, err
			}
			options = append(options, opts...)
			continue
		}
		opt, err := handleOption(k, value)
		if err != nil {
			return options, err
		}
		options = append(options, opt)
	}
	return options, nil
}

func parseLimits(data []byte) ([]ConfigOption, error) {
	alt := limitsYAML{}
	if err := yaml.Unmarshal(data, &alt); err != nil {
		return nil, fmt.Errorf("could not unmarshal config value for key: limits: %w", err)
	}
	names := make([]string, 0, len(alt.Limits))
	for name := range alt.Limits {
		names = append(names, name)
	}
	sort.Strings(names)

	var options []ConfigOption
	for _, name := range names {
		kind, err := sample.ParseKind(name)
		if err != nil {
			return nil, err
		}
		l := alt.Limits[name]
		options = append(options, Limits(kind, stat.XBar, l.X), Limits(kind, stat.Range, l.R))
	}
	return options, nil
}

// envOptions maps environment variables to the option they set
var envOptions = map[string]string{
	"SPC_DATA_DIR":      "data-dir",
	"SPC_REDIS_ADDR":    "redis",
	"SPC_REDIS_DB":      "redis-db",
	"SPC_SAMPLE_SIZE":   "sample-size",
	"SPC_LOG_LEVEL":     "log-level",
	"SPC_ROLLBAR_TOKEN": "rollbar-token",
	"SPC_READ_INTERVAL": "interval",
}

// ParseEnv reads options from dotenv files and then the process environment, which wins over the files.  Missing
// files are skipped.
func ParseEnv(files ...string) ([]ConfigOption, error) {
	values := make(map[string]string)
	for _, f := range files {
		m, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("could not read %s: %w", f, err)
		}
		for k, v := range m {
			values[k] = v
		}
	}
	for k := range envOptions {
		if v, ok := os.LookupEnv(k); ok {
			values[k] = v
		}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		if _, ok := envOptions[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var options []ConfigOption
	for _, k := range keys {
		opt, err := handleOption(envOptions[k], values[k])
		if err != nil {
			return nil, err
		}
		options = append(options, opt)
	}
	return options, nil
}
