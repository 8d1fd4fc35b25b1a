package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BTBurke/spc"
	"github.com/BTBurke/spc/pkg/store"
	"github.com/spf13/pflag"
)

func main() {
	envOpts, err := spc.ParseEnv(".env")
	if err != nil {
		fmt.Printf("Could not read environment: %s\n", err)
		os.Exit(1)
	}

	usercmd, opts, err := spc.ParseCommandLine()
	if err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Printf("Could not parse configuration: %s\n\nUse spc --help for options\n", err)
		}
		os.Exit(1)
	}
	if len(usercmd) == 0 {
		fmt.Println("No command given.  Use spc --help for commands")
		os.Exit(1)
	}

	cfg, errs := spc.NewConfig(append(envOpts, opts...)...)
	if len(errs) > 0 {
		fmt.Println("Error in config:")
		for _, e := range errs {
			fmt.Println(e)
		}
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, usercmd, os.Stdout)
	stop()
	spc.FlushErrorReports()
	os.Exit(code)
}

func run(ctx context.Context, cfg *spc.Config, usercmd []string, out io.Writer) int {
	log := spc.NewLogger(os.Stderr, cfg.LogLevel, os.Getenv("NO_COLOR") == "")

	cmd, ok := commands[usercmd[0]]
	if !ok {
		log.Error("unknown command", "command", usercmd[0])
		return 1
	}

	s, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("could not open store", "err", err)
		return 1
	}
	defer closeStore()

	m, err := spc.NewMonitor(s, spc.WithLogger(log), spc.WithErrorReporter(spc.NewErrorReporter(cfg)))
	if err != nil {
		log.Error("could not create monitor", "err", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := m.Close(ctx); err != nil {
			log.Warn("event subscribers did not finish", "err", err)
		}
	}()

	result, err := cmd(ctx, &env{monitor: m, cfg: cfg, log: log, out: out}, usercmd[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		log.Error(usercmd[0]+" failed", "err", err)
		return 1
	}
	if result == nil {
		return 0
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Error("could not write result", "err", err)
		return 1
	}
	return 0
}

// openStore uses Redis when an address is configured and the data directory otherwise
func openStore(ctx context.Context, cfg *spc.Config) (store.Store, func(), error) {
	opts := []store.Option{store.WithSampleSize(cfg.SampleSize), store.WithRetries(cfg.RetryAttempts)}
	if cfg.RedisAddr != "" {
		r, err := store.Dial(ctx, cfg.RedisAddr, cfg.RedisDB, opts...)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { r.Close() }, nil
	}
	f, err := store.NewFile(cfg.DataDir, opts...)
	if err != nil {
		return nil, nil, err
	}
	return f, func() {}, nil
}

type env struct {
	monitor *spc.Monitor
	cfg     *spc.Config
	log     *slog.Logger
	out     io.Writer
}
