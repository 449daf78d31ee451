// Command corestate replays a simulator trace through the branch/core-state
// window analyzer and writes the pattern datasets.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/corestate/internal/core/config"
	"github.com/zeusync/corestate/internal/core/trace"
	"github.com/zeusync/corestate/internal/injector"
)

type options struct {
	tracePath  string
	configPath string
	args       string
	outputDir  string
	format     string
	cores      int
	synthTicks bool
	parallel   bool
}

func parseOptions(fs *flag.FlagSet, argv []string) (options, error) {
	var o options
	fs.StringVar(&o.tracePath, "trace", "", "YAML trace to replay (required)")
	fs.StringVar(&o.configPath, "config", "", "YAML config file")
	fs.StringVar(&o.args, "args", "", `window and period as "<observation_window_us>:<sampling_period_us>"`)
	fs.StringVar(&o.outputDir, "out", "", "output directory")
	fs.StringVar(&o.format, "format", "", "output format: csv or sqlite")
	fs.IntVar(&o.cores, "cores", 0, "core count (defaults to the trace's)")
	fs.BoolVar(&o.synthTicks, "synth-ticks", false, "generate ticks every sampling period instead of relying on recorded ones")
	fs.BoolVar(&o.parallel, "parallel", false, "sample cores concurrently on each tick")
	if err := fs.Parse(argv); err != nil {
		return o, err
	}
	if o.tracePath == "" {
		return o, fmt.Errorf("-trace is required")
	}
	return o, nil
}

// buildConfig layers defaults, config file, positional args, environment and
// flags, in that order.
func buildConfig(o options, tr *trace.Trace) (config.Config, error) {
	cfg := config.Default()
	cfg.CoreCount = 0
	if o.configPath != "" {
		if err := cfg.LoadFile(o.configPath); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ParseArgs(o.args); err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if o.outputDir != "" {
		cfg.OutputDir = o.outputDir
	}
	if o.format != "" {
		cfg.OutputFormat = o.format
	}
	if o.cores > 0 {
		cfg.CoreCount = o.cores
	}
	if o.parallel {
		cfg.ParallelCores = true
	}
	if cfg.CoreCount == 0 {
		cfg.CoreCount = tr.Cores
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, argv []string) error {
	fs := flag.NewFlagSet("corestate", flag.ContinueOnError)
	o, err := parseOptions(fs, argv)
	if err != nil {
		return err
	}

	tr, err := trace.LoadFile(o.tracePath)
	if err != nil {
		return err
	}
	cfg, err := buildConfig(o, tr)
	if err != nil {
		return err
	}
	if o.synthTicks {
		tr.WithTicks(trace.Ticks(0, tr.End()+cfg.Horizon()+cfg.Period(), cfg.Period()))
	}

	s, err := injector.InitializeSession(cfg, trace.NewReplayer(tr))
	if err != nil {
		return err
	}
	_, err = s.Run(ctx)
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "corestate:", err)
		os.Exit(1)
	}
}
