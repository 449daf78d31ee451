package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DefaultObservationWindow = 100
	DefaultSamplingPeriod    = 1
	DefaultBranchReportEvery = 1000

	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is fixed at setup and never mutated once the run starts.
type Config struct {
	// ObservationWindow is the window horizon in microseconds.
	ObservationWindow int `json:"observation_window_us" yaml:"observation_window_us" env:"CORESTATE_OBSERVATION_WINDOW_US"`
	// SamplingPeriod is the nominal tick spacing in microseconds. Trackers
	// react to ticks as delivered and do not enforce it.
	SamplingPeriod int `json:"sampling_period_us" yaml:"sampling_period_us" env:"CORESTATE_SAMPLING_PERIOD_US"`
	CoreCount      int `json:"core_count" yaml:"core_count" env:"CORESTATE_CORE_COUNT"`
	// TimeUnitsPerMicrosecond converts the microsecond settings into the
	// driver's time unit, e.g. 1e9 for a femtosecond clock.
	TimeUnitsPerMicrosecond int64 `json:"time_units_per_us" yaml:"time_units_per_us" env:"CORESTATE_TIME_UNITS_PER_US"`

	OutputDir         string `json:"output_dir" yaml:"output_dir" env:"CORESTATE_OUTPUT_DIR"`
	OutputFormat      string `json:"output_format" yaml:"output_format" env:"CORESTATE_OUTPUT_FORMAT"`
	ParallelCores     bool   `json:"parallel_cores" yaml:"parallel_cores" env:"CORESTATE_PARALLEL_CORES"`
	LogLevel          string `json:"log_level" yaml:"log_level" env:"CORESTATE_LOG_LEVEL"`
	BranchReportEvery uint64 `json:"branch_report_every" yaml:"branch_report_every" env:"CORESTATE_BRANCH_REPORT_EVERY"`
}

// Default returns a configuration for a single core with every optional field
// at its documented default.
func Default() Config {
	return Config{
		ObservationWindow:       DefaultObservationWindow,
		SamplingPeriod:          DefaultSamplingPeriod,
		CoreCount:               1,
		TimeUnitsPerMicrosecond: 1,
		OutputDir:               ".",
		OutputFormat:            FormatCSV,
		LogLevel:                "info",
		BranchReportEvery:       DefaultBranchReportEvery,
	}
}

// Horizon is the observation window expressed in driver time units.
func (c Config) Horizon() int64 {
	return int64(c.ObservationWindow) * c.TimeUnitsPerMicrosecond
}

// Period is the sampling period expressed in driver time units.
func (c Config) Period() int64 {
	return int64(c.SamplingPeriod) * c.TimeUnitsPerMicrosecond
}

// Validate rejects configurations the analyzer cannot run with.
func (c Config) Validate() error {
	if c.ObservationWindow <= 0 {
		return fmt.Errorf("%w: observation window must be positive, got %d", ErrInvalidConfig, c.ObservationWindow)
	}
	if c.SamplingPeriod <= 0 {
		return fmt.Errorf("%w: sampling period must be positive, got %d", ErrInvalidConfig, c.SamplingPeriod)
	}
	if c.CoreCount <= 0 {
		return fmt.Errorf("%w: core count must be positive, got %d", ErrInvalidConfig, c.CoreCount)
	}
	if c.TimeUnitsPerMicrosecond <= 0 {
		return fmt.Errorf("%w: time units per microsecond must be positive, got %d", ErrInvalidConfig, c.TimeUnitsPerMicrosecond)
	}
	switch c.OutputFormat {
	case FormatCSV, FormatSQLite:
	default:
		return fmt.Errorf("%w: unknown output format %q", ErrInvalidConfig, c.OutputFormat)
	}
	return nil
}

// ParseArgs applies a positional "<observation_window_us>:<sampling_period_us>"
// string. Missing or empty segments keep the current values.
func (c *Config) ParseArgs(args string) error {
	if strings.TrimSpace(args) == "" {
		return nil
	}
	parts := strings.Split(args, ":")
	targets := []*int{&c.ObservationWindow, &c.SamplingPeriod}
	for i, part := range parts {
		if i >= len(targets) {
			return fmt.Errorf("%w: unexpected argument %q", ErrInvalidConfig, part)
		}
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("%w: argument %d: %v", ErrInvalidConfig, i, err)
		}
		*targets[i] = n
	}
	return nil
}

// Decode overlays YAML settings onto the configuration.
func (c *Config) Decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// LoadFile overlays the YAML file at path onto the configuration.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	return c.Decode(f)
}

// ApplyEnv overlays CORESTATE_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
