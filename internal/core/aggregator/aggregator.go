// Package aggregator routes branch events and sampling ticks to per-core
// window trackers and turns the collected windows into the run datasets.
package aggregator

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/zeusync/corestate/internal/core/config"
	"github.com/zeusync/corestate/internal/core/cpu"
	"github.com/zeusync/corestate/internal/core/observability/log"
	"github.com/zeusync/corestate/internal/core/window"
	"github.com/zeusync/corestate/pkg/concurrent"
)

// BranchEvent is one retired branch as reported by the simulator.
type BranchEvent struct {
	CoreID    int
	IP        uint64
	Predicted bool
	Taken     bool
	Indirect  bool
}

// Aggregator owns one tracker per core for the lifetime of a run.
type Aggregator struct {
	cfg      config.Config
	probe    cpu.Probe
	logger   log.Log
	runID    string
	trackers []*window.Tracker
	counters counters
}

// New validates cfg and builds the per-core trackers.
func New(cfg config.Config, probe cpu.Probe, logger log.Log) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if probe == nil {
		return nil, fmt.Errorf("%w: probe is required", config.ErrInvalidConfig)
	}
	if logger == nil {
		logger = log.NewNop()
	}

	runID := uuid.NewString()
	a := &Aggregator{
		cfg:      cfg,
		probe:    probe,
		logger:   logger.With(log.String("run_id", runID)),
		runID:    runID,
		trackers: make([]*window.Tracker, cfg.CoreCount),
	}
	for core := range a.trackers {
		a.trackers[core] = window.NewTracker(core, cfg.Horizon())
	}

	a.logger.Info("core analyzers initialized",
		log.Int("cores", cfg.CoreCount),
		log.Int("observation_window_us", cfg.ObservationWindow),
		log.Int("sampling_period_us", cfg.SamplingPeriod),
		log.Bool("parallel_cores", cfg.ParallelCores),
	)
	return a, nil
}

func (a *Aggregator) RunID() string {
	return a.runID
}

func (a *Aggregator) CoreCount() int {
	return len(a.trackers)
}

// OnBranchEvent counts the branch and opens a window on its core. Events for
// unknown cores are counted and dropped.
func (a *Aggregator) OnBranchEvent(ev BranchEvent) {
	total := a.counters.totalBranches.Add(1)
	correct := ev.Predicted == ev.Taken
	if !correct {
		a.counters.mispredicted.Add(1)
	}
	if ev.Indirect {
		a.counters.indirect.Add(1)
	}
	if every := a.cfg.BranchReportEvery; every > 0 && total%every == 0 {
		a.logger.Debug("branch progress",
			log.Uint64("branch", total),
			log.Hex("ip", ev.IP),
			log.Bool("predicted", ev.Predicted),
			log.Bool("actual", ev.Taken),
			log.Bool("correct", correct),
		)
	}

	if ev.CoreID < 0 || ev.CoreID >= len(a.trackers) {
		a.counters.dropped.Add(1)
		a.logger.Warn("branch event for unknown core dropped",
			log.Int("core_id", ev.CoreID),
			log.Hex("ip", ev.IP),
		)
		return
	}

	a.trackers[ev.CoreID].Open(ev.IP, ev.Taken, a.probe.Now(), a.probe.InstructionCount(ev.CoreID))
	a.counters.recordsOpened.Add(1)
}

// OnPeriodicTick samples every core once and appends the sample to its open
// windows.
func (a *Aggregator) OnPeriodicTick(now, delta int64) {
	a.counters.ticks.Add(1)
	if delta == 0 {
		a.counters.zeroWidthTicks.Add(1)
	}

	if !a.cfg.ParallelCores {
		for _, tr := range a.trackers {
			a.sample(tr, now, delta)
		}
		return
	}

	concurrent.EachMust(a.trackers, func(tr *window.Tracker) {
		a.sample(tr, now, delta)
	})
}

func (a *Aggregator) sample(tr *window.Tracker, now, delta int64) {
	state := a.probe.CoreState(tr.CoreID())
	if closed := tr.Append(now, delta, state); closed > 0 {
		a.counters.recordsCompleted.Add(uint64(closed))
	}
}

// Records returns every window, core by core: closed windows in completion
// order followed by still-open windows in creation order.
func (a *Aggregator) Records() []window.Record {
	var all []window.Record
	for _, tr := range a.trackers {
		completed := tr.Completed()
		active := tr.Active()
		a.logger.Debug("core records",
			log.Int("core_id", tr.CoreID()),
			log.Int("completed", len(completed)),
			log.Int("active", len(active)),
		)
		all = append(all, completed...)
		all = append(all, active...)
	}
	return all
}

// Finalize builds the run report. Event delivery must have stopped. Calling it
// again without new events yields the same datasets.
func (a *Aggregator) Finalize() Report {
	records := a.Records()
	summary := Summarize(records, a.cfg.ObservationWindow)
	metrics := a.counters.snapshot()

	a.logger.Info("run finalized",
		log.Int("records", len(records)),
		log.Int("idle_patterns", len(summary)),
		log.Uint64("total_branches", metrics.TotalBranches),
		log.Uint64("dropped_events", metrics.DroppedEvents),
		log.Float64("mispredict_rate", metrics.MispredictRate()),
	)

	return Report{
		RunID:             a.runID,
		ObservationWindow: a.cfg.ObservationWindow,
		Records:           records,
		Summary:           summary,
		Metrics:           metrics,
	}
}

// Metrics returns the current counters.
func (a *Aggregator) Metrics() Metrics {
	return a.counters.snapshot()
}
