package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/corestate/internal/core/config"
	"github.com/zeusync/corestate/internal/core/cpu"
	"github.com/zeusync/corestate/internal/core/observability/log"
)

func newTestAggregator(t *testing.T, cores int, mutate ...func(*config.Config)) (*Aggregator, *cpu.StaticProbe) {
	t.Helper()
	cfg := config.Default()
	cfg.CoreCount = cores
	for _, m := range mutate {
		m(&cfg)
	}
	probe := cpu.NewStaticProbe()
	agg, err := New(cfg, probe, log.NewNop())
	require.NoError(t, err)
	return agg, probe
}

// tick advances the probe clock and delivers one tick.
func tick(agg *Aggregator, probe *cpu.StaticProbe, now, delta int64) {
	probe.Time = now
	agg.OnPeriodicTick(now, delta)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.ObservationWindow = 0
	_, err := New(cfg, cpu.NewStaticProbe(), nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	cfg = config.Default()
	cfg.CoreCount = -1
	_, err = New(cfg, cpu.NewStaticProbe(), nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = New(config.Default(), nil, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestFullIdleWindow(t *testing.T) {
	for _, taken := range []bool{true, false} {
		agg, probe := newTestAggregator(t, 1)
		probe.States[0] = cpu.StateIdle

		agg.OnBranchEvent(BranchEvent{CoreID: 0, IP: 0x401000, Predicted: taken, Taken: taken})
		for now := int64(1); now <= 150; now++ {
			tick(agg, probe, now, 1)
		}

		report := agg.Finalize()
		require.Len(t, report.Records, 1)
		assert.Len(t, report.Records[0].Samples, 101)

		require.Len(t, report.Summary, 1)
		row := report.Summary[0]
		assert.Equal(t, uint64(0x401000), row.IP)
		assert.Equal(t, 1, row.Count)
		assert.InDelta(t, 50.0, row.AvgIdlePosition, 1e-9)
		assert.InDelta(t, 101.0, row.IdleTimePercent, 1e-9)
		if taken {
			assert.Equal(t, 1.0, row.BranchTakenRatio)
		} else {
			assert.Equal(t, 0.0, row.BranchTakenRatio)
		}
		assert.Equal(t, uint64(1), report.Metrics.RecordsCompleted)
	}
}

func TestEventIDsPerCore(t *testing.T) {
	agg, _ := newTestAggregator(t, 2)
	for i := 0; i < 5; i++ {
		agg.OnBranchEvent(BranchEvent{CoreID: 0, IP: 0x10})
		agg.OnBranchEvent(BranchEvent{CoreID: 1, IP: 0x20})
	}
	agg.OnBranchEvent(BranchEvent{CoreID: 1, IP: 0x20})

	report := agg.Finalize()
	var core0, core1 []uint64
	for _, rec := range report.Records {
		switch rec.CoreID {
		case 0:
			core0 = append(core0, rec.EventID)
		case 1:
			core1 = append(core1, rec.EventID)
		}
	}
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, core0)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6}, core1)
}

func TestUnknownCoreDropped(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cfg := config.Default()
	cfg.CoreCount = 2
	agg, err := New(cfg, cpu.NewStaticProbe(), log.NewWithCore(core))
	require.NoError(t, err)

	agg.OnBranchEvent(BranchEvent{CoreID: 0, IP: 0x1})
	assert.NotPanics(t, func() {
		agg.OnBranchEvent(BranchEvent{CoreID: 2, IP: 0x2})
		agg.OnBranchEvent(BranchEvent{CoreID: -1, IP: 0x3})
	})

	report := agg.Finalize()
	assert.Len(t, report.Records, 1)
	assert.Equal(t, uint64(3), report.Metrics.TotalBranches)
	assert.Equal(t, uint64(2), report.Metrics.DroppedEvents)
	assert.Equal(t, uint64(1), report.Metrics.RecordsOpened)
	assert.Equal(t, 2, logs.FilterMessage("branch event for unknown core dropped").Len())
}

func TestZeroWidthTick(t *testing.T) {
	agg, probe := newTestAggregator(t, 1)
	agg.OnBranchEvent(BranchEvent{CoreID: 0, IP: 0x1})
	tick(agg, probe, 1, 1)
	tick(agg, probe, 1, 0)
	tick(agg, probe, 1, 0)

	report := agg.Finalize()
	require.Len(t, report.Records, 1)
	assert.Len(t, report.Records[0].Samples, 1)
	assert.Equal(t, uint64(3), report.Metrics.Ticks)
	assert.Equal(t, uint64(2), report.Metrics.ZeroWidthTicks)
}

func TestBranchStartsAtProbeTime(t *testing.T) {
	agg, probe := newTestAggregator(t, 2)
	probe.Time = 77
	probe.Instructions[1] = 5000

	agg.OnBranchEvent(BranchEvent{CoreID: 1, IP: 0x99, Taken: true})

	rec := agg.Finalize().Records[0]
	assert.Equal(t, int64(77), rec.StartTime)
	assert.Equal(t, uint64(5000), rec.InstructionCount)
	assert.Equal(t, 1, rec.CoreID)
	assert.True(t, rec.BranchTaken)
}

func TestStateFetchedPerCorePerTick(t *testing.T) {
	agg, probe := newTestAggregator(t, 2)
	agg.OnBranchEvent(BranchEvent{CoreID: 0, IP: 0x1})
	agg.OnBranchEvent(BranchEvent{CoreID: 1, IP: 0x2})

	probe.States[0] = cpu.StateIdle
	probe.States[1] = cpu.StateRunning
	tick(agg, probe, 1, 1)
	probe.States[0] = cpu.StateSleeping
	probe.States[1] = cpu.StateIdle
	tick(agg, probe, 2, 1)

	report := agg.Finalize()
	require.Len(t, report.Records, 2)
	assert.Equal(t, []cpu.State{cpu.StateIdle, cpu.StateSleeping}, report.Records[0].States())
	assert.Equal(t, []cpu.State{cpu.StateRunning, cpu.StateIdle}, report.Records[1].States())
}

func TestRecordOrderCoreMajorCompletedFirst(t *testing.T) {
	agg, probe := newTestAggregator(t, 2, func(c *config.Config) { c.ObservationWindow = 2 })

	agg.OnBranchEvent(BranchEvent{CoreID: 1, IP: 0xa})
	agg.OnBranchEvent(BranchEvent{CoreID: 0, IP: 0xb})
	for now := int64(1); now <= 3; now++ {
		tick(agg, probe, now, 1)
	}
	agg.OnBranchEvent(BranchEvent{CoreID: 0, IP: 0xc})

	report := agg.Finalize()
	var ips []uint64
	for _, rec := range report.Records {
		ips = append(ips, rec.IP)
	}
	assert.Equal(t, []uint64{0xb, 0xc, 0xa}, ips)
}

func TestFinalizeIdempotent(t *testing.T) {
	agg, probe := newTestAggregator(t, 2)
	probe.States[1] = cpu.StateIdle
	agg.OnBranchEvent(BranchEvent{CoreID: 0, IP: 0x1})
	agg.OnBranchEvent(BranchEvent{CoreID: 1, IP: 0x2, Taken: true})
	for now := int64(1); now <= 40; now++ {
		tick(agg, probe, now, 1)
	}

	first := agg.Finalize()
	second := agg.Finalize()
	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.Digest(), second.Digest())

	agg.OnBranchEvent(BranchEvent{CoreID: 0, IP: 0x3})
	assert.NotEqual(t, first.Digest(), agg.Finalize().Digest())
}

func TestEmptyRun(t *testing.T) {
	agg, _ := newTestAggregator(t, 4)
	report := agg.Finalize()
	assert.Empty(t, report.Records)
	assert.Empty(t, report.Summary)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, agg.RunID(), report.RunID)
}

func TestParallelCoresMatchesSerial(t *testing.T) {
	run := func(parallel bool) Report {
		agg, probe := newTestAggregator(t, 4, func(c *config.Config) {
			c.ObservationWindow = 10
			c.ParallelCores = parallel
		})
		for core := 0; core < 4; core++ {
			if core%2 == 0 {
				probe.States[core] = cpu.StateIdle
			}
		}
		for now := int64(0); now < 60; now++ {
			probe.Time = now
			if now%7 == 0 {
				for core := 0; core < 4; core++ {
					agg.OnBranchEvent(BranchEvent{CoreID: core, IP: uint64(0x100 + core), Taken: now%2 == 0})
				}
			}
			agg.OnPeriodicTick(now, 1)
		}
		return agg.Finalize()
	}

	serial := run(false)
	parallel := run(true)
	assert.Equal(t, serial.Records, parallel.Records)
	assert.Equal(t, serial.Summary, parallel.Summary)
	assert.Equal(t, serial.Digest(), parallel.Digest())
}

func TestBranchCounters(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cfg := config.Default()
	cfg.BranchReportEvery = 2
	agg, err := New(cfg, cpu.NewStaticProbe(), log.NewWithCore(core))
	require.NoError(t, err)

	agg.OnBranchEvent(BranchEvent{IP: 0x1, Predicted: true, Taken: true})
	agg.OnBranchEvent(BranchEvent{IP: 0x2, Predicted: true, Taken: false, Indirect: true})
	agg.OnBranchEvent(BranchEvent{IP: 0x3, Predicted: false, Taken: true})
	agg.OnBranchEvent(BranchEvent{IP: 0x4})

	m := agg.Metrics()
	assert.Equal(t, uint64(4), m.TotalBranches)
	assert.Equal(t, uint64(2), m.Mispredicted)
	assert.Equal(t, uint64(1), m.IndirectBranches)
	assert.InDelta(t, 0.5, m.MispredictRate(), 1e-9)
	assert.Equal(t, 2, logs.FilterMessage("branch progress").Len())
}
