package aggregator

import "sync/atomic"

// Metrics is a point-in-time snapshot of the run counters.
type Metrics struct {
	TotalBranches    uint64 // Branch events seen, including dropped ones
	Mispredicted     uint64 // Branches whose prediction differed from the outcome
	IndirectBranches uint64
	DroppedEvents    uint64 // Branch events naming an unknown core
	Ticks            uint64
	ZeroWidthTicks   uint64
	RecordsOpened    uint64
	RecordsCompleted uint64
}

// MispredictRate is the fraction of branches that were mispredicted.
func (m Metrics) MispredictRate() float64 {
	if m.TotalBranches == 0 {
		return 0
	}
	return float64(m.Mispredicted) / float64(m.TotalBranches)
}

type counters struct {
	totalBranches    atomic.Uint64
	mispredicted     atomic.Uint64
	indirect         atomic.Uint64
	dropped          atomic.Uint64
	ticks            atomic.Uint64
	zeroWidthTicks   atomic.Uint64
	recordsOpened    atomic.Uint64
	recordsCompleted atomic.Uint64
}

func (c *counters) snapshot() Metrics {
	return Metrics{
		TotalBranches:    c.totalBranches.Load(),
		Mispredicted:     c.mispredicted.Load(),
		IndirectBranches: c.indirect.Load(),
		DroppedEvents:    c.dropped.Load(),
		Ticks:            c.ticks.Load(),
		ZeroWidthTicks:   c.zeroWidthTicks.Load(),
		RecordsOpened:    c.recordsOpened.Load(),
		RecordsCompleted: c.recordsCompleted.Load(),
	}
}
