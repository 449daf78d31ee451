package aggregator

import (
	"github.com/zeusync/corestate/internal/core/window"
)

// PatternStats aggregates the records of one branch site that saw the core
// go idle at least once.
type PatternStats struct {
	IP               uint64
	Count            int
	IdlePositions    []int
	BranchTakenCount int
}

// SummaryRow is one line of the summary dataset.
type SummaryRow struct {
	IP               uint64
	Count            int
	AvgIdlePosition  float64
	IdleTimePercent  float64
	BranchTakenRatio float64
}

// CollectPatterns scans records once and groups those with idle samples by
// IP, in order of first appearance.
func CollectPatterns(records []window.Record) []*PatternStats {
	index := make(map[uint64]*PatternStats)
	var ordered []*PatternStats

	for _, rec := range records {
		positions := rec.IdlePositions()
		if len(positions) == 0 {
			continue
		}
		stats, ok := index[rec.IP]
		if !ok {
			stats = &PatternStats{IP: rec.IP}
			index[rec.IP] = stats
			ordered = append(ordered, stats)
		}
		stats.Count++
		stats.IdlePositions = append(stats.IdlePositions, positions...)
		if rec.BranchTaken {
			stats.BranchTakenCount++
		}
	}
	return ordered
}

// Summarize derives the per-IP summary rows. The idle percentage divides by
// the configured window length in place of the true per-record sample count,
// so it can exceed 100 when the sampling period is not one time unit.
func Summarize(records []window.Record, observationWindow int) []SummaryRow {
	patterns := CollectPatterns(records)
	rows := make([]SummaryRow, 0, len(patterns))
	for _, p := range patterns {
		sum := 0
		for _, pos := range p.IdlePositions {
			sum += pos
		}
		idle := float64(len(p.IdlePositions))
		count := float64(p.Count)
		rows = append(rows, SummaryRow{
			IP:               p.IP,
			Count:            p.Count,
			AvgIdlePosition:  float64(sum) / idle,
			IdleTimePercent:  idle / (count * float64(observationWindow)) * 100,
			BranchTakenRatio: float64(p.BranchTakenCount) / count,
		})
	}
	return rows
}
