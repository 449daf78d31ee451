package aggregator

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/zeusync/corestate/internal/core/window"
)

// Report is everything a finished run produces.
type Report struct {
	RunID             string
	ObservationWindow int
	Records           []window.Record
	Summary           []SummaryRow
	Metrics           Metrics
}

// Digest fingerprints both datasets. Two reports of the same run state share
// a digest regardless of RunID.
func (r Report) Digest() uint64 {
	h := xxhash.New()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	bit := func(b bool) uint64 {
		if b {
			return 1
		}
		return 0
	}

	put(uint64(len(r.Records)))
	for _, rec := range r.Records {
		put(rec.EventID)
		put(uint64(rec.CoreID))
		put(rec.IP)
		put(bit(rec.BranchTaken))
		put(uint64(rec.StartTime))
		put(rec.InstructionCount)
		put(uint64(len(rec.Samples)))
		for _, s := range rec.Samples {
			put(uint64(s.Elapsed))
			put(uint64(s.State))
		}
	}
	put(uint64(len(r.Summary)))
	for _, row := range r.Summary {
		put(row.IP)
		put(uint64(row.Count))
		put(math.Float64bits(row.AvgIdlePosition))
		put(math.Float64bits(row.IdleTimePercent))
		put(math.Float64bits(row.BranchTakenRatio))
	}
	return h.Sum64()
}
