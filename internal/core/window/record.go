package window

import "github.com/zeusync/corestate/internal/core/cpu"

// Sample is one state observation taken Elapsed time units after the window
// opened.
type Sample struct {
	Elapsed int64
	State   cpu.State
}

// Record is the observation window opened by a single branch event.
type Record struct {
	EventID          uint64
	CoreID           int
	IP               uint64
	BranchTaken      bool
	StartTime        int64
	InstructionCount uint64
	Samples          []Sample
}

// States returns the sampled states in time order.
func (r Record) States() []cpu.State {
	states := make([]cpu.State, len(r.Samples))
	for i, s := range r.Samples {
		states[i] = s.State
	}
	return states
}

// IdlePositions returns the sample indices at which the core was idle.
func (r Record) IdlePositions() []int {
	var positions []int
	for i, s := range r.Samples {
		if s.State == cpu.StateIdle {
			positions = append(positions, i)
		}
	}
	return positions
}

func (r Record) clone() Record {
	out := r
	out.Samples = append([]Sample(nil), r.Samples...)
	return out
}
