package trace

import (
	"context"
	"sync"

	"github.com/zeusync/corestate/internal/core/aggregator"
	"github.com/zeusync/corestate/internal/core/cpu"
)

// Handler receives replayed activity in time order.
type Handler interface {
	OnBranchEvent(ev aggregator.BranchEvent)
	OnPeriodicTick(now, delta int64)
}

var (
	_ cpu.Probe = (*Replayer)(nil)
	_ Handler   = (*aggregator.Aggregator)(nil)
)

// Replayer drives a Handler from a trace and answers probe queries with the
// simulator state as of the entry being delivered.
type Replayer struct {
	trace *Trace

	mu           sync.RWMutex
	now          int64
	states       []cpu.State
	instructions []uint64
}

func NewReplayer(t *Trace) *Replayer {
	return &Replayer{
		trace:        t,
		states:       make([]cpu.State, t.Cores),
		instructions: make([]uint64, t.Cores),
	}
}

func (r *Replayer) Cores() int {
	return r.trace.Cores
}

func (r *Replayer) Now() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.now
}

func (r *Replayer) CoreState(coreID int) cpu.State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if coreID < 0 || coreID >= len(r.states) {
		return cpu.StateBroken
	}
	return r.states[coreID]
}

func (r *Replayer) InstructionCount(coreID int) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if coreID < 0 || coreID >= len(r.instructions) {
		return 0
	}
	return r.instructions[coreID]
}

// Run delivers every entry to h synchronously. It stops early with the
// context error if ctx is cancelled between entries.
func (r *Replayer) Run(ctx context.Context, h Handler) error {
	for _, e := range r.trace.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.mu.Lock()
		r.now = e.Time
		switch {
		case e.State != nil:
			r.states[e.State.Core] = e.State.State
		case e.Retire != nil:
			r.instructions[e.Retire.Core] = e.Retire.Count
		}
		r.mu.Unlock()

		switch {
		case e.Branch != nil:
			h.OnBranchEvent(aggregator.BranchEvent{
				CoreID:    e.Branch.Core,
				IP:        e.Branch.IP,
				Predicted: e.Branch.Predicted,
				Taken:     e.Branch.Taken,
				Indirect:  e.Branch.Indirect,
			})
		case e.Tick != nil:
			h.OnPeriodicTick(e.Time, e.Tick.Delta)
		}
	}
	return nil
}
