// Package window tracks the observation windows that branch events open on a
// single core.
package window

import (
	"sync"

	"github.com/zeusync/corestate/internal/core/cpu"
)

// Tracker owns the window lifecycle for one core. All methods are safe for
// concurrent use; callers still must deliver events in time order.
type Tracker struct {
	mu sync.Mutex

	coreID  int
	horizon int64

	nextEventID uint64
	// active holds open windows in creation order.
	active    []*Record
	completed []Record
}

// NewTracker creates a tracker whose windows close once a sample lands more
// than horizon time units after the window opened.
func NewTracker(coreID int, horizon int64) *Tracker {
	return &Tracker{
		coreID:      coreID,
		horizon:     horizon,
		nextEventID: 1,
	}
}

func (t *Tracker) CoreID() int {
	return t.coreID
}

// Open starts a new window and returns its event id.
func (t *Tracker) Open(ip uint64, taken bool, now int64, instructions uint64) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextEventID
	t.nextEventID++

	t.active = append(t.active, &Record{
		EventID:          id,
		CoreID:           t.coreID,
		IP:               ip,
		BranchTaken:      taken,
		StartTime:        now,
		InstructionCount: instructions,
	})
	return id
}

// Append adds a sample to every open window and closes the windows whose
// horizon has passed. The closing sample is kept. A zero delta is ignored.
// It returns the number of windows closed by this sample.
func (t *Tracker) Append(now, delta int64, state cpu.State) int {
	if delta == 0 {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	closed := 0
	kept := t.active[:0]
	for _, rec := range t.active {
		elapsed := now - rec.StartTime
		rec.Samples = append(rec.Samples, Sample{Elapsed: elapsed, State: state})
		if elapsed > t.horizon {
			t.completed = append(t.completed, *rec)
			closed++
			continue
		}
		kept = append(kept, rec)
	}
	for i := len(kept); i < len(t.active); i++ {
		t.active[i] = nil
	}
	t.active = kept
	return closed
}

// Active returns copies of the open windows in creation order. Tracking is not
// affected.
func (t *Tracker) Active() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Record, len(t.active))
	for i, rec := range t.active {
		out[i] = rec.clone()
	}
	return out
}

// Completed returns copies of the closed windows in completion order.
func (t *Tracker) Completed() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Record, len(t.completed))
	for i, rec := range t.completed {
		out[i] = rec.clone()
	}
	return out
}

// Len reports the number of open and closed windows.
func (t *Tracker) Len() (active, completed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active), len(t.completed)
}
