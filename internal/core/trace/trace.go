// Package trace replays recorded simulator activity into the analyzer.
package trace

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/corestate/internal/core/cpu"
)

var ErrMalformedTrace = errors.New("malformed trace")

// Trace is a time-ordered log of simulator activity.
type Trace struct {
	Cores   int     `yaml:"cores"`
	Entries []Entry `yaml:"entries"`
}

// Entry carries exactly one of its optional payloads.
type Entry struct {
	Time   int64        `yaml:"time"`
	Branch *Branch      `yaml:"branch,omitempty"`
	State  *StateChange `yaml:"state,omitempty"`
	Retire *Retire      `yaml:"retire,omitempty"`
	Tick   *Tick        `yaml:"tick,omitempty"`
}

type Branch struct {
	Core      int    `yaml:"core"`
	IP        uint64 `yaml:"ip"`
	Predicted bool   `yaml:"predicted"`
	Taken     bool   `yaml:"taken"`
	Indirect  bool   `yaml:"indirect,omitempty"`
}

// StateChange sets the state a core reports from Entry.Time on.
type StateChange struct {
	Core  int       `yaml:"core"`
	State cpu.State `yaml:"state"`
}

// Retire sets a core's retired instruction count.
type Retire struct {
	Core  int    `yaml:"core"`
	Count uint64 `yaml:"count"`
}

type Tick struct {
	Delta int64 `yaml:"delta"`
}

func (e Entry) kinds() int {
	n := 0
	if e.Branch != nil {
		n++
	}
	if e.State != nil {
		n++
	}
	if e.Retire != nil {
		n++
	}
	if e.Tick != nil {
		n++
	}
	return n
}

// Validate checks ordering and payload shape. Branches may name cores outside
// the trace; the analyzer drops those itself.
func (t *Trace) Validate() error {
	if t.Cores <= 0 {
		return fmt.Errorf("%w: cores must be positive, got %d", ErrMalformedTrace, t.Cores)
	}
	var last int64
	for i, e := range t.Entries {
		if k := e.kinds(); k != 1 {
			return fmt.Errorf("%w: entry %d has %d payloads", ErrMalformedTrace, i, k)
		}
		if i > 0 && e.Time < last {
			return fmt.Errorf("%w: entry %d at time %d precedes %d", ErrMalformedTrace, i, e.Time, last)
		}
		last = e.Time
		switch {
		case e.State != nil:
			if e.State.Core < 0 || e.State.Core >= t.Cores {
				return fmt.Errorf("%w: entry %d: state for unknown core %d", ErrMalformedTrace, i, e.State.Core)
			}
			if !e.State.State.Valid() {
				return fmt.Errorf("%w: entry %d: invalid state %d", ErrMalformedTrace, i, e.State.State)
			}
		case e.Retire != nil:
			if e.Retire.Core < 0 || e.Retire.Core >= t.Cores {
				return fmt.Errorf("%w: entry %d: retire for unknown core %d", ErrMalformedTrace, i, e.Retire.Core)
			}
		case e.Tick != nil:
			if e.Tick.Delta < 0 {
				return fmt.Errorf("%w: entry %d: negative tick delta", ErrMalformedTrace, i)
			}
		}
	}
	return nil
}

// Load decodes and validates a YAML trace.
func Load(r io.Reader) (*Trace, error) {
	var t Trace
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTrace, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadFile reads and validates the YAML trace at path.
func LoadFile(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace %s: %w", path, err)
	}
	defer f.Close()

	t, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load trace %s: %w", path, err)
	}
	return t, nil
}

// Ticks generates evenly spaced ticks over (start, end].
func Ticks(start, end, period int64) []Entry {
	if period <= 0 || end <= start {
		return nil
	}
	out := make([]Entry, 0, (end-start)/period)
	for now := start + period; now <= end; now += period {
		out = append(out, Entry{Time: now, Tick: &Tick{Delta: period}})
	}
	return out
}

// WithTicks merges generated ticks into the trace, keeping time order. At
// equal times recorded entries come before ticks.
func (t *Trace) WithTicks(ticks []Entry) {
	t.Entries = append(t.Entries, ticks...)
	slices.SortStableFunc(t.Entries, func(a, b Entry) int {
		if c := cmp.Compare(a.Time, b.Time); c != 0 {
			return c
		}
		return cmp.Compare(tickRank(a), tickRank(b))
	})
}

func tickRank(e Entry) int {
	if e.Tick != nil {
		return 1
	}
	return 0
}

// End is the time of the last entry.
func (t *Trace) End() int64 {
	if len(t.Entries) == 0 {
		return 0
	}
	return t.Entries[len(t.Entries)-1].Time
}
