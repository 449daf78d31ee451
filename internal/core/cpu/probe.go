package cpu

// StateSource reports the current state of a core.
type StateSource interface {
	CoreState(coreID int) State
}

// InstructionCounter reports the retired instruction count of a core.
type InstructionCounter interface {
	InstructionCount(coreID int) uint64
}

// Clock reports the driver's current time in its own units.
type Clock interface {
	Now() int64
}

// Probe bundles everything the aggregator queries from the simulator.
type Probe interface {
	StateSource
	InstructionCounter
	Clock
}

// StaticProbe is a Probe with directly settable values.
type StaticProbe struct {
	Time         int64
	States       map[int]State
	Instructions map[int]uint64
}

func NewStaticProbe() *StaticProbe {
	return &StaticProbe{
		States:       make(map[int]State),
		Instructions: make(map[int]uint64),
	}
}

func (p *StaticProbe) CoreState(coreID int) State {
	return p.States[coreID]
}

func (p *StaticProbe) InstructionCount(coreID int) uint64 {
	return p.Instructions[coreID]
}

func (p *StaticProbe) Now() int64 {
	return p.Time
}
