// Package cpu describes the per-core signals the analyzer samples and the
// collaborators that report them.
package cpu

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// State is the discrete activity state of a core.
type State uint8

const (
	StateRunning State = iota
	StateInitializing
	StateStalled
	StateSleeping
	StateWakingUp
	StateIdle
	StateBroken

	NumStates = 7
)

var stateNames = [NumStates]string{
	"RUNNING",
	"INITIALIZING",
	"STALLED",
	"SLEEPING",
	"WAKING_UP",
	"IDLE",
	"BROKEN",
}

func (s State) String() string {
	if !s.Valid() {
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
	return stateNames[s]
}

func (s State) Valid() bool {
	return s < NumStates
}

// ParseState accepts a state name (any case) or its ordinal.
func ParseState(text string) (State, error) {
	text = strings.TrimSpace(text)
	if n, err := strconv.Atoi(text); err == nil {
		if n < 0 || n >= NumStates {
			return 0, fmt.Errorf("state ordinal %d out of range", n)
		}
		return State(n), nil
	}
	upper := strings.ToUpper(text)
	for i, name := range stateNames {
		if name == upper {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("unknown state %q", text)
}

func (s *State) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseState(node.Value)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s State) MarshalYAML() (any, error) {
	return s.String(), nil
}
