// Package animation implements the per-character layered animation state machine: states
// with their own clocks, cross-fade transitions between them, layers that each own one active
// state, and the blackboard that aggregates every layer's weighted states once per tick.
package animation

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
)

// Behaviour selects what a state's clock does when it runs past the clip duration.
type Behaviour int

const (
	// BehaviourNone leaves the clock unbounded past the duration.
	BehaviourNone Behaviour = iota

	// BehaviourLoop wraps the clock back to 0.
	BehaviourLoop

	// BehaviourOnce clamps the clock at the duration.
	BehaviourOnce
)

// String returns the authoring name of the behaviour.
func (b Behaviour) String() string {
	switch b {
	case BehaviourLoop:
		return "loop"
	case BehaviourOnce:
		return "once"
	default:
		return "none"
	}
}

// ParseBehaviour resolves a behaviour from its authoring name. The empty name is BehaviourLoop.
//
// Parameters:
//   - name: "none", "loop" or "once" (case-insensitive)
//
// Returns:
//   - Behaviour: the parsed behaviour
//   - error: ErrInvalidData for unknown names
func ParseBehaviour(name string) (Behaviour, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "loop":
		return BehaviourLoop, nil
	case "once":
		return BehaviourOnce, nil
	case "none":
		return BehaviourNone, nil
	default:
		return BehaviourNone, fmt.Errorf("unknown behaviour %q: %w", name, skeleton.ErrInvalidData)
	}
}

// State is one playable clip instance inside a layer: a local clock, a playback speed and the
// weight the layer last assigned it. Clock fields are in clip ticks.
type State struct {
	// Name identifies the state within its layer.
	Name string

	// ClipID is the clip store id this state samples.
	ClipID int

	// Behaviour controls the clock past Duration.
	Behaviour Behaviour

	// Duration is the clip length in ticks.
	Duration float32

	// TicksPerSecond converts seconds of dt into ticks.
	TicksPerSecond float32

	// Speed multiplies playback rate (1 = authored speed).
	Speed float32

	// Time is the current clock in ticks.
	Time float32

	// Weight is the blend weight the owning layer assigned this tick.
	Weight float32

	// Mask selects the bones this state contributes to.
	Mask skeleton.BoneMask

	transitions []*Transition
}

// Update advances the clock by dt seconds and applies the behaviour past Duration.
//
// Parameters:
//   - dt: elapsed time in seconds
func (s *State) Update(dt float32) {
	s.Time += s.Speed * s.TicksPerSecond * dt
	if s.Time <= s.Duration {
		return
	}
	switch s.Behaviour {
	case BehaviourLoop:
		s.Time = 0
	case BehaviourOnce:
		s.Time = s.Duration
	}
}

// NormalizedTime returns Time / Duration, or 0 for a zero-length state.
func (s *State) NormalizedTime() float32 {
	if s.Duration <= 0 {
		return 0
	}
	return s.Time / s.Duration
}

// Transitions returns the state's outgoing transitions in declaration order.
func (s *State) Transitions() []*Transition {
	return s.transitions
}
