package animation

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
)

// ClipSource resolves clips for layer construction. *clip.Store satisfies it.
type ClipSource interface {
	Clip(id int) *clip.Clip
	Index(name string) (int, bool)
}

// LayerDef declares a layer: its states in order, the first being the initial state.
type LayerDef struct {
	Name   string
	States []StateDef
}

// StateDef declares one state of a layer.
type StateDef struct {
	// Name identifies the state; transitions target it by this name.
	Name string

	// Clip is the clip store name the state plays.
	Clip string

	// Behaviour controls the clock past the clip duration.
	Behaviour Behaviour

	// Speed multiplies playback rate; 0 means 1.
	Speed float32

	// Mask selects contributing bones; nil selects every bone.
	Mask *skeleton.BoneMask

	// Transitions are evaluated in this order.
	Transitions []TransitionDef
}

// TransitionDef declares a transition out of the enclosing state.
type TransitionDef struct {
	// To is the destination state name.
	To string

	// Duration is the cross-fade length in seconds.
	Duration float32

	// WeightCurve defaults to Linear.
	WeightCurve Curve

	// TimeScaleCurve defaults to Constant(1).
	TimeScaleCurve Curve

	// When is the controller predicate; nil always holds.
	When ControllerPredicate

	// If is the outgoing-state predicate; nil always holds.
	If StatePredicate
}

// Layer is one independently animated state machine (a state group). It owns exactly one
// active state and at most one in-flight transition towards a target state.
type Layer struct {
	name   string
	states []*State
	byName map[string]int

	active int
	target int

	transition       *Transition
	transitionTime   float32
	transitionWeight float32
}

// NewLayer builds a layer from its declaration, resolving clip and state names.
//
// Parameters:
//   - def: the layer declaration
//   - clips: the clip source the states play from
//
// Returns:
//   - *Layer: the layer with its first state active at weight 1
//   - error: ErrInvalidData for an empty layer, duplicate or unknown names, or self-transitions
func NewLayer(def LayerDef, clips ClipSource) (*Layer, error) {
	if len(def.States) == 0 {
		return nil, fmt.Errorf("layer %q: no states: %w", def.Name, skeleton.ErrInvalidData)
	}

	l := &Layer{
		name:   def.Name,
		states: make([]*State, len(def.States)),
		byName: make(map[string]int, len(def.States)),
		target: -1,
	}

	for i, sd := range def.States {
		if _, dup := l.byName[sd.Name]; dup {
			return nil, fmt.Errorf("layer %q: duplicate state %q: %w", def.Name, sd.Name, skeleton.ErrInvalidData)
		}
		l.byName[sd.Name] = i

		id, ok := clips.Index(sd.Clip)
		if !ok {
			return nil, fmt.Errorf("layer %q state %q: unknown clip %q: %w", def.Name, sd.Name, sd.Clip, skeleton.ErrInvalidData)
		}
		c := clips.Clip(id)

		mask := skeleton.FullMask()
		if sd.Mask != nil {
			mask = *sd.Mask
		}
		l.states[i] = &State{
			Name:           sd.Name,
			ClipID:         id,
			Behaviour:      sd.Behaviour,
			Duration:       c.DurationTicks,
			TicksPerSecond: c.TicksPerSecond,
			Speed:          common.Coalesce(sd.Speed, 1),
			Mask:           mask,
		}
	}

	for i, sd := range def.States {
		for _, td := range sd.Transitions {
			target, ok := l.byName[td.To]
			if !ok {
				return nil, fmt.Errorf("layer %q state %q: unknown transition target %q: %w", def.Name, sd.Name, td.To, skeleton.ErrInvalidData)
			}
			if target == i {
				return nil, fmt.Errorf("layer %q state %q: transition to itself: %w", def.Name, sd.Name, skeleton.ErrInvalidData)
			}
			weight, timeScale := td.WeightCurve, td.TimeScaleCurve
			if weight == nil {
				weight = Linear
			}
			if timeScale == nil {
				timeScale = Constant(1)
			}
			l.states[i].transitions = append(l.states[i].transitions, &Transition{
				Target:         target,
				Duration:       td.Duration,
				WeightCurve:    weight,
				TimeScaleCurve: timeScale,
				When:           td.When,
				If:             td.If,
			})
		}
	}

	l.states[0].Weight = 1
	return l, nil
}

// Name returns the layer name.
func (l *Layer) Name() string {
	return l.name
}

// States returns the layer's states in declaration order.
func (l *Layer) States() []*State {
	return l.states
}

// State returns the named state, or nil.
func (l *Layer) State(name string) *State {
	if i, ok := l.byName[name]; ok {
		return l.states[i]
	}
	return nil
}

// Active returns the active state.
func (l *Layer) Active() *State {
	return l.states[l.active]
}

// Target returns the state being transitioned to, or nil when no transition is in flight.
func (l *Layer) Target() *State {
	if l.transition == nil {
		return nil
	}
	return l.states[l.target]
}

// IsTransitioning reports whether a transition is in flight.
func (l *Layer) IsTransitioning() bool {
	return l.transition != nil
}

// TransitionWeight returns the target's weight in the in-flight transition, or 0.
func (l *Layer) TransitionWeight() float32 {
	if l.transition == nil {
		return 0
	}
	return l.transitionWeight
}

// TransitionTime returns the in-flight transition's clock in seconds, or 0.
func (l *Layer) TransitionTime() float32 {
	if l.transition == nil {
		return 0
	}
	return l.transitionTime
}

// Play makes the named state active immediately at weight 1 with its clock reset, cancelling
// any in-flight transition.
//
// Parameters:
//   - name: the state to play
//
// Returns:
//   - bool: false if no state has that name
func (l *Layer) Play(name string) bool {
	i, ok := l.byName[name]
	if !ok {
		return false
	}
	l.states[l.active].Weight = 0
	if l.transition != nil {
		l.states[l.target].Weight = 0
	}
	l.clearTransition()
	l.active = i
	l.states[i].Time = 0
	l.states[i].Weight = 1
	return true
}

// Update advances the layer by dt seconds. A transition whose clock passed its duration on the
// previous update completes first; with no transition in flight, the active state's
// transitions are checked in order and the first ready one starts. Then clocks and weights
// advance.
//
// Parameters:
//   - dt: elapsed time in seconds
//   - c: the controller signals for this tick (may be nil)
func (l *Layer) Update(dt float32, c Controller) {
	if l.transition != nil && l.transitionTime > l.transition.Duration {
		l.states[l.active].Weight = 0
		l.active = l.target
		l.clearTransition()
	}

	if l.transition == nil {
		from := l.states[l.active]
		for _, t := range from.transitions {
			if t.ready(c, from) {
				l.transition = t
				l.target = t.Target
				l.transitionTime = 0
				l.states[t.Target].Time = 0
				break
			}
		}
	}

	out := l.states[l.active]
	if l.transition == nil {
		out.Weight = 1
		out.Update(dt)
		return
	}

	in := l.states[l.target]
	l.transitionTime += dt
	n := l.transition.progress(l.transitionTime)
	l.transitionWeight = l.transition.WeightCurve(n)
	out.Weight = 1 - l.transitionWeight
	in.Weight = l.transitionWeight
	out.Update(dt * l.transition.TimeScaleCurve(n))
	in.Update(dt)
}

func (l *Layer) clearTransition() {
	l.transition = nil
	l.target = -1
	l.transitionTime = 0
	l.transitionWeight = 0
}
