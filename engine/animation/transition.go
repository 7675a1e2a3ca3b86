package animation

import "github.com/Carmen-Shannon/oxy-anim/common"

// Transition is a directed cross-fade from the state that owns it to Target. It is built once
// when the layer is constructed and never mutated; the layer keeps the in-flight clock.
type Transition struct {
	// Target is the index of the destination state within the layer.
	Target int

	// Duration is the cross-fade length in seconds.
	Duration float32

	// WeightCurve maps normalized transition time to the target's weight.
	WeightCurve Curve

	// TimeScaleCurve maps normalized transition time to the outgoing state's clock rate.
	TimeScaleCurve Curve

	// When is the controller predicate; nil always holds.
	When ControllerPredicate

	// If is the outgoing-state predicate; nil always holds.
	If StatePredicate
}

// ready reports whether both predicates hold.
func (t *Transition) ready(c Controller, from *State) bool {
	if t.When != nil && !t.When(c) {
		return false
	}
	if t.If != nil && !t.If(from) {
		return false
	}
	return true
}

// progress returns the transition's normalized time for a clock value.
func (t *Transition) progress(time float32) float32 {
	if t.Duration <= 0 {
		return 1
	}
	return common.Clamp01(time / t.Duration)
}
