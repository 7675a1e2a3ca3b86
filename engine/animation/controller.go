package animation

// QueryID names a controller signal, e.g. "grounded" or "move_x".
type QueryID string

// Controller is the capability a character's gameplay controller exposes to transition
// predicates. It is supplied once per tick before Blackboard.Update.
type Controller interface {
	// Query returns the boolean signal named id. Unknown ids report false.
	Query(id QueryID) bool

	// Axis returns the float signal named id. Unknown ids report 0.
	Axis(id QueryID) float32
}

// Signals is a map-backed Controller. It is not safe for concurrent mutation; each character
// owns its own.
type Signals struct {
	flags map[QueryID]bool
	axes  map[QueryID]float32
}

var _ Controller = &Signals{}

// NewSignals creates an empty Signals controller.
func NewSignals() *Signals {
	return &Signals{
		flags: make(map[QueryID]bool),
		axes:  make(map[QueryID]float32),
	}
}

// Set stores a boolean signal and returns the receiver for chaining.
func (s *Signals) Set(id QueryID, v bool) *Signals {
	s.flags[id] = v
	return s
}

// SetAxis stores a float signal and returns the receiver for chaining.
func (s *Signals) SetAxis(id QueryID, v float32) *Signals {
	s.axes[id] = v
	return s
}

func (s *Signals) Query(id QueryID) bool {
	return s.flags[id]
}

func (s *Signals) Axis(id QueryID) float32 {
	return s.axes[id]
}

// ControllerPredicate decides from controller signals whether a transition may fire.
type ControllerPredicate func(c Controller) bool

// StatePredicate decides from the outgoing state whether a transition may fire.
type StatePredicate func(s *State) bool

// Is holds when the boolean signal id is set.
func Is(id QueryID) ControllerPredicate {
	return func(c Controller) bool { return c != nil && c.Query(id) }
}

// Not holds when the boolean signal id is unset.
func Not(id QueryID) ControllerPredicate {
	return func(c Controller) bool { return c == nil || !c.Query(id) }
}

// AxisAbove holds when the float signal id is strictly greater than v.
func AxisAbove(id QueryID, v float32) ControllerPredicate {
	return func(c Controller) bool { return c != nil && c.Axis(id) > v }
}

// AxisBelow holds when the float signal id is strictly less than v.
func AxisBelow(id QueryID, v float32) ControllerPredicate {
	return func(c Controller) bool { return c != nil && c.Axis(id) < v }
}

// All holds when every non-nil predicate holds. An empty list always holds.
func All(preds ...ControllerPredicate) ControllerPredicate {
	return func(c Controller) bool {
		for _, p := range preds {
			if p != nil && !p(c) {
				return false
			}
		}
		return true
	}
}

// AfterNormalizedTime holds once the state's clock has reached fraction f of its duration.
func AfterNormalizedTime(f float32) StatePredicate {
	return func(s *State) bool {
		if s.Duration <= 0 {
			return true
		}
		return s.Time/s.Duration >= f
	}
}
