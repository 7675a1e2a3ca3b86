package animation

import "github.com/Carmen-Shannon/oxy-anim/engine/skeleton"

// Snapshot is a read-only view of one weighted state at the end of a tick.
type Snapshot struct {
	// Layer is the owning layer's name.
	Layer string

	// State is the state's name.
	State string

	// ClipID is the clip the state samples.
	ClipID int

	// Time is the state's clock in ticks.
	Time float32

	// Weight is the state's blend weight within its layer.
	Weight float32

	// Mask selects the bones the state contributes to.
	Mask skeleton.BoneMask
}

// Blackboard owns a character's layers and aggregates their weighted states every tick.
type Blackboard struct {
	layers     []*Layer
	controller Controller
	active     []Snapshot
}

// NewBlackboard creates a blackboard over the given layers, in blend order.
func NewBlackboard(layers ...*Layer) *Blackboard {
	return &Blackboard{
		layers: layers,
		active: make([]Snapshot, 0, 2*len(layers)),
	}
}

// SetController supplies the controller signals used by the next Update.
func (b *Blackboard) SetController(c Controller) {
	b.controller = c
}

// Controller returns the controller supplied by SetController.
func (b *Blackboard) Controller() Controller {
	return b.controller
}

// Layers returns the layers in blend order.
func (b *Blackboard) Layers() []*Layer {
	return b.layers
}

// Layer returns the named layer, or nil.
func (b *Blackboard) Layer(name string) *Layer {
	for _, l := range b.layers {
		if l.name == name {
			return l
		}
	}
	return nil
}

// Update advances every layer by dt seconds, then rebuilds the active snapshot list: each
// layer's active state, followed by its target state while a transition is in flight.
//
// Parameters:
//   - dt: elapsed time in seconds
func (b *Blackboard) Update(dt float32) {
	for _, l := range b.layers {
		l.Update(dt, b.controller)
	}

	b.active = b.active[:0]
	for _, l := range b.layers {
		b.active = append(b.active, snapshotOf(l.name, l.Active()))
		if t := l.Target(); t != nil {
			b.active = append(b.active, snapshotOf(l.name, t))
		}
	}
}

// ActiveStates returns the snapshots built by the last Update. The slice is reused by the next
// Update; callers that keep it must copy it.
func (b *Blackboard) ActiveStates() []Snapshot {
	return b.active
}

func snapshotOf(layer string, s *State) Snapshot {
	return Snapshot{
		Layer:  layer,
		State:  s.Name,
		ClipID: s.ClipID,
		Time:   s.Time,
		Weight: s.Weight,
		Mask:   s.Mask,
	}
}
