// Package character glues one animated instance together: its blackboard of layers, its pose
// blender, its controller and the IK requests queued against it, run in the per-tick order.
package character

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/blender"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/ik"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// IKRequest pairs an effector with the solver that should satisfy it.
type IKRequest struct {
	Solver   ik.Solver
	Effector ik.Effector
}

// character is the implementation of the Character interface.
type character struct {
	id   uuid.UUID
	name string

	skel       *skeleton.Skeleton
	clips      *clip.Store
	layerDefs  []animation.LayerDef
	blackboard *animation.Blackboard
	blender    *blender.Blender

	mu         sync.Mutex
	controller animation.Controller
	pending    []IKRequest
	persistent []IKRequest
	plays      []playRequest

	solving   []IKRequest
	ikResults []ik.Result
}

// playRequest is a Play call waiting for the next Tick.
type playRequest struct {
	layer *animation.Layer
	state string
}

// Character defines the public interface for one animated instance.
//
// A Character exclusively owns its Blackboard and Blender. The Skeleton and clip Store it was
// built from are shared with other characters and never modified. Tick must not run
// concurrently with itself; distinct characters may tick in parallel.
type Character interface {
	// ID returns the character's unique identifier.
	//
	// Returns:
	//   - uuid.UUID: the identifier
	ID() uuid.UUID

	// Name returns the character's display name.
	//
	// Returns:
	//   - string: the name, possibly empty
	Name() string

	// Skeleton returns the shared skeleton the character poses.
	//
	// Returns:
	//   - *skeleton.Skeleton: the skeleton
	Skeleton() *skeleton.Skeleton

	// Blackboard returns the character's layer state.
	//
	// Returns:
	//   - *animation.Blackboard: the blackboard
	Blackboard() *animation.Blackboard

	// Blender returns the character's pose buffers.
	//
	// Returns:
	//   - *blender.Blender: the blender
	Blender() *blender.Blender

	// SetController replaces the signals that transition predicates read from the next Tick on.
	//
	// Parameters:
	//   - c: the controller, or nil to make every predicate that reads one see false/zero
	SetController(c animation.Controller)

	// Play jumps a layer straight to a state, cancelling any in-flight transition. The jump is
	// applied at the start of the next Tick, so Play is safe to call while a scene worker ticks
	// the character. Several plays before one Tick apply in call order.
	//
	// Parameters:
	//   - layer: the layer name
	//   - state: the state name
	//
	// Returns:
	//   - bool: false if the layer or state does not exist
	Play(layer, state string) bool

	// QueueIK adds a one-shot IK request solved during the next Tick only.
	//
	// Parameters:
	//   - req: the request; requests with a nil solver are dropped
	QueueIK(req IKRequest)

	// SetPersistentIK replaces the IK requests solved on every Tick, after the one-shot queue.
	//
	// Parameters:
	//   - reqs: the requests
	SetPersistentIK(reqs ...IKRequest)

	// Tick advances the character by dt seconds: layers, blend plan, blend, matrices, IK, and
	// matrix re-derivation for the bones IK touched.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Tick(dt float32)

	// ActiveStates returns the weighted states of the last Tick. The slice is reused.
	//
	// Returns:
	//   - []animation.Snapshot: the active and target states of every layer
	ActiveStates() []animation.Snapshot

	// IKResults returns the outcome of every IK request solved during the last Tick.
	//
	// Returns:
	//   - []ik.Result: one result per request, in solve order
	IKResults() []ik.Result

	// ToRoot returns the model-space matrix of every bone after the last Tick.
	//
	// Returns:
	//   - []mgl32.Mat4: one matrix per bone
	ToRoot() []mgl32.Mat4

	// Skinning returns the skinning matrix of every bone after the last Tick.
	//
	// Returns:
	//   - []mgl32.Mat4: one matrix per bone
	Skinning() []mgl32.Mat4

	// SkinningBytes returns the skinning matrices as a raw byte view for buffer upload.
	//
	// Returns:
	//   - []byte: a view sharing memory with the character's buffers
	SkinningBytes() []byte
}

var _ Character = &character{}

// NewCharacter creates a Character posing skel with clips from the store.
// Layers are declared with WithLayers; a character without layers holds the rest pose.
//
// Parameters:
//   - skel: the shared skeleton
//   - clips: the shared clip store; every clip must match the skeleton's bone count
//   - options: variadic list of CharacterBuilderOption functions to configure the Character
//
// Returns:
//   - Character: the configured character
//   - error: ErrInvalidData if the clips or layer declarations do not fit the skeleton
func NewCharacter(skel *skeleton.Skeleton, clips *clip.Store, options ...CharacterBuilderOption) (Character, error) {
	if skel == nil || clips == nil {
		panic("character: NewCharacter requires a non-nil skeleton and clip store")
	}
	c := &character{
		id:    uuid.New(),
		skel:  skel,
		clips: clips,
	}
	for _, opt := range options {
		opt(c)
	}

	b, err := blender.New(skel, clips)
	if err != nil {
		return nil, fmt.Errorf("character %s: %w", c.id, err)
	}
	c.blender = b

	layers := make([]*animation.Layer, 0, len(c.layerDefs))
	for _, def := range c.layerDefs {
		l, err := animation.NewLayer(def, clips)
		if err != nil {
			return nil, fmt.Errorf("character %s: %w", c.id, err)
		}
		layers = append(layers, l)
	}
	c.blackboard = animation.NewBlackboard(layers...)
	c.blackboard.SetController(c.controller)
	return c, nil
}

func (c *character) ID() uuid.UUID {
	return c.id
}

func (c *character) Name() string {
	return c.name
}

func (c *character) Skeleton() *skeleton.Skeleton {
	return c.skel
}

func (c *character) Blackboard() *animation.Blackboard {
	return c.blackboard
}

func (c *character) Blender() *blender.Blender {
	return c.blender
}

func (c *character) SetController(ctrl animation.Controller) {
	c.mu.Lock()
	c.controller = ctrl
	c.mu.Unlock()
}

func (c *character) Play(layer, state string) bool {
	// Layer and state names are fixed at construction, so the lookups need no lock.
	l := c.blackboard.Layer(layer)
	if l == nil || l.State(state) == nil {
		return false
	}
	c.mu.Lock()
	c.plays = append(c.plays, playRequest{layer: l, state: state})
	c.mu.Unlock()
	return true
}

func (c *character) QueueIK(req IKRequest) {
	if req.Solver == nil {
		return
	}
	c.mu.Lock()
	c.pending = append(c.pending, req)
	c.mu.Unlock()
}

func (c *character) SetPersistentIK(reqs ...IKRequest) {
	kept := make([]IKRequest, 0, len(reqs))
	for _, r := range reqs {
		if r.Solver != nil {
			kept = append(kept, r)
		}
	}
	c.mu.Lock()
	c.persistent = kept
	c.mu.Unlock()
}

func (c *character) Tick(dt float32) {
	c.mu.Lock()
	c.blackboard.SetController(c.controller)
	c.solving = append(c.solving[:0], c.pending...)
	c.solving = append(c.solving, c.persistent...)
	c.pending = c.pending[:0]
	for _, p := range c.plays {
		p.layer.Play(p.state)
	}
	c.plays = c.plays[:0]
	c.mu.Unlock()

	c.blackboard.Update(dt)
	c.blender.UpdatePlan(c.blackboard.ActiveStates())
	c.blender.Blend()
	c.blender.UpdateMatrices()

	c.ikResults = c.ikResults[:0]
	if len(c.solving) == 0 {
		return
	}
	first := -1
	local := c.blender.Local()
	for _, req := range c.solving {
		res := req.Solver.Solve(req.Effector, c.skel, local)
		c.ikResults = append(c.ikResults, res)
		if res.FirstBone >= 0 && (first < 0 || res.FirstBone < first) {
			first = res.FirstBone
		}
	}
	if first >= 0 {
		c.blender.UpdateMatricesFrom(first)
	}
}

func (c *character) ActiveStates() []animation.Snapshot {
	return c.blackboard.ActiveStates()
}

func (c *character) IKResults() []ik.Result {
	return c.ikResults
}

func (c *character) ToRoot() []mgl32.Mat4 {
	return c.blender.ToRoot()
}

func (c *character) Skinning() []mgl32.Mat4 {
	return c.blender.Skinning()
}

func (c *character) SkinningBytes() []byte {
	return c.blender.SkinningBytes()
}
