// Package ik post-processes a blended pose so a bone chain reaches a positional target.
// Solvers edit local transforms in place and hold configuration only, so one solver value can
// serve every character concurrently.
package ik

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// AngularLimit bounds one chain link's local rotation as Euler angles in radians.
// Limits are carried with the effector but the solvers do not enforce them yet.
type AngularLimit struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Effector describes one IK request: the chain that may move and the point it should reach.
type Effector struct {
	// ParentBone is the bone the end effector hangs off. It is the lowest link of the chain.
	ParentBone int

	// ChainLength is the number of bones, ParentBone included, the solver may rotate.
	// The chain is cut short at a root bone.
	ChainLength int

	// Target is the model-space point the end effector should reach.
	Target mgl32.Vec3

	// LocalOffset places the end effector in ParentBone's space.
	LocalOffset mgl32.Vec3

	// AngularLimits optionally holds one limit per chain link, top-most link first.
	AngularLimits []AngularLimit
}

// Valid reports whether the effector names an existing bone and a non-empty chain.
//
// Parameters:
//   - skel: the skeleton the effector refers to
//
// Returns:
//   - bool: true if the effector can be solved against skel
func (e Effector) Valid(skel *skeleton.Skeleton) bool {
	return skel != nil && e.ChainLength > 0 && e.ParentBone >= 0 && e.ParentBone < skel.BoneCount()
}

// Solver moves a chain of local transforms so the effector approaches its target.
type Solver interface {
	// Name identifies the solver in logs and metrics.
	Name() string

	// Solve edits local in place and reports how the solve went.
	Solve(e Effector, skel *skeleton.Skeleton, local []skeleton.Transform) Result
}

// Result reports the outcome of one solve. It never changes the numeric result of a solver.
type Result struct {
	// Iterations is the number of passes the solver ran.
	Iterations int

	// Converged is true when the end effector finished within the solver's threshold.
	Converged bool

	// Reachable is false when the target lay beyond the chain's full extension.
	Reachable bool

	// Distance is the final distance between the end effector and the target.
	Distance float32

	// FirstBone is the lowest bone index the solve may have changed, or -1 if nothing changed.
	// Matrices for bones at or above it need re-deriving.
	FirstBone int
}
