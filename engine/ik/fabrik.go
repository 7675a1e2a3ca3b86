package ik

import (
	"log"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// DefaultMaxIterations bounds both solvers when no explicit limit is configured.
	DefaultMaxIterations = 10

	// fabrikThresholdSq is the squared end-effector distance at which FABRIK stops.
	fabrikThresholdSq = 0.1

	minSegment = 1e-6
)

// FABRIK is a forward-and-backward reaching solver. The zero value is ready to use.
type FABRIK struct {
	// MaxIterations bounds the reaching passes. Zero means DefaultMaxIterations.
	MaxIterations int

	// Metrics, when set, receives one observation per solve.
	Metrics *Metrics

	// Logger receives the iteration-bound warning. Nil means log.Default().
	Logger *log.Logger
}

var _ Solver = (*FABRIK)(nil)

// Name returns "fabrik".
func (f *FABRIK) Name() string {
	return "fabrik"
}

// Solve positions the chain's joints so the end effector reaches e.Target, then rotates every
// link top-down so its bone points along the solved segment.
//
// An unreachable target stretches the chain straight toward it. Otherwise forward and
// backward passes alternate until the squared end-effector distance drops below 0.1 or
// MaxIterations passes ran; exhausting the bound is logged and the best pose is kept.
//
// Parameters:
//   - e: the effector to satisfy
//   - skel: the skeleton owning the chain
//   - local: the local pose, edited in place
//
// Returns:
//   - Result: the solve outcome; FirstBone is -1 when e is invalid
func (f *FABRIK) Solve(e Effector, skel *skeleton.Skeleton, local []skeleton.Transform) Result {
	if !e.Valid(skel) {
		return Result{FirstBone: -1}
	}

	c := newChain(e, skel, local)
	p := c.points(make([]mgl32.Vec3, 0, len(c.links)+1))
	n := len(p) - 1

	d := make([]float32, n)
	var total float32
	for i := 0; i < n; i++ {
		d[i] = p[i+1].Sub(p[i]).Len()
		total += d[i]
	}

	res := Result{Reachable: true, FirstBone: c.links[0]}
	root := p[0]
	if e.Target.Sub(root).Len() > total {
		res.Reachable = false
		for i := 0; i < n; i++ {
			r := e.Target.Sub(p[i]).Len()
			if r < minSegment {
				continue
			}
			lambda := d[i] / r
			p[i+1] = p[i].Mul(1 - lambda).Add(e.Target.Mul(lambda))
		}
	} else {
		limit := common.Coalesce(f.MaxIterations, DefaultMaxIterations)
		for distSq(p[n], e.Target) >= fabrikThresholdSq {
			if res.Iterations >= limit {
				f.logger().Printf("[IK] fabrik: bone %d hit the %d iteration bound %.3f from target", e.ParentBone, limit, p[n].Sub(e.Target).Len())
				break
			}
			p[n] = e.Target
			for i := n - 1; i >= 0; i-- {
				reach(p, i, i+1, d[i])
			}
			p[0] = root
			for i := 0; i < n; i++ {
				reach(p, i+1, i, d[i])
			}
			res.Iterations++
		}
	}

	for k := range c.links {
		next := c.tip()
		if k+1 < len(c.links) {
			next = c.position(k + 1)
		}
		from := next.Sub(c.position(k))
		to := p[k+1].Sub(p[k])
		c.rotateLink(local, k, common.RotationBetween(from, to))
	}

	res.Distance = c.tip().Sub(e.Target).Len()
	res.Converged = res.Reachable && res.Distance*res.Distance < fabrikThresholdSq
	f.Metrics.observe(f.Name(), res)
	return res
}

func (f *FABRIK) logger() *log.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return log.Default()
}

// reach moves p[moved] onto the segment toward p[anchor] so the two sit length apart.
func reach(p []mgl32.Vec3, moved, anchor int, length float32) {
	r := p[moved].Sub(p[anchor]).Len()
	if r < minSegment {
		return
	}
	lambda := length / r
	p[moved] = p[anchor].Mul(1 - lambda).Add(p[moved].Mul(lambda))
}

func distSq(a, b mgl32.Vec3) float32 {
	v := a.Sub(b)
	return v.Dot(v)
}
