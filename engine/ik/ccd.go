package ik

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
)

const (
	ccdThreshold  = 0.5
	ccdDegenerate = 0.001
)

// CCD is a backward-bounce cyclic coordinate descent solver. The zero value is ready to use.
type CCD struct {
	// MaxIterations bounds the passes over the chain. Zero means DefaultMaxIterations.
	MaxIterations int

	// Metrics, when set, receives one observation per solve.
	Metrics *Metrics
}

var _ Solver = (*CCD)(nil)

// Name returns "ccd".
func (s *CCD) Name() string {
	return "ccd"
}

// Solve walks the chain from e.ParentBone upward once per pass, turning each link so the end
// effector swings toward the target. It stops as soon as the end effector is within 0.5 of the
// target. Links sitting on the end effector are skipped.
//
// Parameters:
//   - e: the effector to satisfy
//   - skel: the skeleton owning the chain
//   - local: the local pose, edited in place
//
// Returns:
//   - Result: the solve outcome; FirstBone is -1 when e is invalid
func (s *CCD) Solve(e Effector, skel *skeleton.Skeleton, local []skeleton.Transform) Result {
	if !e.Valid(skel) {
		return Result{FirstBone: -1}
	}

	c := newChain(e, skel, local)
	res := Result{FirstBone: c.links[0]}

	var extent float32
	for k := range c.links {
		next := c.tip()
		if k+1 < len(c.links) {
			next = c.position(k + 1)
		}
		extent += next.Sub(c.position(k)).Len()
	}
	res.Reachable = e.Target.Sub(c.position(0)).Len() <= extent

	limit := common.Coalesce(s.MaxIterations, DefaultMaxIterations)
passes:
	for res.Iterations < limit {
		if c.tip().Sub(e.Target).Len() < ccdThreshold {
			break
		}
		res.Iterations++
		for k := len(c.links) - 1; k >= 0; k-- {
			pe := c.tip()
			if e.Target.Sub(pe).Len() < ccdThreshold {
				break passes
			}
			pc := c.position(k)
			if pc.Sub(pe).Len() < ccdDegenerate {
				continue
			}
			c.rotateLink(local, k, common.RotationBetween(pe.Sub(pc), e.Target.Sub(pc)))
		}
	}

	res.Distance = c.tip().Sub(e.Target).Len()
	res.Converged = res.Distance < ccdThreshold
	s.Metrics.observe(s.Name(), res)
	return res
}
