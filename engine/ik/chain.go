package ik

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// WorldTransform composes the model-space matrix of bone by walking its parent links.
// It reads only local and the hierarchy, so it is safe to call mid-solve.
//
// Parameters:
//   - bones: the topologically ordered bone list
//   - local: the local transform of every bone
//   - bone: the bone to evaluate, or -1 for the model origin
//
// Returns:
//   - mgl32.Mat4: the bone's to-root matrix
func WorldTransform(bones []skeleton.Bone, local []skeleton.Transform, bone int) mgl32.Mat4 {
	m := mgl32.Ident4()
	for i := bone; i >= 0; i = int(bones[i].ParentIndex) {
		m = local[i].Matrix().Mul4(m)
	}
	return m
}

// WorldRotation composes the model-space rotation of bone, ignoring scale.
//
// Parameters:
//   - bones: the topologically ordered bone list
//   - local: the local transform of every bone
//   - bone: the bone to evaluate, or -1 for the model origin
//
// Returns:
//   - mgl32.Quat: the bone's accumulated unit rotation
func WorldRotation(bones []skeleton.Bone, local []skeleton.Transform, bone int) mgl32.Quat {
	q := mgl32.QuatIdent()
	for i := bone; i >= 0; i = int(bones[i].ParentIndex) {
		q = local[i].Rotation.Normalize().Mul(q)
	}
	return q.Normalize()
}

// chain is the working set of one solve: the chain's bones top-down and their world state.
type chain struct {
	bones  []skeleton.Bone
	links  []int
	offset mgl32.Vec3

	parentWorld mgl32.Mat4
	parentRot   mgl32.Quat

	world []mgl32.Mat4
	rot   []mgl32.Quat
}

func newChain(e Effector, skel *skeleton.Skeleton, local []skeleton.Transform) *chain {
	links := make([]int, 0, e.ChainLength)
	idx := e.ParentBone
	for len(links) < e.ChainLength && idx >= 0 {
		links = append(links, idx)
		idx = skel.Parent(idx)
	}
	for i, j := 0, len(links)-1; i < j; i, j = i+1, j-1 {
		links[i], links[j] = links[j], links[i]
	}

	c := &chain{
		bones:       skel.Bones,
		links:       links,
		offset:      e.LocalOffset,
		parentWorld: WorldTransform(skel.Bones, local, idx),
		parentRot:   WorldRotation(skel.Bones, local, idx),
		world:       make([]mgl32.Mat4, len(links)),
		rot:         make([]mgl32.Quat, len(links)),
	}
	c.refresh(local, 0)
	return c
}

// refresh recomputes world state for links at or below k.
func (c *chain) refresh(local []skeleton.Transform, k int) {
	for i := k; i < len(c.links); i++ {
		t := local[c.links[i]]
		if i == 0 {
			c.world[i] = c.parentWorld.Mul4(t.Matrix())
			c.rot[i] = c.parentRot.Mul(t.Rotation.Normalize()).Normalize()
			continue
		}
		c.world[i] = c.world[i-1].Mul4(t.Matrix())
		c.rot[i] = c.rot[i-1].Mul(t.Rotation.Normalize()).Normalize()
	}
}

func (c *chain) position(k int) mgl32.Vec3 {
	return c.world[k].Col(3).Vec3()
}

func (c *chain) tip() mgl32.Vec3 {
	return c.world[len(c.links)-1].Mul4x1(c.offset.Vec4(1)).Vec3()
}

// points writes the link positions followed by the end effector into out.
func (c *chain) points(out []mgl32.Vec3) []mgl32.Vec3 {
	out = out[:0]
	for k := range c.links {
		out = append(out, c.position(k))
	}
	return append(out, c.tip())
}

// rotateLink applies the model-space rotation q to link k by converting it into the link's
// parent space and left-multiplying it into the local rotation.
func (c *chain) rotateLink(local []skeleton.Transform, k int, q mgl32.Quat) {
	parent := c.parentRot
	if k > 0 {
		parent = c.rot[k-1]
	}
	bone := c.links[k]
	delta := parent.Inverse().Mul(q).Mul(parent)
	local[bone].Rotation = delta.Mul(local[bone].Rotation).Normalize()
	c.refresh(local, k)
}
