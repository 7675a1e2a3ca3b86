// Package blender turns a tick's weighted animation states into one skeletal pose and the
// to-root and skinning matrices a renderer consumes.
package blender

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// BlendItem is one weighted clip sample in the current tick's plan.
type BlendItem struct {
	// ClipID is the clip store id to sample.
	ClipID int

	// Weight is the item's blend weight.
	Weight float32

	// Mask selects the bones the item contributes to.
	Mask skeleton.BoneMask

	// BeginFrame and EndFrame are the sample indices bracketing the item's time.
	BeginFrame, EndFrame int

	// NormalizedTime is the interpolation factor between BeginFrame and EndFrame.
	NormalizedTime float32
}

// ClipSource resolves clip ids. *clip.Store satisfies it.
type ClipSource interface {
	Clip(id int) *clip.Clip
}

// Blender owns one character's pose buffers. Buffers are sized to skeleton.MaxBones up front
// and never reallocated, so calling the per-tick methods out of order only yields stale data.
type Blender struct {
	skel  *skeleton.Skeleton
	clips ClipSource

	items []BlendItem

	local    []skeleton.Transform
	weights  []float32
	toRoot   []mgl32.Mat4
	skinning []mgl32.Mat4
}

// New creates a Blender for skel sampling from clips. The pose starts at the rest pose.
//
// Parameters:
//   - skel: the skeleton to pose
//   - clips: the clip store; every clip must match the skeleton's bone count
//
// Returns:
//   - *Blender: the blender
//   - error: ErrInvalidData if the clips do not bind to the skeleton
func New(skel *skeleton.Skeleton, clips *clip.Store) (*Blender, error) {
	if skel == nil || clips == nil {
		panic("blender: New requires a non-nil skeleton and clip store")
	}
	if err := clips.Bind(skel); err != nil {
		return nil, fmt.Errorf("bind clips: %w", err)
	}

	b := &Blender{
		skel:     skel,
		clips:    clips,
		items:    make([]BlendItem, 0, 8),
		local:    make([]skeleton.Transform, skeleton.MaxBones),
		weights:  make([]float32, skeleton.MaxBones),
		toRoot:   make([]mgl32.Mat4, skeleton.MaxBones),
		skinning: make([]mgl32.Mat4, skeleton.MaxBones),
	}
	skel.RestPose(b.local)
	b.UpdateMatrices()
	return b, nil
}

// Skeleton returns the skeleton this blender poses.
func (b *Blender) Skeleton() *skeleton.Skeleton {
	return b.skel
}

// UpdatePlan rebuilds the blend plan from the tick's active states, locating the keyframe
// pair that brackets each state's time in its clip.
//
// Parameters:
//   - active: the blackboard's active snapshots, in blend order
func (b *Blender) UpdatePlan(active []animation.Snapshot) {
	b.items = b.items[:0]
	for _, s := range active {
		c := b.clips.Clip(s.ClipID)
		if c == nil {
			continue
		}
		begin, end, n := clip.FindKeyframes(c.SampleTimes, s.Time)
		b.items = append(b.items, BlendItem{
			ClipID:         s.ClipID,
			Weight:         s.Weight,
			Mask:           s.Mask,
			BeginFrame:     begin,
			EndFrame:       end,
			NormalizedTime: n,
		})
	}
}

// Items returns the current blend plan.
func (b *Blender) Items() []BlendItem {
	return b.items
}

// Blend folds every plan item into the local pose in plan order. For each bone an item
// selects, the item's sample is blended against what has accumulated so far by
// weight / (weight + W), W being the weight already folded into that bone. Rotation folding is
// sequential slerp, so with more than two contributors the result depends on item order and
// approximates, rather than equals, a weighted spherical mean.
//
// Bones no item selects keep the rest pose. Items with non-positive weight are skipped.
func (b *Blender) Blend() {
	n := b.skel.BoneCount()
	b.skel.RestPose(b.local)
	for i := 0; i < n; i++ {
		b.weights[i] = 0
	}

	for _, it := range b.items {
		if it.Weight <= 0 {
			continue
		}
		c := b.clips.Clip(it.ClipID)
		if c == nil {
			continue
		}
		for bone := 0; bone < n; bone++ {
			if !it.Mask.Has(bone) {
				continue
			}
			sample := clip.SampleBone(c, bone, it.BeginFrame, it.EndFrame, it.NormalizedTime)
			w := b.weights[bone]
			nw := it.Weight / (it.Weight + w)
			if w == 0 {
				b.local[bone] = sample
			} else {
				acc := b.local[bone]
				b.local[bone] = skeleton.Transform{
					Translation: common.LerpVec3(acc.Translation, sample.Translation, nw),
					Rotation:    common.Slerp(acc.Rotation, sample.Rotation, nw),
					Scale:       common.LerpVec3(acc.Scale, sample.Scale, nw),
				}
			}
			b.weights[bone] = w + it.Weight
		}
	}
}

// BoneWeight returns the total weight Blend folded into bone.
func (b *Blender) BoneWeight(bone int) float32 {
	if bone < 0 || bone >= b.skel.BoneCount() {
		return 0
	}
	return b.weights[bone]
}

// Local returns the blended local pose, one transform per bone. IK solvers edit it in place
// before UpdateMatricesFrom re-derives the affected matrices.
func (b *Blender) Local() []skeleton.Transform {
	return b.local[:b.skel.BoneCount()]
}

// UpdateMatrices composes the local pose into to-root and skinning matrices for every bone.
func (b *Blender) UpdateMatrices() {
	b.UpdateMatricesFrom(0)
}

// UpdateMatricesFrom re-derives to-root and skinning matrices for bones with index >= first.
// Because bones are topologically ordered, every bone below first keeps valid matrices.
//
// Parameters:
//   - first: the lowest bone index whose local transform changed
func (b *Blender) UpdateMatricesFrom(first int) {
	bones := b.skel.Bones
	skeleton.ComposeToRootFrom(bones, b.local, b.toRoot, first)
	for i := max(first, 0); i < len(bones); i++ {
		b.skinning[i] = b.toRoot[i].Mul4(bones[i].BindOffset)
	}
}

// ToRoot returns the model-space to-root matrix of every bone.
func (b *Blender) ToRoot() []mgl32.Mat4 {
	return b.toRoot[:b.skel.BoneCount()]
}

// Skinning returns the skinning matrix of every bone: to-root times bind offset, column-major,
// ready for a column-vector vertex shader.
func (b *Blender) Skinning() []mgl32.Mat4 {
	return b.skinning[:b.skel.BoneCount()]
}

// SkinningBytes returns a raw byte view of the skinning matrices for buffer upload.
// WARNING: The returned slice shares memory with the blender - do not modify, and copy it
// before the next tick if it must outlive one.
func (b *Blender) SkinningBytes() []byte {
	return common.SliceToBytes(b.Skinning())
}
