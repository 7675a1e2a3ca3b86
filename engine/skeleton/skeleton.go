// Package skeleton holds the bone hierarchy shared by every character bound to it, together
// with the local transform, bone mask and matrix composition primitives the rest of the
// animation kernel is built on.
package skeleton

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxBones is the engine-wide ceiling on bones per skeleton. Pose and matrix buffers are
// pre-sized to it and BoneMask is exactly this wide.
const MaxBones = 128

// ErrInvalidData reports malformed skeleton or clip data detected at load or bind time.
var ErrInvalidData = errors.New("invalid animation data")

// Bone represents a single bone in a skeleton hierarchy.
type Bone struct {
	// Name is the bone's identifier (for debugging and animation targeting).
	Name string

	// ParentIndex is the index of the parent bone (-1 for root bones).
	ParentIndex int32

	// BindOffset transforms from model space to bone space at bind pose.
	// This is the inverse of the bone's to-root transform when the mesh was bound.
	BindOffset mgl32.Mat4

	// Rest is the bone's bind-pose transform relative to its parent.
	Rest Transform
}

// Skeleton represents a bone hierarchy for skeletal animation.
// Bones are stored in topological order: every ParentIndex is less than the bone's own index.
type Skeleton struct {
	// Bones is the array of all bones in the skeleton.
	Bones []Bone

	// RootBoneIndices are indices of bones with no parent.
	RootBoneIndices []int32

	// BoneNameToIndex maps bone names to their indices for quick lookup.
	BoneNameToIndex map[string]int32
}

// New validates bones and builds a Skeleton from them.
//
// Parameters:
//   - bones: the bones in topological order
//
// Returns:
//   - *Skeleton: the skeleton
//   - error: ErrInvalidData when the bone count exceeds MaxBones or a parent index does not
//     precede its child
func New(bones []Bone) (*Skeleton, error) {
	if len(bones) > MaxBones {
		return nil, fmt.Errorf("%d bones exceeds the %d bone ceiling: %w", len(bones), MaxBones, ErrInvalidData)
	}

	s := &Skeleton{
		Bones:           bones,
		BoneNameToIndex: make(map[string]int32, len(bones)),
	}
	for i, b := range bones {
		if b.ParentIndex >= int32(i) || b.ParentIndex < -1 {
			return nil, fmt.Errorf("bone %d (%s): parent %d is not topologically ordered: %w", i, b.Name, b.ParentIndex, ErrInvalidData)
		}
		if b.ParentIndex == -1 {
			s.RootBoneIndices = append(s.RootBoneIndices, int32(i))
		}
		if b.Name != "" {
			s.BoneNameToIndex[b.Name] = int32(i)
		}
	}
	return s, nil
}

// BoneCount returns the number of bones in the skeleton.
func (s *Skeleton) BoneCount() int {
	return len(s.Bones)
}

// BoneIndex returns the index of the named bone, or -1 if not found.
func (s *Skeleton) BoneIndex(name string) int {
	if i, ok := s.BoneNameToIndex[name]; ok {
		return int(i)
	}
	return -1
}

// Parent returns the parent index of bone i, or -1 for roots and out-of-range indices.
func (s *Skeleton) Parent(i int) int {
	if i < 0 || i >= len(s.Bones) {
		return -1
	}
	return int(s.Bones[i].ParentIndex)
}

// RestPose fills out with every bone's rest transform.
//
// Parameters:
//   - out: destination slice (must be at least BoneCount elements)
func (s *Skeleton) RestPose(out []Transform) {
	for i := range s.Bones {
		out[i] = s.Bones[i].Rest
	}
}

// ComposeToRoot composes local transforms up the hierarchy into model-space to-root matrices.
// Bones are visited in index order so a parent's matrix is final before any child reads it.
// A root bone's matrix is exactly its local affine matrix.
//
// Parameters:
//   - bones: the bone hierarchy in topological order
//   - local: the local transform per bone
//   - out: destination matrices (must be at least len(bones) elements)
func ComposeToRoot(bones []Bone, local []Transform, out []mgl32.Mat4) {
	ComposeToRootFrom(bones, local, out, 0)
}

// ComposeToRootFrom re-derives to-root matrices for bones with index >= first, assuming
// every matrix below first is already current.
//
// Parameters:
//   - bones: the bone hierarchy in topological order
//   - local: the local transform per bone
//   - out: destination matrices (must be at least len(bones) elements)
//   - first: the lowest bone index to recompute
func ComposeToRootFrom(bones []Bone, local []Transform, out []mgl32.Mat4, first int) {
	if first < 0 {
		first = 0
	}
	for i := first; i < len(bones); i++ {
		m := local[i].Matrix()
		if p := bones[i].ParentIndex; p >= 0 {
			m = out[p].Mul4(m)
		}
		out[i] = m
	}
}

// DeriveBindOffsets sets every bone's BindOffset to the inverse of its rest-pose to-root
// matrix. Used when source data carries no inverse bind matrices.
//
// Parameters:
//   - bones: the bone hierarchy in topological order, modified in place
func DeriveBindOffsets(bones []Bone) {
	local := make([]Transform, len(bones))
	for i := range bones {
		local[i] = bones[i].Rest
	}
	toRoot := make([]mgl32.Mat4, len(bones))
	ComposeToRoot(bones, local, toRoot)
	for i := range bones {
		bones[i].BindOffset = toRoot[i].Inv()
	}
}
