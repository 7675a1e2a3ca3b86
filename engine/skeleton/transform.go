package skeleton

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Transform represents a decomposed local bone transform (SRT).
type Transform struct {
	// Translation is the position offset relative to the parent bone.
	Translation mgl32.Vec3

	// Rotation is the orientation relative to the parent bone.
	Rotation mgl32.Quat

	// Scale is the scale factor along each axis.
	Scale mgl32.Vec3
}

// IdentityTransform returns a transform with no translation, no rotation and unit scale.
//
// Returns:
//   - Transform: the identity transform
func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Matrix builds the affine matrix T * R * S for this transform (column-major, column vectors).
//
// Returns:
//   - mgl32.Mat4: the affine transform matrix
func (t Transform) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(t.Translation[0], t.Translation[1], t.Translation[2]).
		Mul4(t.Rotation.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

// Interpolate blends from t towards other by factor f: translation and scale are linearly
// interpolated, rotation is spherically interpolated along the shortest arc.
//
// Parameters:
//   - other: the transform at f = 1
//   - f: the blend factor
//
// Returns:
//   - Transform: the blended transform
func (t Transform) Interpolate(other Transform, f float32) Transform {
	return Transform{
		Translation: common.LerpVec3(t.Translation, other.Translation, f),
		Rotation:    common.Slerp(t.Rotation, other.Rotation, f),
		Scale:       common.LerpVec3(t.Scale, other.Scale, f),
	}
}
