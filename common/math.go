package common

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice, e.g. skinning matrices for a GPU upload.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// Clamp01 clamps v into the [0, 1] range.
//
// Parameters:
//   - v: the value to clamp
//
// Returns:
//   - float32: v limited to [0, 1]
func Clamp01(v float32) float32 {
	return mgl32.Clamp(v, 0, 1)
}

// LerpVec3 linearly interpolates component-wise between a and b.
//
// Parameters:
//   - a: the value at t = 0
//   - b: the value at t = 1
//   - t: the interpolation factor
//
// Returns:
//   - mgl32.Vec3: a + (b - a) * t
func LerpVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return mgl32.Vec3{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
		a[2] + (b[2]-a[2])*t,
	}
}

// Slerp spherically interpolates between two rotations along the shortest arc.
// mgl32.QuatSlerp interpolates along whichever hemisphere b lies in, so b is negated first
// when the two quaternions have a negative dot product. The result is normalized.
//
// Parameters:
//   - a: the rotation at t = 0
//   - b: the rotation at t = 1
//   - t: the interpolation factor
//
// Returns:
//   - mgl32.Quat: the interpolated unit quaternion
func Slerp(a, b mgl32.Quat, t float32) mgl32.Quat {
	if t <= 0 {
		return a.Normalize()
	}
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	if t >= 1 {
		return b.Normalize()
	}
	return mgl32.QuatSlerp(a, b, t).Normalize()
}

// RotationBetween returns the shortest-arc rotation taking direction from onto direction to.
// Zero-length inputs yield the identity rotation.
//
// Parameters:
//   - from: the starting direction (need not be normalized)
//   - to: the destination direction (need not be normalized)
//
// Returns:
//   - mgl32.Quat: the unit rotation with Rotate(from) parallel to to
func RotationBetween(from, to mgl32.Vec3) mgl32.Quat {
	if from.Len() < 1e-6 || to.Len() < 1e-6 {
		return mgl32.QuatIdent()
	}
	return mgl32.QuatBetweenVectors(from, to).Normalize()
}
