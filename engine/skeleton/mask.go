package skeleton

import "math/bits"

// BoneMask is a fixed-width bit set selecting bones by index. Its width is MaxBones, the
// engine-wide bone ceiling, so any valid bone index fits.
type BoneMask [MaxBones / 64]uint64

// FullMask returns a mask selecting every bone index below MaxBones.
//
// Returns:
//   - BoneMask: the full mask
func FullMask() BoneMask {
	var m BoneMask
	for i := range m {
		m[i] = ^uint64(0)
	}
	return m
}

// MaskOf returns a mask selecting exactly the given bone indices.
// Indices outside [0, MaxBones) are ignored.
//
// Parameters:
//   - indices: the bone indices to select
//
// Returns:
//   - BoneMask: the mask
func MaskOf(indices ...int) BoneMask {
	var m BoneMask
	for _, i := range indices {
		m.Set(i)
	}
	return m
}

// Set selects bone i. No-op when i is out of range.
func (m *BoneMask) Set(i int) {
	if i < 0 || i >= MaxBones {
		return
	}
	m[i>>6] |= 1 << uint(i&63)
}

// Clear deselects bone i. No-op when i is out of range.
func (m *BoneMask) Clear(i int) {
	if i < 0 || i >= MaxBones {
		return
	}
	m[i>>6] &^= 1 << uint(i&63)
}

// Has reports whether bone i is selected.
func (m BoneMask) Has(i int) bool {
	if i < 0 || i >= MaxBones {
		return false
	}
	return m[i>>6]&(1<<uint(i&63)) != 0
}

// Count returns the number of selected bones.
func (m BoneMask) Count() int {
	n := 0
	for _, w := range m {
		n += bits.OnesCount64(w)
	}
	return n
}

// Empty reports whether no bone is selected.
func (m BoneMask) Empty() bool {
	return m == BoneMask{}
}

// Union returns the bones selected by either mask.
func (m BoneMask) Union(other BoneMask) BoneMask {
	for i := range m {
		m[i] |= other[i]
	}
	return m
}

// Subtree returns a mask selecting bone root and all of its descendants.
//
// Parameters:
//   - root: the index of the subtree root
//
// Returns:
//   - BoneMask: the subtree mask, empty if root is out of range
func (s *Skeleton) Subtree(root int) BoneMask {
	var m BoneMask
	if root < 0 || root >= len(s.Bones) {
		return m
	}
	m.Set(root)
	// Topological order means every descendant appears after its parent.
	for i := root + 1; i < len(s.Bones); i++ {
		if p := int(s.Bones[i].ParentIndex); p >= 0 && m.Has(p) {
			m.Set(i)
		}
	}
	return m
}
