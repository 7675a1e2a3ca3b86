package skeleton

// TopologicalSort reorders bones so that parents always come before children, remapping
// parent indices to the new order. Source data (hand-authored rigs, importers) may list bones
// in any order; New requires the sorted form because composition walks bones by index and
// multiplies by the parent's already-computed matrix.
//
// Bones whose parent chain never reaches a root (cycles, dangling parents) are appended after
// the reachable ones in their original order and marked as their own parent, so New
// rejects them.
//
// Parameters:
//   - bones: original bone array, parent indices refer to positions in this array
//
// Returns:
//   - []Bone: sorted bone array with updated parent indices
//   - map[int32]int32: old bone index to new bone index mapping
func TopologicalSort(bones []Bone) ([]Bone, map[int32]int32) {
	oldToNew := make(map[int32]int32, len(bones))
	if len(bones) == 0 {
		return bones, oldToNew
	}

	// Build children map (old indices)
	children := make(map[int32][]int32)
	var roots []int32
	for i, bone := range bones {
		if bone.ParentIndex >= 0 && int(bone.ParentIndex) < len(bones) {
			children[bone.ParentIndex] = append(children[bone.ParentIndex], int32(i))
		} else if bone.ParentIndex < 0 {
			roots = append(roots, int32(i))
		}
	}

	// BFS from roots to get topological order
	sorted := make([]int32, 0, len(bones))
	queue := append(make([]int32, 0, len(roots)), roots...)
	for len(queue) > 0 {
		oldIdx := queue[0]
		queue = queue[1:]
		sorted = append(sorted, oldIdx)
		queue = append(queue, children[oldIdx]...)
	}

	reached := len(sorted)
	if reached < len(bones) {
		visited := make(map[int32]bool, reached)
		for _, idx := range sorted {
			visited[idx] = true
		}
		for i := range bones {
			if !visited[int32(i)] {
				sorted = append(sorted, int32(i))
			}
		}
	}

	for newIdx, oldIdx := range sorted {
		oldToNew[oldIdx] = int32(newIdx)
	}

	newBones := make([]Bone, len(bones))
	for newIdx, oldIdx := range sorted {
		bone := bones[oldIdx]
		switch {
		case newIdx >= reached:
			bone.ParentIndex = int32(newIdx)
		case bone.ParentIndex >= 0:
			bone.ParentIndex = oldToNew[bone.ParentIndex]
		}
		newBones[newIdx] = bone
	}

	return newBones, oldToNew
}
