package clip

import "github.com/Carmen-Shannon/oxy-anim/engine/skeleton"

// FindKeyframes locates the keyframe pair bracketing t by linear scan for the first index i
// with times[i-1] <= t <= times[i]. When no pair brackets t (past the last sample, before the
// first, or a single-sample clip) the search wraps: the bracket is (last, first) with a
// normalized time of 0.
//
// Parameters:
//   - times: strictly ascending sample times
//   - t: the time to locate
//
// Returns:
//   - begin: the index of the earlier sample
//   - end: the index of the later sample
//   - normalized: the position of t between the two samples in [0, 1]
func FindKeyframes(times []float32, t float32) (begin, end int, normalized float32) {
	for i := 1; i < len(times); i++ {
		if times[i-1] <= t && t <= times[i] {
			return i - 1, i, (t - times[i-1]) / (times[i] - times[i-1])
		}
	}
	if len(times) == 0 {
		return 0, 0, 0
	}
	return len(times) - 1, 0, 0
}

// SampleBone interpolates one bone's key between two samples.
//
// Parameters:
//   - c: the clip to sample
//   - bone: the bone index
//   - begin, end: the bracketing sample indices
//   - normalized: the interpolation factor between begin and end
//
// Returns:
//   - skeleton.Transform: the interpolated local transform
func SampleBone(c *Clip, bone, begin, end int, normalized float32) skeleton.Transform {
	return c.Key(begin, bone).Interpolate(c.Key(end, bone), normalized)
}

// Sample interpolates every bone of c at time t into out.
//
// Parameters:
//   - c: the clip to sample
//   - t: the time in ticks
//   - out: destination slice (must be at least c.BoneCount elements)
func Sample(c *Clip, t float32, out []skeleton.Transform) {
	begin, end, n := FindKeyframes(c.SampleTimes, t)
	for b := 0; b < c.BoneCount; b++ {
		out[b] = SampleBone(c, b, begin, end, n)
	}
}
