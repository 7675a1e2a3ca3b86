package clip

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// Channel contains independently timed keyframe tracks for a single bone, the layout most
// interchange formats use. Keys within each track are in ascending time order.
type Channel struct {
	// BoneIndex is the index of the bone this channel animates.
	BoneIndex int32

	// PositionKeys are keyframes for translation.
	PositionKeys []VectorKeyframe

	// RotationKeys are keyframes for rotation.
	RotationKeys []QuaternionKeyframe

	// ScaleKeys are keyframes for scale.
	ScaleKeys []VectorKeyframe
}

// VectorKeyframe stores a 3D vector value at a specific time.
type VectorKeyframe struct {
	// Time is the keyframe timestamp in ticks.
	Time float32

	// Value is the 3D vector value at this keyframe.
	Value mgl32.Vec3
}

// QuaternionKeyframe stores a rotation at a specific time.
type QuaternionKeyframe struct {
	// Time is the keyframe timestamp in ticks.
	Time float32

	// Value is the rotation at this keyframe.
	Value mgl32.Quat
}

// FromChannels resamples per-bone keyframe tracks onto a uniform grid: the clip's sample times
// are the sorted union of every key time, and each bone is evaluated at each of them. Bones
// without a channel, and tracks without keys, hold the rest pose.
//
// Parameters:
//   - name: the clip name
//   - durationTicks: the clip length in ticks
//   - ticksPerSecond: the playback rate
//   - rest: the rest pose, one transform per bone (its length sets the clip's bone count)
//   - channels: the keyed tracks
//
// Returns:
//   - *Clip: the resampled clip
//   - error: ErrInvalidData if a channel targets a missing bone, a track's key times are not
//     strictly ascending, or the result fails validation
func FromChannels(name string, durationTicks, ticksPerSecond float32, rest []skeleton.Transform, channels []Channel) (*Clip, error) {
	boneCount := len(rest)
	byBone := make([]*Channel, boneCount)
	timeSet := make(map[float32]struct{})
	for i := range channels {
		ch := &channels[i]
		if ch.BoneIndex < 0 || int(ch.BoneIndex) >= boneCount {
			return nil, fmt.Errorf("clip %q: channel %d targets bone %d of %d: %w", name, i, ch.BoneIndex, boneCount, skeleton.ErrInvalidData)
		}
		if err := checkTrackOrder(len(ch.PositionKeys), func(i int) float32 { return ch.PositionKeys[i].Time }); err != nil {
			return nil, fmt.Errorf("clip %q: channel %d position: %w", name, i, err)
		}
		if err := checkTrackOrder(len(ch.RotationKeys), func(i int) float32 { return ch.RotationKeys[i].Time }); err != nil {
			return nil, fmt.Errorf("clip %q: channel %d rotation: %w", name, i, err)
		}
		if err := checkTrackOrder(len(ch.ScaleKeys), func(i int) float32 { return ch.ScaleKeys[i].Time }); err != nil {
			return nil, fmt.Errorf("clip %q: channel %d scale: %w", name, i, err)
		}
		byBone[ch.BoneIndex] = ch
		for _, k := range ch.PositionKeys {
			timeSet[k.Time] = struct{}{}
		}
		for _, k := range ch.RotationKeys {
			timeSet[k.Time] = struct{}{}
		}
		for _, k := range ch.ScaleKeys {
			timeSet[k.Time] = struct{}{}
		}
	}
	if len(timeSet) == 0 {
		timeSet[0] = struct{}{}
	}

	times := make([]float32, 0, len(timeSet))
	for t := range timeSet {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	keys := make([]skeleton.Transform, len(times)*boneCount)
	for s, t := range times {
		for b := 0; b < boneCount; b++ {
			tr := rest[b]
			if ch := byBone[b]; ch != nil {
				if v, ok := sampleVectorTrack(ch.PositionKeys, t); ok {
					tr.Translation = v
				}
				if q, ok := sampleQuatTrack(ch.RotationKeys, t); ok {
					tr.Rotation = q
				}
				if v, ok := sampleVectorTrack(ch.ScaleKeys, t); ok {
					tr.Scale = v
				}
			}
			keys[s*boneCount+b] = tr
		}
	}

	c := &Clip{
		Name:           name,
		DurationTicks:  durationTicks,
		TicksPerSecond: ticksPerSecond,
		BoneCount:      boneCount,
		SampleTimes:    times,
		Keys:           keys,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// checkTrackOrder requires a track's key times to be strictly ascending.
func checkTrackOrder(n int, timeAt func(int) float32) error {
	for i := 1; i < n; i++ {
		if !(timeAt(i) > timeAt(i-1)) {
			return fmt.Errorf("key %d at %v does not follow %v: %w", i, timeAt(i), timeAt(i-1), skeleton.ErrInvalidData)
		}
	}
	return nil
}

// trackBracket clamps t to the track's range and finds its bracketing keys.
func trackBracket(n int, timeAt func(int) float32, t float32) (int, int, float32) {
	if t <= timeAt(0) {
		return 0, 0, 0
	}
	if t >= timeAt(n-1) {
		return n - 1, n - 1, 0
	}
	i := sort.Search(n, func(i int) bool { return timeAt(i) >= t })
	t0, t1 := timeAt(i-1), timeAt(i)
	return i - 1, i, (t - t0) / (t1 - t0)
}

func sampleVectorTrack(keys []VectorKeyframe, t float32) (mgl32.Vec3, bool) {
	if len(keys) == 0 {
		return mgl32.Vec3{}, false
	}
	a, b, f := trackBracket(len(keys), func(i int) float32 { return keys[i].Time }, t)
	return common.LerpVec3(keys[a].Value, keys[b].Value, f), true
}

func sampleQuatTrack(keys []QuaternionKeyframe, t float32) (mgl32.Quat, bool) {
	if len(keys) == 0 {
		return mgl32.Quat{}, false
	}
	a, b, f := trackBracket(len(keys), func(i int) float32 { return keys[i].Time }, t)
	return common.Slerp(keys[a].Value, keys[b].Value, f), true
}
