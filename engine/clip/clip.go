// Package clip holds immutable animation clip sample data and the pure keyframe search and
// sampling functions the blender is built on.
package clip

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
)

// Clip represents a single animation (walk, run, attack, etc.) sampled on a uniform
// sample-times-by-bones grid.
type Clip struct {
	// Name is the animation identifier.
	Name string

	// DurationTicks is the total length of the animation in ticks.
	DurationTicks float32

	// TicksPerSecond is the playback rate used to convert seconds into ticks.
	TicksPerSecond float32

	// BoneCount is the number of bones each sample holds a key for.
	BoneCount int

	// SampleTimes are the strictly ascending tick timestamps of the samples.
	SampleTimes []float32

	// Keys holds one local transform per bone per sample, indexed [sample*BoneCount + bone].
	Keys []skeleton.Transform
}

// SampleCount returns the number of samples in the clip.
func (c *Clip) SampleCount() int {
	return len(c.SampleTimes)
}

// Key returns the key of bone at sample.
//
// Parameters:
//   - sample: the sample index
//   - bone: the bone index
//
// Returns:
//   - skeleton.Transform: the local transform stored for that bone at that sample
func (c *Clip) Key(sample, bone int) skeleton.Transform {
	return c.Keys[sample*c.BoneCount+bone]
}

// Validate checks the clip's structural invariants.
//
// Returns:
//   - error: ErrInvalidData wrapped with the reason, or nil
func (c *Clip) Validate() error {
	if c.BoneCount <= 0 || c.BoneCount > skeleton.MaxBones {
		return fmt.Errorf("clip %q: bone count %d out of range: %w", c.Name, c.BoneCount, skeleton.ErrInvalidData)
	}
	if len(c.SampleTimes) == 0 {
		return fmt.Errorf("clip %q: no samples: %w", c.Name, skeleton.ErrInvalidData)
	}
	for i := 1; i < len(c.SampleTimes); i++ {
		if !(c.SampleTimes[i] > c.SampleTimes[i-1]) {
			return fmt.Errorf("clip %q: sample times not strictly ascending at %d: %w", c.Name, i, skeleton.ErrInvalidData)
		}
	}
	if want := len(c.SampleTimes) * c.BoneCount; len(c.Keys) != want {
		return fmt.Errorf("clip %q: %d keys, want %d: %w", c.Name, len(c.Keys), want, skeleton.ErrInvalidData)
	}
	if c.TicksPerSecond <= 0 {
		return fmt.Errorf("clip %q: ticks per second must be positive: %w", c.Name, skeleton.ErrInvalidData)
	}
	return nil
}
