package loader

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/ik"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// armRig lists the elbow before its parent so loading has to sort the hierarchy.
const armRig = `
name: arm
ticks_per_second: 10
bones:
  - name: elbow
    parent: shoulder
    translation: [50, 0, 0]
    axis_angle: [0, 0, 1, 90]
  - name: shoulder
clips:
  - name: idle
    samples:
      - time: 0
      - time: 10
  - name: raise
    samples:
      - time: 0
        bones:
          shoulder: {axis_angle: [0, 0, 1, 90]}
      - time: 10
        bones:
          shoulder: {axis_angle: [0, 0, 1, 90]}
  - name: wave
    channels:
      - bone: elbow
        rotation:
          - {time: 0, axis_angle: [0, 0, 1, 90]}
          - {time: 20, axis_angle: [0, 0, 1, 45]}
layers:
  - name: arm
    states:
      - name: idle
        clip: idle
        transitions:
          - to: raise
            duration: 0.5
            weight_curve: smoothstep
            when:
              - signal: raise
      - name: raise
        clip: raise
        behaviour: once
        mask_subtree: [shoulder]
  - name: wrist
    states:
      - name: wave
        clip: wave
        mask: [elbow]
ik:
  - name: hand
    bone: elbow
    chain: 2
    offset: [50, 0, 0]
`

func newTestLoader(buf *bytes.Buffer) Loader {
	return NewLoader(BackendTypeYAML, WithLogger(log.New(buf, "", 0)))
}

func quatNear(t *testing.T, want, got mgl32.Quat) {
	t.Helper()
	dot := want.Dot(got)
	if dot < 0 {
		dot = -dot
	}
	assert.InDelta(t, 1, dot, 1e-4)
}

func TestLoadReader_BuildsSortedSkeleton(t *testing.T) {
	var buf bytes.Buffer
	rig, err := newTestLoader(&buf).LoadReader("arm", strings.NewReader(armRig))
	require.NoError(t, err)

	assert.Equal(t, "arm", rig.Name)
	skel := rig.Skeleton
	require.Equal(t, 2, skel.BoneCount())
	assert.Equal(t, 0, skel.BoneIndex("shoulder"))
	assert.Equal(t, 1, skel.BoneIndex("elbow"))
	assert.Equal(t, 0, skel.Parent(1))
	assert.Equal(t, mgl32.Vec3{50, 0, 0}, skel.Bones[1].Rest.Translation)
	quatNear(t, mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1}), skel.Bones[1].Rest.Rotation)

	// The elbow's bind offset undoes its rest pose.
	restWorld := skel.Bones[1].Rest.Matrix()
	product := skel.Bones[1].BindOffset.Mul4(restWorld)
	ident := mgl32.Ident4()
	for i := range product {
		assert.InDelta(t, ident[i], product[i], 1e-4)
	}

	assert.Contains(t, buf.String(), `[Loader] arm: rig "arm" with 2 bones, 3 clips, 2 layers, 1 ik chains`)
}

func TestLoadReader_SampleClipsHoldRestForMissingBones(t *testing.T) {
	var buf bytes.Buffer
	rig, err := newTestLoader(&buf).LoadReader("arm", strings.NewReader(armRig))
	require.NoError(t, err)
	require.Equal(t, 3, rig.Clips.Len())

	id, ok := rig.Clips.Index("raise")
	require.True(t, ok)
	raise := rig.Clips.Clip(id)
	assert.Equal(t, float32(10), raise.DurationTicks)
	assert.Equal(t, float32(10), raise.TicksPerSecond)
	assert.Equal(t, []float32{0, 10}, raise.SampleTimes)
	quatNear(t, mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1}), raise.Key(1, 0).Rotation)
	assert.Equal(t, rig.Skeleton.Bones[1].Rest, raise.Key(1, 1))

	id, _ = rig.Clips.Index("idle")
	idle := rig.Clips.Clip(id)
	assert.Equal(t, rig.Skeleton.Bones[0].Rest, idle.Key(0, 0))
}

func TestLoadReader_ChannelClipsAreResampled(t *testing.T) {
	var buf bytes.Buffer
	rig, err := newTestLoader(&buf).LoadReader("arm", strings.NewReader(armRig))
	require.NoError(t, err)

	id, ok := rig.Clips.Index("wave")
	require.True(t, ok)
	wave := rig.Clips.Clip(id)
	assert.Equal(t, float32(20), wave.DurationTicks)
	assert.Equal(t, []float32{0, 20}, wave.SampleTimes)
	assert.Equal(t, rig.Skeleton.Bones[0].Rest, wave.Key(1, 0))
	quatNear(t, mgl32.QuatRotate(mgl32.DegToRad(45), mgl32.Vec3{0, 0, 1}), wave.Key(1, 1).Rotation)
}

func TestLoadReader_ChannelKeysAreOrderedByTime(t *testing.T) {
	const doc = `
ticks_per_second: 10
bones:
  - name: a
clips:
  - name: slide
    channels:
      - bone: a
        position:
          - {time: 10, value: [10, 0, 0]}
          - {time: 0, value: [0, 0, 0]}
      - bone: a
        position:
          - {time: 5, value: [2, 0, 0]}
`
	var buf bytes.Buffer
	rig, err := newTestLoader(&buf).LoadReader("slide", strings.NewReader(doc))
	require.NoError(t, err)

	id, ok := rig.Clips.Index("slide")
	require.True(t, ok)
	slide := rig.Clips.Clip(id)
	assert.Equal(t, []float32{0, 5, 10}, slide.SampleTimes)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, slide.Key(0, 0).Translation)
	assert.Equal(t, mgl32.Vec3{2, 0, 0}, slide.Key(1, 0).Translation)
	assert.Equal(t, mgl32.Vec3{10, 0, 0}, slide.Key(2, 0).Translation)
}

func TestLoadReader_LayersDriveCharacters(t *testing.T) {
	var buf bytes.Buffer
	rig, err := newTestLoader(&buf).LoadReader("arm", strings.NewReader(armRig))
	require.NoError(t, err)
	require.Len(t, rig.Layers, 2)

	raise := rig.Layers[0].States[1]
	require.NotNil(t, raise.Mask)
	assert.Equal(t, 2, raise.Mask.Count())
	assert.Equal(t, animation.BehaviourOnce, raise.Behaviour)
	assert.Nil(t, rig.Layers[0].States[0].Mask)
	wave := rig.Layers[1].States[0]
	require.NotNil(t, wave.Mask)
	assert.True(t, wave.Mask.Has(1))
	assert.False(t, wave.Mask.Has(0))

	c, err := rig.NewCharacter()
	require.NoError(t, err)
	c.SetController(animation.NewSignals().Set("raise", true))
	for i := 0; i < 4; i++ {
		c.Tick(0.25)
	}
	assert.Equal(t, "raise", c.Blackboard().Layer("arm").Active().Name)
	assert.Equal(t, "wave", c.Blackboard().Layer("wrist").Active().Name)
}

func TestLoadReader_IKChains(t *testing.T) {
	var buf bytes.Buffer
	rig, err := newTestLoader(&buf).LoadReader("arm", strings.NewReader(armRig))
	require.NoError(t, err)

	hand, ok := rig.IK["hand"]
	require.True(t, ok)
	assert.Equal(t, "fabrik", hand.Solver)
	assert.Equal(t, 1, hand.Effector.ParentBone)
	assert.Equal(t, 2, hand.Effector.ChainLength)
	assert.Equal(t, mgl32.Vec3{50, 0, 0}, hand.Effector.LocalOffset)

	_, ok = hand.Request(mgl32.Vec3{0, 80, 0}, &ik.CCD{})
	assert.False(t, ok)

	fabrik := &ik.FABRIK{}
	req, ok := hand.Request(mgl32.Vec3{0, 80, 0}, &ik.CCD{}, fabrik)
	require.True(t, ok)
	assert.Same(t, fabrik, req.Solver)
	assert.Equal(t, mgl32.Vec3{0, 80, 0}, req.Effector.Target)
	assert.Equal(t, mgl32.Vec3{}, rig.IK["hand"].Effector.Target)

	c, err := rig.NewCharacter()
	require.NoError(t, err)
	c.QueueIK(req)
	c.Tick(0)
	results := c.IKResults()
	require.Len(t, results, 1)
	assert.True(t, results[0].Converged)
}

func TestLoadReader_RejectsInvalidRigs(t *testing.T) {
	cases := map[string]string{
		"no bones": `name: empty`,
		"duplicate bone": `
bones:
  - name: a
  - name: a`,
		"unknown parent": `
bones:
  - name: a
    parent: missing`,
		"parent cycle": `
bones:
  - name: a
    parent: b
  - name: b
    parent: a`,
		"exclusive rotations": `
bones:
  - name: a
    rotation: [0, 0, 0, 1]
    axis_angle: [0, 0, 1, 90]`,
		"zero rotation": `
bones:
  - name: a
    rotation: [0, 0, 0, 0]`,
		"unknown sample bone": `
ticks_per_second: 10
bones:
  - name: a
clips:
  - name: c
    samples:
      - time: 0
        bones:
          b: {translation: [1, 0, 0]}`,
		"unknown clip": `
ticks_per_second: 10
bones:
  - name: a
clips:
  - name: c
    samples: [{time: 0}]
layers:
  - name: l
    states:
      - {name: s, clip: missing}`,
		"unknown mask bone": `
ticks_per_second: 10
bones:
  - name: a
clips:
  - name: c
    samples: [{time: 0}]
layers:
  - name: l
    states:
      - {name: s, clip: c, mask: [b]}`,
		"unknown curve": `
ticks_per_second: 10
bones:
  - name: a
clips:
  - name: c
    samples: [{time: 0}]
layers:
  - name: l
    states:
      - name: s
        clip: c
        transitions: [{to: t, weight_curve: wobble}]
      - {name: t, clip: c}`,
		"axis without bound": `
ticks_per_second: 10
bones:
  - name: a
clips:
  - name: c
    samples: [{time: 0}]
layers:
  - name: l
    states:
      - name: s
        clip: c
        transitions: [{to: t, when: [{axis: speed}]}]
      - {name: t, clip: c}`,
		"duplicate key time": `
ticks_per_second: 10
bones:
  - name: a
clips:
  - name: c
    channels:
      - bone: a
        position: [{time: 5, value: [1, 0, 0]}]
      - bone: a
        position: [{time: 5, value: [2, 0, 0]}]`,
		"unknown solver": `
bones:
  - name: a
ik:
  - {name: foot, bone: a, solver: jacobian}`,
		"duplicate chain": `
bones:
  - name: a
ik:
  - {name: foot, bone: a}
  - {name: foot, bone: a, solver: ccd}`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			_, err := newTestLoader(&buf).LoadReader(name, strings.NewReader(doc))
			assert.ErrorIs(t, err, skeleton.ErrInvalidData)
		})
	}
}

func TestLoadReader_RejectsMalformedYAML(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLoader(&buf)

	_, err := l.LoadReader("typo", strings.NewReader("bonez: []"))
	assert.Error(t, err)

	_, err = l.LoadReader("empty", strings.NewReader(""))
	assert.ErrorContains(t, err, "empty rig document")
	assert.Nil(t, l.Get("empty"))
}

func TestLoader_CachesByKey(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLoader(&buf)

	first, err := l.LoadReader("arm", strings.NewReader(armRig))
	require.NoError(t, err)
	// A cached key is served without reading the stream.
	second, err := l.LoadReader("arm", strings.NewReader("not: [valid"))
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Same(t, first, l.Get("arm"))
	assert.Len(t, l.Rigs(), 1)

	l.Evict("arm")
	assert.Nil(t, l.Get("arm"))
	assert.Empty(t, l.Rigs())
}

func TestLoader_WithRig(t *testing.T) {
	rig := &Rig{Name: "prebuilt"}
	l := NewLoader(BackendTypeYAML, WithRig("prebuilt", rig))
	assert.Same(t, rig, l.Get("prebuilt"))
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "walker.yml")
	doc := strings.Replace(armRig, "name: arm\n", "", 1)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	var buf bytes.Buffer
	l := newTestLoader(&buf)
	rig, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "walker", rig.Name)

	again, err := l.Load(path)
	require.NoError(t, err)
	assert.Same(t, rig, again)

	_, err = l.Load(filepath.Join(dir, "walker.fbx"))
	assert.ErrorContains(t, err, "unsupported rig format")

	_, err = l.Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
