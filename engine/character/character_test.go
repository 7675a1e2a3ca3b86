package character

import (
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/ik"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func armRest() []skeleton.Transform {
	shoulder := skeleton.IdentityTransform()
	elbow := skeleton.IdentityTransform()
	elbow.Translation = mgl32.Vec3{50, 0, 0}
	elbow.Rotation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})
	return []skeleton.Transform{shoulder, elbow}
}

// rig returns a two-bone arm and a store with "idle" (rest pose held) and "raise" (shoulder
// turning 90 degrees about Z).
func rig(t *testing.T) (*skeleton.Skeleton, *clip.Store) {
	t.Helper()
	rest := armRest()
	bones := []skeleton.Bone{
		{Name: "shoulder", ParentIndex: -1, Rest: rest[0]},
		{Name: "elbow", ParentIndex: 0, Rest: rest[1]},
	}
	skeleton.DeriveBindOffsets(bones)
	skel, err := skeleton.New(bones)
	require.NoError(t, err)

	idle := &clip.Clip{
		Name: "idle", DurationTicks: 10, TicksPerSecond: 10, BoneCount: 2,
		SampleTimes: []float32{0, 10},
		Keys:        []skeleton.Transform{rest[0], rest[1], rest[0], rest[1]},
	}
	raised := rest[0]
	raised.Rotation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})
	raise := &clip.Clip{
		Name: "raise", DurationTicks: 10, TicksPerSecond: 10, BoneCount: 2,
		SampleTimes: []float32{0, 10},
		Keys:        []skeleton.Transform{raised, rest[1], raised, rest[1]},
	}
	store, err := clip.NewStore(idle, raise)
	require.NoError(t, err)
	return skel, store
}

func armLayer() animation.LayerDef {
	return animation.LayerDef{
		Name: "arm",
		States: []animation.StateDef{
			{Name: "idle", Clip: "idle", Behaviour: animation.BehaviourLoop, Transitions: []animation.TransitionDef{
				{To: "raise", Duration: 0.5, When: animation.Is("raise")},
			}},
			{Name: "raise", Clip: "raise", Behaviour: animation.BehaviourOnce},
		},
	}
}

func handTip(c Character) mgl32.Vec3 {
	return c.ToRoot()[1].Mul4x1(mgl32.Vec4{50, 0, 0, 1}).Vec3()
}

func TestNewCharacter_Defaults(t *testing.T) {
	skel, store := rig(t)
	c, err := NewCharacter(skel, store)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, c.ID())
	assert.Empty(t, c.Name())
	assert.Same(t, skel, c.Skeleton())
	assert.Empty(t, c.Blackboard().Layers())

	c.Tick(0.1)
	assert.Empty(t, c.ActiveStates())
	assert.Less(t, handTip(c).Sub(mgl32.Vec3{50, 50, 0}).Len(), float32(1e-3))
	assert.Len(t, c.SkinningBytes(), 2*64)
}

func TestNewCharacter_Options(t *testing.T) {
	skel, store := rig(t)
	id := uuid.New()
	c, err := NewCharacter(skel, store, WithID(id), WithName("scout"), WithLayers(armLayer()))
	require.NoError(t, err)

	assert.Equal(t, id, c.ID())
	assert.Equal(t, "scout", c.Name())
	require.Len(t, c.Blackboard().Layers(), 1)
	assert.Equal(t, "idle", c.Blackboard().Layer("arm").Active().Name)
}

func TestNewCharacter_RejectsBadLayer(t *testing.T) {
	skel, store := rig(t)
	bad := armLayer()
	bad.States[1].Clip = "missing"

	_, err := NewCharacter(skel, store, WithLayers(bad))
	assert.ErrorIs(t, err, skeleton.ErrInvalidData)
}

func TestNewCharacter_PanicsWithoutSkeleton(t *testing.T) {
	_, store := rig(t)
	assert.Panics(t, func() { _, _ = NewCharacter(nil, store) })
}

func TestTick_DrivesTransitionsFromController(t *testing.T) {
	skel, store := rig(t)
	signals := animation.NewSignals()
	c, err := NewCharacter(skel, store, WithLayers(armLayer()), WithController(signals))
	require.NoError(t, err)

	c.Tick(0.1)
	require.Len(t, c.ActiveStates(), 1)

	signals.Set("raise", true)
	c.Tick(0.25)
	active := c.ActiveStates()
	require.Len(t, active, 2)
	assert.Equal(t, "raise", active[1].State)
	assert.InDelta(t, 0.5, active[1].Weight, 1e-5)

	// 0.25 + 0.3 passes the duration; completion lands on the following tick.
	c.Tick(0.3)
	c.Tick(0.1)
	require.Len(t, c.ActiveStates(), 1)
	assert.Equal(t, "raise", c.ActiveStates()[0].State)

	// Shoulder turned 90 degrees: elbow at (0, 50), hand at (-50, 50).
	assert.Less(t, handTip(c).Sub(mgl32.Vec3{-50, 50, 0}).Len(), float32(1e-3))
}

func TestTick_SetControllerReplacesSignals(t *testing.T) {
	skel, store := rig(t)
	c, err := NewCharacter(skel, store, WithLayers(armLayer()))
	require.NoError(t, err)

	c.Tick(0.1)
	assert.False(t, c.Blackboard().Layer("arm").IsTransitioning())

	c.SetController(animation.NewSignals().Set("raise", true))
	c.Tick(0.1)
	assert.True(t, c.Blackboard().Layer("arm").IsTransitioning())
}

func TestPlay(t *testing.T) {
	skel, store := rig(t)
	c, err := NewCharacter(skel, store, WithLayers(armLayer()))
	require.NoError(t, err)

	assert.True(t, c.Play("arm", "raise"))
	assert.False(t, c.Play("arm", "jump"))
	assert.False(t, c.Play("legs", "idle"))

	c.Tick(0.1)
	assert.Equal(t, "raise", c.ActiveStates()[0].State)
}

func TestPlay_AppliesOnNextTick(t *testing.T) {
	skel, store := rig(t)
	c, err := NewCharacter(skel, store, WithLayers(armLayer()))
	require.NoError(t, err)

	require.True(t, c.Play("arm", "raise"))
	require.True(t, c.Play("arm", "idle"))
	assert.Equal(t, "idle", c.Blackboard().Layer("arm").Active().Name)

	// Plays apply in call order, so the last one wins.
	c.Tick(0)
	assert.Equal(t, "idle", c.Blackboard().Layer("arm").Active().Name)

	require.True(t, c.Play("arm", "raise"))
	c.Tick(0)
	assert.Equal(t, "raise", c.Blackboard().Layer("arm").Active().Name)
}

func TestPlay_ConcurrentWithTick(t *testing.T) {
	skel, store := rig(t)
	c, err := NewCharacter(skel, store, WithLayers(armLayer()),
		WithController(animation.NewSignals().Set("raise", true)))
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c.Tick(0.01)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			state := "raise"
			if i%2 == 0 {
				state = "idle"
			}
			assert.True(t, c.Play("arm", state))
		}
	}()
	wg.Wait()

	c.Tick(0.01)
	assert.NotNil(t, c.Blackboard().Layer("arm").Active())
}

func TestTick_QueuedIKAppliesOnce(t *testing.T) {
	skel, store := rig(t)
	c, err := NewCharacter(skel, store, WithLayers(armLayer()))
	require.NoError(t, err)

	target := mgl32.Vec3{0, 80, 0}
	c.QueueIK(IKRequest{Solver: &ik.FABRIK{}, Effector: ik.Effector{
		ParentBone: 1, ChainLength: 2, Target: target, LocalOffset: mgl32.Vec3{50, 0, 0},
	}})
	c.QueueIK(IKRequest{Effector: ik.Effector{ParentBone: 1, ChainLength: 1}})

	c.Tick(0.1)
	require.Len(t, c.IKResults(), 1)
	assert.True(t, c.IKResults()[0].Converged)
	assert.Less(t, handTip(c).Sub(target).Len(), float32(0.5))

	// Skinning follows the solved pose.
	bones := skel.Bones
	assert.Equal(t, c.ToRoot()[1].Mul4(bones[1].BindOffset), c.Skinning()[1])

	c.Tick(0.1)
	assert.Empty(t, c.IKResults())
	assert.Less(t, handTip(c).Sub(mgl32.Vec3{50, 50, 0}).Len(), float32(1e-3))
}

func TestTick_PersistentIKAppliesEveryTick(t *testing.T) {
	skel, store := rig(t)
	target := mgl32.Vec3{0, 6, 0}
	req := IKRequest{Solver: &ik.CCD{}, Effector: ik.Effector{
		ParentBone: 1, ChainLength: 1, Target: target, LocalOffset: mgl32.Vec3{50, 0, 0},
	}}
	c, err := NewCharacter(skel, store, WithLayers(armLayer()), WithPersistentIK(req))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		c.Tick(0.1)
		require.Len(t, c.IKResults(), 1)
		assert.Equal(t, 1, c.IKResults()[0].FirstBone)
	}

	c.SetPersistentIK()
	c.Tick(0.1)
	assert.Empty(t, c.IKResults())
}
