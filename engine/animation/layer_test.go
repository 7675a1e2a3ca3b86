package animation

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *clip.Store {
	t.Helper()
	mk := func(name string, duration float32) *clip.Clip {
		return &clip.Clip{
			Name:           name,
			DurationTicks:  duration,
			TicksPerSecond: 10,
			BoneCount:      1,
			SampleTimes:    []float32{0, duration},
			Keys:           []skeleton.Transform{skeleton.IdentityTransform(), skeleton.IdentityTransform()},
		}
	}
	s, err := clip.NewStore(mk("idle", 20), mk("walk", 10), mk("jump", 5))
	require.NoError(t, err)
	return s
}

func locomotion(t *testing.T, transitions ...TransitionDef) *Layer {
	t.Helper()
	l, err := NewLayer(LayerDef{
		Name: "locomotion",
		States: []StateDef{
			{Name: "idle", Clip: "idle", Behaviour: BehaviourLoop, Transitions: transitions},
			{Name: "walk", Clip: "walk", Behaviour: BehaviourLoop},
			{Name: "jump", Clip: "jump", Behaviour: BehaviourOnce},
		},
	}, testStore(t))
	require.NoError(t, err)
	return l
}

func TestNewLayer_InitialState(t *testing.T) {
	l := locomotion(t)
	assert.Equal(t, "locomotion", l.Name())
	assert.Equal(t, "idle", l.Active().Name)
	assert.Equal(t, float32(1), l.Active().Weight)
	assert.Equal(t, float32(20), l.Active().Duration)
	assert.Equal(t, float32(1), l.Active().Speed)
	assert.Equal(t, skeleton.FullMask(), l.Active().Mask)
	assert.Nil(t, l.Target())
	assert.False(t, l.IsTransitioning())
}

func TestNewLayer_Errors(t *testing.T) {
	store := testStore(t)

	_, err := NewLayer(LayerDef{Name: "empty"}, store)
	assert.ErrorIs(t, err, skeleton.ErrInvalidData)

	_, err = NewLayer(LayerDef{States: []StateDef{{Name: "a", Clip: "missing"}}}, store)
	assert.ErrorIs(t, err, skeleton.ErrInvalidData)

	_, err = NewLayer(LayerDef{States: []StateDef{
		{Name: "a", Clip: "idle", Transitions: []TransitionDef{{To: "nowhere"}}},
	}}, store)
	assert.ErrorIs(t, err, skeleton.ErrInvalidData)

	_, err = NewLayer(LayerDef{States: []StateDef{
		{Name: "a", Clip: "idle", Transitions: []TransitionDef{{To: "a"}}},
	}}, store)
	assert.ErrorIs(t, err, skeleton.ErrInvalidData)

	_, err = NewLayer(LayerDef{States: []StateDef{{Name: "a", Clip: "idle"}, {Name: "a", Clip: "walk"}}}, store)
	assert.ErrorIs(t, err, skeleton.ErrInvalidData)
}

func TestLayerUpdate_NoTransitionAdvancesActive(t *testing.T) {
	l := locomotion(t, TransitionDef{To: "walk", Duration: 1, When: Is("moving")})
	l.Update(0.5, NewSignals())

	assert.False(t, l.IsTransitioning())
	assert.InDelta(t, 5, l.Active().Time, 1e-5)
	assert.Equal(t, float32(1), l.Active().Weight)
}

func TestLayerUpdate_CrossFadeWeightsAndClocks(t *testing.T) {
	l := locomotion(t, TransitionDef{To: "walk", Duration: 1, When: Is("moving"), TimeScaleCurve: Constant(0.5)})
	sig := NewSignals().Set("moving", true)

	walk := l.State("walk")
	walk.Time = 7 // reset on activation

	l.Update(0.25, sig)
	require.True(t, l.IsTransitioning())
	assert.Equal(t, "walk", l.Target().Name)
	assert.InDelta(t, 0.25, l.TransitionTime(), 1e-6)
	assert.InDelta(t, 0.25, l.TransitionWeight(), 1e-6)
	assert.InDelta(t, 0.75, l.Active().Weight, 1e-6)
	assert.InDelta(t, 0.25, walk.Weight, 1e-6)
	// Target clock restarted from zero then advanced by the full dt.
	assert.InDelta(t, 2.5, walk.Time, 1e-5)
	// Outgoing clock advanced by dt scaled by the time-scale curve.
	assert.InDelta(t, 1.25, l.Active().Time, 1e-5)
}

func TestLayerUpdate_TransitionBoundary(t *testing.T) {
	l := locomotion(t, TransitionDef{To: "walk", Duration: 1, When: Is("moving"), WeightCurve: SmoothStep})
	sig := NewSignals().Set("moving", true)

	l.Update(0.5, sig)
	require.True(t, l.IsTransitioning())

	// Clock lands just past the duration: the curve is evaluated at 1 but the transition is
	// still in flight.
	l.Update(0.51, sig)
	require.True(t, l.IsTransitioning())
	assert.Greater(t, l.TransitionTime(), float32(1))
	assert.Equal(t, SmoothStep(1), l.TransitionWeight())
	assert.Equal(t, float32(0), l.Active().Weight)
	assert.Equal(t, float32(1), l.Target().Weight)

	// The next update completes it.
	l.Update(0.1, sig)
	assert.False(t, l.IsTransitioning())
	assert.Equal(t, "walk", l.Active().Name)
	assert.Equal(t, float32(1), l.Active().Weight)
	assert.Equal(t, float32(0), l.State("idle").Weight)
}

func TestLayerUpdate_FirstReadyTransitionWins(t *testing.T) {
	l := locomotion(t,
		TransitionDef{To: "jump", Duration: 0.2, When: Is("jumping")},
		TransitionDef{To: "walk", Duration: 0.2, When: Is("moving")},
		TransitionDef{To: "jump", Duration: 0.2},
	)

	l.Update(0.1, NewSignals().Set("moving", true).Set("jumping", true))
	assert.Equal(t, "jump", l.Target().Name)

	l2 := locomotion(t,
		TransitionDef{To: "walk", Duration: 0.2, When: Is("moving")},
		TransitionDef{To: "jump", Duration: 0.2},
	)
	l2.Update(0.1, NewSignals())
	// Nil predicates always hold.
	assert.Equal(t, "jump", l2.Target().Name)
}

func TestLayerUpdate_StatePredicate(t *testing.T) {
	l := locomotion(t, TransitionDef{To: "walk", Duration: 0.5, If: AfterNormalizedTime(0.5)})

	l.Update(0.5, nil) // 5 of 20 ticks
	assert.False(t, l.IsTransitioning())
	l.Update(0.5, nil) // 10 of 20 ticks
	assert.False(t, l.IsTransitioning())
	l.Update(0.1, nil)
	assert.True(t, l.IsTransitioning())
}

func TestLayerUpdate_ZeroDurationTransition(t *testing.T) {
	l := locomotion(t, TransitionDef{To: "walk", When: Is("moving")})
	sig := NewSignals().Set("moving", true)

	l.Update(0.1, sig)
	assert.True(t, l.IsTransitioning())
	assert.Equal(t, float32(1), l.TransitionWeight())

	l.Update(0.1, sig)
	assert.Equal(t, "walk", l.Active().Name)
}

func TestLayerPlay(t *testing.T) {
	l := locomotion(t, TransitionDef{To: "walk", Duration: 1})
	l.Update(0.1, nil)
	require.True(t, l.IsTransitioning())

	assert.True(t, l.Play("jump"))
	assert.False(t, l.IsTransitioning())
	assert.Equal(t, "jump", l.Active().Name)
	assert.Equal(t, float32(1), l.Active().Weight)
	assert.Equal(t, float32(0), l.State("idle").Weight)
	assert.Equal(t, float32(0), l.State("walk").Weight)
	assert.False(t, l.Play("swim"))
}
