package animation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateUpdate_LoopWrapsToZero(t *testing.T) {
	s := &State{Behaviour: BehaviourLoop, Duration: 10, TicksPerSecond: 1, Speed: 1, Time: 9.5}
	s.Update(1)
	assert.Equal(t, float32(0), s.Time)
}

func TestStateUpdate_OnceClampsToDuration(t *testing.T) {
	s := &State{Behaviour: BehaviourOnce, Duration: 10, TicksPerSecond: 1, Speed: 1, Time: 9.5}
	s.Update(1)
	assert.Equal(t, float32(10), s.Time)
}

// BehaviourNone has no defined overflow rule; the clock simply keeps running.
func TestStateUpdate_NoneAdvancesUnbounded(t *testing.T) {
	s := &State{Behaviour: BehaviourNone, Duration: 10, TicksPerSecond: 1, Speed: 1, Time: 9.5}
	s.Update(1)
	assert.InDelta(t, 10.5, s.Time, 1e-6)
	s.Update(5)
	assert.InDelta(t, 15.5, s.Time, 1e-6)
}

func TestStateUpdate_ScalesBySpeedAndTickRate(t *testing.T) {
	s := &State{Behaviour: BehaviourLoop, Duration: 100, TicksPerSecond: 30, Speed: 0.5}
	s.Update(0.2)
	assert.InDelta(t, 3, s.Time, 1e-5)
	assert.InDelta(t, 0.03, s.NormalizedTime(), 1e-6)
}

func TestParseBehaviour(t *testing.T) {
	b, err := ParseBehaviour("Once")
	require.NoError(t, err)
	assert.Equal(t, BehaviourOnce, b)

	b, err = ParseBehaviour("")
	require.NoError(t, err)
	assert.Equal(t, BehaviourLoop, b)
	assert.Equal(t, "loop", b.String())

	_, err = ParseBehaviour("bounce")
	assert.Error(t, err)
}

func TestCurveByName(t *testing.T) {
	c, err := CurveByName("smoothstep", Linear)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, c(0.5), 1e-6)
	assert.InDelta(t, 0.15625, c(0.25), 1e-6)

	c, err = CurveByName("", Constant(1))
	require.NoError(t, err)
	assert.Equal(t, float32(1), c(0.3))

	c, err = CurveByName("constant:0.25", Linear)
	require.NoError(t, err)
	assert.Equal(t, float32(0.25), c(0.9))

	_, err = CurveByName("wobble", Linear)
	assert.Error(t, err)
}

func TestPredicates(t *testing.T) {
	sig := NewSignals().Set("grounded", true).SetAxis("speed", 2)

	assert.True(t, Is("grounded")(sig))
	assert.False(t, Not("grounded")(sig))
	assert.True(t, AxisAbove("speed", 1)(sig))
	assert.False(t, AxisBelow("speed", 1)(sig))
	assert.True(t, All(Is("grounded"), nil, AxisAbove("speed", 0))(sig))
	assert.False(t, All(Is("grounded"), Is("airborne"))(sig))
	assert.False(t, Is("grounded")(nil))

	s := &State{Duration: 10, Time: 9}
	assert.True(t, AfterNormalizedTime(0.9)(s))
	assert.False(t, AfterNormalizedTime(0.95)(s))
}
