package engine

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/config"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingScene appends its key to a shared log on every Update.
type recordingScene struct {
	scene.Scene
	key int
	log *[]int
}

func (r *recordingScene) Update(float32) {
	*r.log = append(*r.log, r.key)
}

func TestTick_CallbackThenScenesInKeyOrder(t *testing.T) {
	var order []int
	e := NewEngine(
		WithScene(5, &recordingScene{key: 5, log: &order}),
		WithScene(-1, &recordingScene{key: -1, log: &order}),
	)
	e.AddScene(2, &recordingScene{key: 2, log: &order})
	e.SetTickCallback(func(dt float32) {
		assert.Equal(t, float32(0.5), dt)
		order = append(order, 100)
	})

	e.Tick(0.5)
	assert.Equal(t, []int{100, -1, 2, 5}, order)

	e.RemoveScene(2)
	assert.Nil(t, e.Scene(2))
	assert.Len(t, e.Scenes(), 2)
}

func TestTick_UpdatesRealScenes(t *testing.T) {
	s := scene.NewScene("crowd", scene.WithComputeWorkers(1))
	e := NewEngine(WithScene(0, s))
	e.Tick(0.1)
	e.Tick(0.1)
	assert.Equal(t, uint64(2), s.Frame())
}

func TestTickRate(t *testing.T) {
	e := NewEngine(WithTickRate(0)).(*engine)
	assert.Equal(t, time.Second/60, e.engineTickRate)

	e.SetTickRate(120)
	assert.Equal(t, time.Second/120, e.engineTickRate)

	cfg := &config.Config{Engine: config.EngineConfig{TickRate: 25}, Metrics: config.MetricsConfig{Port: 9300}}
	e = NewEngine(WithConfig(cfg)).(*engine)
	assert.Equal(t, time.Second/25, e.engineTickRate)
	assert.Equal(t, ":9300", e.metricsAddr)
}

func TestRun_TicksUntilQuit(t *testing.T) {
	e := NewEngine(WithTickRate(500))
	var ticks atomic.Int32
	e.SetTickCallback(func(float32) {
		if ticks.Add(1) == 3 {
			e.Quit()
		}
	})

	done := make(chan error, 1)
	go func() { done <- e.Run() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop after Quit")
	}
	assert.GreaterOrEqual(t, ticks.Load(), int32(3))

	e.Quit()
	assert.Error(t, e.Run())
}

func TestRun_RecoversFromTickPanic(t *testing.T) {
	var buf bytes.Buffer
	e := NewEngine(WithTickRate(500), WithLogger(log.New(&buf, "", 0)))
	e.SetTickCallback(func(float32) { panic("boom") })

	done := make(chan error, 1)
	go func() { done <- e.Run() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop after a panicking tick")
	}
	assert.Contains(t, buf.String(), "[Engine] tick loop recovered from panic: boom")
}

func TestRun_ReportsMetricsServerFailure(t *testing.T) {
	var buf bytes.Buffer
	e := NewEngine(WithMetricsAddr("127.0.0.1:-1"), WithLogger(log.New(&buf, "", 0)))

	done := make(chan error, 1)
	go func() { done <- e.Run() }()

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "metrics server")
	case <-time.After(5 * time.Second):
		e.Quit()
		t.Fatal("engine kept running without its metrics server")
	}
}

func TestMetricsHandler_ServesRegistry(t *testing.T) {
	e := NewEngine()
	m := scene.NewMetrics("oxy_test")
	require.NoError(t, m.Register(e.Registry()))
	s := scene.NewScene("crowd", scene.WithComputeWorkers(1), scene.WithMetrics(m))
	e.AddScene(0, s)
	e.Tick(0.1)

	rec := httptest.NewRecorder()
	e.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "oxy_test_scene_ticks_total 1")
	assert.Contains(t, body, "go_goroutines")
}

func TestWithRegistry_SkipsDefaultCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := NewEngine(WithRegistry(reg))
	assert.Same(t, reg, e.Registry())

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}
