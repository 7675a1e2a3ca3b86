package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// engine implements the Engine interface.
// Coordinates the tick loop and the optional metrics server.
type engine struct {
	mu sync.RWMutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)

	scenes map[int]scene.Scene

	registry    *prometheus.Registry
	metricsAddr string
	logger      *log.Logger
}

// Engine is the main entry point of the animation runtime.
// It drives registered scenes from a fixed-rate tick loop and exposes their metrics.
type Engine interface {
	// SetTickRate sets the engine tick rate in ticks per second.
	// The tick callback and every scene are advanced at this rate.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick before scenes update.
	// Use this for gameplay logic: controller signals, IK targets, spawning.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// AddScene registers a scene at the given key.
	// Scenes are updated in ascending key order each tick.
	//
	// Parameters:
	//   - key: the ordering key (lower updates first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given key.
	//
	// Parameters:
	//   - key: the key of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the key of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by ordering key.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// Registry returns the Prometheus registry served by the metrics endpoint.
	// Scene and IK metrics register here.
	//
	// Returns:
	//   - *prometheus.Registry: the registry
	Registry() *prometheus.Registry

	// MetricsHandler returns the HTTP handler exposing Registry in the Prometheus text format.
	//
	// Returns:
	//   - http.Handler: the /metrics handler
	MetricsHandler() http.Handler

	// Tick runs one engine step synchronously: the tick callback, then every scene in key order.
	// Run calls it from the tick loop; callers stepping a simulation manually call it directly.
	//
	// Parameters:
	//   - deltaTime: elapsed time in seconds
	Tick(deltaTime float32)

	// Run starts the metrics server (when an address is configured) and the tick loop, and
	// blocks until Quit is called or the metrics server fails. An engine runs once.
	//
	// Returns:
	//   - error: the metrics server error, or nil after Quit
	Run() error

	// Quit signals the tick loop to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Options are applied directly to the engine struct via the option-builder pattern.
// Without WithRegistry the engine creates its own registry carrying the Go runtime and
// process collectors.
//
// Parameters:
//   - options: functional options for engine configuration (tick rate, scenes, metrics, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		engineTickRate:  time.Second / 60,
		logger:          log.Default(),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.registry == nil {
		e.registry = prometheus.NewRegistry()
		e.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return e
}

func (e *engine) Run() error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine: already running")
	}
	defer e.running.Store(false)

	select {
	case <-e.quitChannel:
		return errors.New("engine: already quit")
	default:
	}

	serveErr := make(chan error, 1)
	var server *http.Server
	if e.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", e.MetricsHandler())
		server = &http.Server{Addr: e.metricsAddr, Handler: mux}

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.logger.Printf("[Engine] serving metrics on %s", e.metricsAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- fmt.Errorf("metrics server: %w", err)
				e.signalQuit()
			}
		}()
	}

	e.handleEngine()

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			e.logger.Printf("[Engine] metrics server shutdown: %v", err)
		}
	}
	e.wg.Wait()

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// handleEngine runs the fixed-rate engine tick loop on the calling goroutine.
// Fires Tick at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Returns when the quit channel is closed.
// A panic inside a tick is logged and stops the engine rather than crashing the process.
func (e *engine) handleEngine() {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("[Engine] tick loop recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	e.mu.RLock()
	rate := e.engineTickRate
	e.mu.RUnlock()
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now
			e.Tick(dt)
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
		}
	}
}

func (e *engine) Tick(deltaTime float32) {
	e.mu.RLock()
	callback := e.tickCallback
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	ordered := make([]scene.Scene, len(keys))
	for i, k := range keys {
		ordered[i] = e.scenes[k]
	}
	e.mu.RUnlock()

	if callback != nil {
		callback(deltaTime)
	}
	for _, s := range ordered {
		s.Update(deltaTime)
	}
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.mu.Lock()
	e.engineTickRate = newRate
	e.mu.Unlock()

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}

func (e *engine) Registry() *prometheus.Registry {
	return e.registry
}

func (e *engine) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
