package engine

import (
	"fmt"
	"log"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/config"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/prometheus/client_golang/prometheus"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithTickRate sets the engine tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithScene registers a scene at the given key during engine construction.
//
// Parameters:
//   - key: the ordering key (lower updates first)
//   - s: the Scene to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scenes[key] = s
	}
}

// WithRegistry sets the Prometheus registry the metrics endpoint serves.
//
// Parameters:
//   - r: the registry
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRegistry(r *prometheus.Registry) EngineBuilderOption {
	return func(e *engine) {
		e.registry = r
	}
}

// WithMetricsAddr makes Run serve /metrics on addr. Empty disables the server (default).
//
// Parameters:
//   - addr: the listen address, e.g. ":2112"
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMetricsAddr(addr string) EngineBuilderOption {
	return func(e *engine) {
		e.metricsAddr = addr
	}
}

// WithLogger redirects the engine's log output.
//
// Parameters:
//   - logger: the logger; nil keeps log.Default()
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(logger *log.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithConfig applies the engine tick rate and the metrics port from a loaded configuration.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg *config.Config) EngineBuilderOption {
	return func(e *engine) {
		WithTickRate(float64(cfg.Engine.GetTickRate()))(e)
		e.metricsAddr = fmt.Sprintf(":%d", cfg.Metrics.GetPort())
	}
}
