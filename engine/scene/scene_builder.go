package scene

import (
	"log"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/character"
	"github.com/Carmen-Shannon/oxy-anim/engine/config"
	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene ticks characters. Scenes start active.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithCharacters adds initial characters to the scene. Like Add, it panics on a nil Character.
//
// Parameters:
//   - characters: the characters to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCharacters(characters ...character.Character) SceneBuilderOption {
	return func(s *scene) {
		for _, c := range characters {
			if c == nil {
				panic("scene: WithCharacters requires non-nil Characters")
			}
			s.registry[c.ID()] = c
		}
	}
}

// WithComputeWorkers sets the number of worker goroutines that tick characters.
// Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of compute workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithComputeWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.computeWorkers = n
	}
}

// WithQueueSize sets the worker pool's task queue size. Defaults to 256.
//
// Parameters:
//   - n: the queue size (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithQueueSize(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.queueSize = n
	}
}

// WithIdleTimeout sets how long an idle worker goroutine lives before exiting.
// Defaults to one second.
//
// Parameters:
//   - d: the idle timeout
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithIdleTimeout(d time.Duration) SceneBuilderOption {
	return func(s *scene) {
		if d > 0 {
			s.idleTimeout = d
		}
	}
}

// WithProfiler attaches a profiler that receives each Update's duration.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) SceneBuilderOption {
	return func(s *scene) {
		s.profiler = p
	}
}

// WithMetrics attaches Prometheus tick metrics.
//
// Parameters:
//   - m: the metrics, registered by the caller
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithMetrics(m *Metrics) SceneBuilderOption {
	return func(s *scene) {
		s.metrics = m
	}
}

// WithLogger redirects the scene's log output.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLogger(l *log.Logger) SceneBuilderOption {
	return func(s *scene) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConfig applies the scheduler settings of a configuration document. A profiler is
// attached when cfg.Profile is set and none was supplied.
//
// Parameters:
//   - cfg: the scene configuration
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithConfig(cfg config.SceneConfig) SceneBuilderOption {
	return func(s *scene) {
		s.computeWorkers = cfg.GetWorkers()
		s.queueSize = cfg.GetQueueSize()
		s.idleTimeout = cfg.GetIdleTimeout()
		if cfg.Profile && s.profiler == nil {
			p := profiler.NewProfiler()
			p.SetInterval(cfg.GetProfileInterval())
			p.SetLogger(s.logger)
			s.profiler = p
		}
	}
}
