// Package config reads the runtime settings of the animation runtime from YAML.
// Every setting resolves with the priority config file -> environment variable -> default,
// so an absent file or a zero field is never an error.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/ik"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable Load falls back to when given no path.
const EnvConfigPath = "OXY_ANIM_CONFIG"

// Config is the root configuration document.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Scene   SceneConfig   `yaml:"scene"`
	IK      IKConfig      `yaml:"ik"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// EngineConfig tunes the fixed-rate tick loop.
type EngineConfig struct {
	TickRate int `yaml:"tick_rate"`
}

// SceneConfig tunes the parallel character scheduler.
type SceneConfig struct {
	Workers           int  `yaml:"workers"`
	QueueSize         int  `yaml:"queue_size"`
	IdleTimeoutMs     int  `yaml:"idle_timeout_ms"`
	Profile           bool `yaml:"profile"`
	ProfileIntervalMs int  `yaml:"profile_interval_ms"`
}

// IKConfig bounds the IK solvers.
type IKConfig struct {
	FabrikIterations int  `yaml:"fabrik_iterations"`
	CCDIterations    int  `yaml:"ccd_iterations"`
	Metrics          bool `yaml:"metrics"`
}

// MetricsConfig controls the Prometheus exposition.
type MetricsConfig struct {
	Port      int    `yaml:"port"`
	Namespace string `yaml:"namespace"`
}

// GetTickRate returns the engine ticks per second.
func (e *EngineConfig) GetTickRate() int {
	return intWithEnvFallback(e.TickRate, "OXY_ANIM_TICK_RATE", 60)
}

// GetWorkers returns the scene worker count, defaulting to one less than the CPU count.
func (s *SceneConfig) GetWorkers() int {
	return intWithEnvFallback(s.Workers, "OXY_ANIM_WORKERS", max(runtime.NumCPU()-1, 1))
}

// GetQueueSize returns the scene task queue size.
func (s *SceneConfig) GetQueueSize() int {
	return intWithEnvFallback(s.QueueSize, "OXY_ANIM_QUEUE_SIZE", 256)
}

// GetIdleTimeout returns how long an idle scene worker lives.
func (s *SceneConfig) GetIdleTimeout() time.Duration {
	ms := intWithEnvFallback(s.IdleTimeoutMs, "OXY_ANIM_IDLE_TIMEOUT_MS", 1000)
	return time.Duration(ms) * time.Millisecond
}

// GetProfileInterval returns the profiler reporting interval.
func (s *SceneConfig) GetProfileInterval() time.Duration {
	ms := intWithEnvFallback(s.ProfileIntervalMs, "OXY_ANIM_PROFILE_INTERVAL_MS", 1000)
	return time.Duration(ms) * time.Millisecond
}

// GetFabrikIterations returns the FABRIK pass bound.
func (i *IKConfig) GetFabrikIterations() int {
	return intWithEnvFallback(i.FabrikIterations, "OXY_ANIM_FABRIK_ITERATIONS", ik.DefaultMaxIterations)
}

// GetCCDIterations returns the CCD pass bound.
func (i *IKConfig) GetCCDIterations() int {
	return intWithEnvFallback(i.CCDIterations, "OXY_ANIM_CCD_ITERATIONS", ik.DefaultMaxIterations)
}

// Solvers builds both IK solvers with the configured bounds.
//
// Parameters:
//   - m: solver metrics to attach, or nil
//
// Returns:
//   - *ik.FABRIK: the FABRIK solver
//   - *ik.CCD: the CCD solver
func (i *IKConfig) Solvers(m *ik.Metrics) (*ik.FABRIK, *ik.CCD) {
	return &ik.FABRIK{MaxIterations: i.GetFabrikIterations(), Metrics: m},
		&ik.CCD{MaxIterations: i.GetCCDIterations(), Metrics: m}
}

// GetPort returns the /metrics listen port.
func (m *MetricsConfig) GetPort() int {
	return intWithEnvFallback(m.Port, "OXY_ANIM_METRICS_PORT", 2112)
}

// GetNamespace returns the Prometheus namespace.
func (m *MetricsConfig) GetNamespace() string {
	if m.Namespace != "" {
		return m.Namespace
	}
	if env := os.Getenv("OXY_ANIM_METRICS_NAMESPACE"); env != "" {
		return env
	}
	return "oxy_anim"
}

// intWithEnvFallback resolves a positive setting: config -> env -> default.
func intWithEnvFallback(configured int, envVar string, fallback int) int {
	if configured > 0 {
		return configured
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}

// Load reads a YAML configuration file.
// If path is empty it reads the file named by OXY_ANIM_CONFIG; if that is unset too, it
// returns an empty Config whose accessors yield environment values or defaults.
//
// Parameters:
//   - path: the YAML file to read, or ""
//
// Returns:
//   - *Config: the parsed configuration
//   - error: a read or parse error
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
		if path == "" {
			return &Config{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML configuration document.
//
// Parameters:
//   - data: the YAML bytes
//
// Returns:
//   - *Config: the parsed configuration
//   - error: a parse error
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
