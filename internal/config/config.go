// Package config handles svonavd configuration loading and management.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/o0olele/svonav/generator"
	"github.com/o0olele/svonav/math32"
	"github.com/o0olele/svonav/navpath"
	"github.com/o0olele/svonav/svo"
)

// Config holds all svonavd settings.
type Config struct {
	Octree    svo.Config               `yaml:"octree"`
	Agent     generator.AgentShape     `yaml:"agent"`
	Scheduler SchedulerConfig          `yaml:"scheduler"`
	Smoothing navpath.SmoothConfig     `yaml:"smoothing"`
	HTTP      HTTPConfig               `yaml:"http"`
	Logging   LoggingConfig            `yaml:"logging"`
}

// SchedulerConfig mirrors generator.SchedulerConfig with yaml-friendly
// durations expressed in microseconds.
type SchedulerConfig struct {
	MaxTasks             int `yaml:"max_tasks"`
	MaxTasksBoosted      int `yaml:"max_tasks_boosted"`
	MaxTrisPerTask       int `yaml:"max_tris_per_task"`
	MaxTickMicros        int `yaml:"max_tick_micros"`
	MaxTickMicrosBoosted int `yaml:"max_tick_micros_boosted"`
	MaxPendingTicks      int `yaml:"max_pending_ticks"`
}

// ToGenerator converts to the generator package's runtime form.
func (c SchedulerConfig) ToGenerator() generator.SchedulerConfig {
	return generator.SchedulerConfig{
		MaxTasks:           c.MaxTasks,
		MaxTasksBoosted:    c.MaxTasksBoosted,
		MaxTrisPerTask:     c.MaxTrisPerTask,
		MaxTickTime:        time.Duration(c.MaxTickMicros) * time.Microsecond,
		MaxTickTimeBoosted: time.Duration(c.MaxTickMicrosBoosted) * time.Microsecond,
		MaxPendingTicks:    c.MaxPendingTicks,
	}
}

// HTTPConfig holds the query server settings.
type HTTPConfig struct {
	Addr       string `yaml:"addr"`
	EnablePprof bool  `yaml:"enable_pprof"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	sched := generator.DefaultSchedulerConfig()
	return &Config{
		Octree: svo.Config{
			Origin:       math32.Vector3{},
			VoxelSize:    0.5,
			TileLayer:    3,
			TileCapacity: 4096,
		},
		Agent: generator.AgentShape{Radius: 0.5, HalfHeight: 0.5},
		Scheduler: SchedulerConfig{
			MaxTasks:             sched.MaxTasks,
			MaxTasksBoosted:      sched.MaxTasksBoosted,
			MaxTrisPerTask:       sched.MaxTrisPerTask,
			MaxTickMicros:        int(sched.MaxTickTime / time.Microsecond),
			MaxTickMicrosBoosted: int(sched.MaxTickTimeBoosted / time.Microsecond),
			MaxPendingTicks:      sched.MaxPendingTicks,
		},
		Smoothing: navpath.DefaultSmoothConfig(),
		HTTP:      HTTPConfig{Addr: ":8080", EnablePprof: true},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// Load reads path into a Config layered over Default. A missing path ("")
// just returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
