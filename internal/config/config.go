// Package config handles probe network configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// Config holds all probe network settings.
type Config struct {
	Build   BuildConfig   `yaml:"build"`
	Runtime RuntimeConfig `yaml:"runtime"`
	Logging LoggingConfig `yaml:"logging"`
}

// BuildConfig holds offline probe build settings.
type BuildConfig struct {
	NeighborCandidates  int    `yaml:"neighbor_candidates"`   // k-nearest probes considered for linking
	Workers             int    `yaml:"workers"`               // Parallel primitive propagation workers
	VertexWeighting     string `yaml:"vertex_weighting"`      // "count" or "area"
	MaxVertexInfluences int    `yaml:"max_vertex_influences"` // Probes kept per vertex
	OutputDir           string `yaml:"output_dir"`
}

// RuntimeConfig holds the dynamic update settings.
type RuntimeConfig struct {
	MaxProbeUpdatesPerFrame int                 `yaml:"max_probe_updates_per_frame"`
	RevalidateFrames        int                 `yaml:"revalidate_frames"` // 0 disables periodic refresh
	CompletionLatencyFrames int                 `yaml:"completion_latency_frames"`
	StaticSet               string              `yaml:"static_set"` // "a" or "b"
	AmbientSkySH            [9][3]float32       `yaml:"ambient_sky_sh"`
	BounceFactors           BounceFactorsConfig `yaml:"bounce_factors"`
}

// BounceFactorsConfig holds the per-contribution weights.
type BounceFactorsConfig struct {
	Sun       float32 `yaml:"sun"`
	Sky       float32 `yaml:"sky"`
	Dynamic   float32 `yaml:"dynamic"`
	Static    float32 `yaml:"static"`
	Emissive  float32 `yaml:"emissive"`
	Neighbors float32 `yaml:"neighbors"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Build: BuildConfig{
			NeighborCandidates:  12,
			Workers:             4,
			VertexWeighting:     "count",
			MaxVertexInfluences: 4,
			OutputDir:           "probes",
		},
		Runtime: RuntimeConfig{
			MaxProbeUpdatesPerFrame: 32,
			RevalidateFrames:        120,
			CompletionLatencyFrames: 1,
			StaticSet:               "a",
			AmbientSkySH:            [9][3]float32{{0.5, 0.6, 0.8}},
			BounceFactors: BounceFactorsConfig{
				Sun:       1,
				Sky:       1,
				Dynamic:   1,
				Static:    1,
				Emissive:  1,
				Neighbors: 1,
			},
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks values that would break the build or the scheduler.
func (c *Config) Validate() error {
	var errs []error
	if c.Build.NeighborCandidates < 4 {
		errs = append(errs, fmt.Errorf("build.neighbor_candidates must be >= 4, got %d", c.Build.NeighborCandidates))
	}
	if c.Build.Workers < 1 {
		errs = append(errs, fmt.Errorf("build.workers must be >= 1, got %d", c.Build.Workers))
	}
	if c.Build.VertexWeighting != "count" && c.Build.VertexWeighting != "area" {
		errs = append(errs, fmt.Errorf("build.vertex_weighting must be count or area, got %q", c.Build.VertexWeighting))
	}
	if c.Build.MaxVertexInfluences < 1 || c.Build.MaxVertexInfluences > 4 {
		errs = append(errs, fmt.Errorf("build.max_vertex_influences must be in [1,4], got %d", c.Build.MaxVertexInfluences))
	}
	if c.Runtime.MaxProbeUpdatesPerFrame < 1 {
		errs = append(errs, fmt.Errorf("runtime.max_probe_updates_per_frame must be >= 1, got %d", c.Runtime.MaxProbeUpdatesPerFrame))
	}
	if c.Runtime.RevalidateFrames < 0 || c.Runtime.CompletionLatencyFrames < 0 {
		errs = append(errs, errors.New("runtime frame counts must not be negative"))
	}
	if c.Runtime.StaticSet != "a" && c.Runtime.StaticSet != "b" {
		errs = append(errs, fmt.Errorf("runtime.static_set must be a or b, got %q", c.Runtime.StaticSet))
	}
	return errors.Join(errs...)
}
