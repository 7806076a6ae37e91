// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

// Package config loads the back end's runtime configuration: defaults
// via creasty/defaults, then a YAML overlay via gopkg.in/yaml.v3, then
// validation.
package config

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// Config holds every knob the Session Controller and Filter/Classifier
// consult.
type Config struct {
	// InitialStepSize seeds the depth limit on Start and Restart, and is
	// the step by which a supertree restart climbs the call stack.
	InitialStepSize int `yaml:"initial_step_size" default:"2"`

	// MaxDepthCeiling caps the max_depth every restart() collects with,
	// subtree or supertree, regardless of how many times the window climbs.
	MaxDepthCeiling int `yaml:"max_depth_ceiling" default:"64"`

	// AssumeAllIOIsTabled is threaded through to replay.Request.AllIOTabled.
	AssumeAllIOIsTabled bool `yaml:"assume_all_io_is_tabled" default:"false"`

	// CheckpointLogging turns on the Filter/Classifier's per-node debug
	// log line; off by default since it is extremely chatty.
	CheckpointLogging bool `yaml:"checkpoint_logging" default:"false"`

	// DumpDir is where raw-dump sessions write their output file, when
	// the caller requests a dump by relative filename only.
	DumpDir string `yaml:"dump_dir" default:"."`

	// MetricsAddr, when non-empty, is the listen address for the
	// Prometheus /metrics endpoint (cmd/decldbg serve).
	MetricsAddr string `yaml:"metrics_addr" default:""`

	// RedisAddr, when non-empty, mirrors the front end's persistent
	// state to Redis in addition to process memory; browser state stays
	// in memory only. Only consulted by the persist build (see
	// internal/session/persist_enabled.go).
	RedisAddr string `yaml:"redis_addr" default:""`

	// RedisDB selects the logical Redis database index.
	RedisDB int `yaml:"redis_db" default:"0"`
}

// Validate rejects configurations that would make the Session Controller
// misbehave rather than fail loudly later.
func (c *Config) Validate() error {
	if c.InitialStepSize < 1 {
		return fmt.Errorf("config: initial_step_size must be >= 1, got %d", c.InitialStepSize)
	}
	if c.MaxDepthCeiling < c.InitialStepSize {
		return fmt.Errorf("config: max_depth_ceiling (%d) must be >= initial_step_size (%d)", c.MaxDepthCeiling, c.InitialStepSize)
	}
	return nil
}

// Load reads file, applies field defaults, overlays the YAML content,
// and validates the result.
func Load(file string) (*Config, error) {
	cfg := &Config{}

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config: setting defaults: %w", err)
	}

	yamlFile, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", file, err)
	}

	type plain Config
	if err := yaml.Unmarshal(yamlFile, (*plain)(cfg)); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", file, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyOverlay decodes an untyped knob map, as produced by a CLI
// `--set key=value` flag bag or a REST body, on top of an existing
// Config, using field-tag-aware decoding so keys like
// "initial_step_size" land on InitialStepSize without a manual switch.
// Unknown keys are rejected rather than silently ignored.
func (c *Config) ApplyOverlay(overlay map[string]any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           c,
		TagName:          "yaml",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("config: building overlay decoder: %w", err)
	}
	if err := decoder.Decode(overlay); err != nil {
		return fmt.Errorf("config: applying overlay: %w", err)
	}
	return c.Validate()
}

// Default returns a Config populated with every field default, skipping
// the file-load step. Used by tests and by cmd/decldbg when no config
// file is given.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config: setting defaults: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
