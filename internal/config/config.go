// Package config handles YAML scenario parsing, defaults and presets.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"shrinkray/internal/collector"
	"shrinkray/internal/engine"
	"shrinkray/internal/model"

	"gopkg.in/yaml.v3"
)

// ErrUnknownPreset is returned when a preset name is not registered.
var ErrUnknownPreset = errors.New("unknown preset")

// Config is the root configuration structure.
type Config struct {
	Preset     string                `yaml:"preset,omitempty"`
	Model      model.Params          `yaml:"model"`
	Run        RunConfig             `yaml:"run"`
	Sweep      SweepConfig           `yaml:"sweep"`
	Thresholds *collector.Thresholds `yaml:"thresholds,omitempty"`
}

// RunConfig controls how the engine paces a run.
type RunConfig struct {
	Seed       uint32        `yaml:"seed"`
	BatchSize  int           `yaml:"batchSize"`
	EmitEvery  time.Duration `yaml:"emitEvery"`
	YieldEvery time.Duration `yaml:"yieldEvery"`
}

// SweepConfig is the box-size range of an analytic sweep.
type SweepConfig struct {
	QMin float64 `yaml:"qMin"`
	QMax float64 `yaml:"qMax"`
	Step float64 `yaml:"step"`
}

// Defaults returns the initial scenario: a 100 g box at $4 sold to
// 100,000 customers, 30% of whom are informed.
func Defaults() *Config {
	return &Config{
		Model: model.Params{
			P:           4,
			Q:           100,
			C:           0.02,
			Alpha:       0.3,
			VI:          0.08,
			VU:          8,
			StrictQStar: false,
			QStar:       60,
			N:           100_000,
		},
		Run: RunConfig{
			Seed:       12345,
			BatchSize:  2500,
			EmitEvery:  80 * time.Millisecond,
			YieldEvery: 12 * time.Millisecond,
		},
		Sweep: SweepConfig{QMin: 1, QMax: 160, Step: 1},
	}
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	return LoadConfigWithPreset(path, "")
}

// LoadConfigWithPreset reads a YAML configuration file on top of the named
// preset. A non-empty preset replaces the file's own preset key.
func LoadConfigWithPreset(path, preset string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := ParseWithPreset(data, preset)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Parse decodes a scenario. Values present in data override the named
// preset, which overrides Defaults.
func Parse(data []byte) (*Config, error) {
	return ParseWithPreset(data, "")
}

// ParseWithPreset is Parse with preset standing in for the preset key of
// data when non-empty. Values present in data still win over it.
func ParseWithPreset(data []byte, preset string) (*Config, error) {
	var head struct {
		Preset string `yaml:"preset"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	if preset == "" {
		preset = head.Preset
	}

	cfg := Defaults()
	if preset != "" {
		if err := cfg.ApplyPreset(preset); err != nil {
			return nil, err
		}
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Preset = preset
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyPreset overwrites the model parameters a preset defines. N is kept.
func (c *Config) ApplyPreset(name string) error {
	p, ok := Presets[name]
	if !ok {
		return fmt.Errorf("%w: %q (available: %v)", ErrUnknownPreset, name, PresetNames())
	}
	p.Apply(&c.Model)
	c.Preset = name
	return nil
}

// Engine returns the engine configuration for this scenario.
func (c *Config) Engine() engine.Config {
	return engine.Config{
		Params:     c.Model,
		Seed:       c.Run.Seed,
		BatchSize:  c.Run.BatchSize,
		EmitEvery:  c.Run.EmitEvery,
		YieldEvery: c.Run.YieldEvery,
	}
}

// Preset is a named parameter set.
type Preset struct {
	Description string
	Params      model.Params
}

// Apply copies the preset onto p, leaving p.N unchanged.
func (ps Preset) Apply(p *model.Params) {
	n := p.N
	*p = ps.Params
	p.N = n
}

// Presets are the built-in scenarios.
var Presets = map[string]Preset{
	"shrink": {
		Description: "premium small box; informed buyers priced out, uninformed gated by Q*",
		Params: model.Params{
			P: 5.25, Q: 60, C: 0.010, Alpha: 0.12, VI: 0.08, VU: 9.0,
			QStar: 60, StrictQStar: true,
		},
	},
	"normal": {
		Description: "regular box mostly sold to informed buyers",
		Params: model.Params{
			P: 4.0, Q: 110, C: 0.020, Alpha: 0.75, VI: 0.08, VU: 8.0,
			QStar: 60, StrictQStar: false,
		},
	},
	"bonus": {
		Description: "oversized bonus box at the regular price",
		Params: model.Params{
			P: 4.0, Q: 140, C: 0.020, Alpha: 0.55, VI: 0.08, VU: 8.0,
			QStar: 60, StrictQStar: false,
		},
	},
}

// PresetNames returns the registered preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
