package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/Carmen-Shannon/oxy-bake/common"
	"github.com/Carmen-Shannon/oxy-bake/engine/bakery"
	"github.com/Carmen-Shannon/oxy-bake/engine/model"
	"github.com/Carmen-Shannon/oxy-bake/engine/playback"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultTickRate is the playback tick rate in Hz.
	DefaultTickRate = 60.0

	// DefaultInstances is the number of instances spawned by the tools.
	DefaultInstances = 1024
)

var (
	errInvalidFrameRate = errors.New("bake.frame_rate must be positive")
	errInvalidTickRate  = errors.New("playback.tick_rate must be positive")
	errInvalidInstances = errors.New("playback.instances must not be negative")
	errInvalidWrapMode  = errors.New("invalid wrap mode override")
)

// Config is the file configuration shared by the bake and playback tools.
type Config struct {
	Bake     BakeConfig     `yaml:"bake"`
	Playback PlaybackConfig `yaml:"playback"`
}

// BakeConfig configures baking.
type BakeConfig struct {
	// FrameRate is the sampling rate in frames per second.
	FrameRate float32 `yaml:"frame_rate"`

	// WrapModes overrides the wrap mode of clips by name.
	WrapModes map[string]model.WrapMode `yaml:"wrap_modes,omitempty"`

	Verbose bool `yaml:"verbose,omitempty"`
}

// PlaybackConfig configures the runtime.
type PlaybackConfig struct {
	// Workers is the size of the playback worker pool.
	Workers int `yaml:"workers"`

	// TimeScale is the range of the random per-instance time scale mutator.
	TimeScale playback.TimeScaleRange `yaml:"time_scale"`

	// Seed seeds the time scale stream. Zero selects playback.DefaultSeed.
	Seed uint64 `yaml:"seed"`

	// TickRate is the fixed update rate in Hz.
	TickRate float64 `yaml:"tick_rate"`

	// Instances is the number of instances to spawn.
	Instances int `yaml:"instances"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML configuration file. Fields missing from the file keep their defaults.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - *Config: the configuration
//   - error: error if the file cannot be read, parsed or validated
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration. Fields missing from data keep their defaults.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - *Config: the configuration
//   - error: error if data cannot be parsed or validated
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg as YAML.
//
// Parameters:
//   - path: the file path
//   - cfg: the configuration
//
// Returns:
//   - error: error if encoding or writing fails
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if !common.IsFinite32(c.Bake.FrameRate) || c.Bake.FrameRate <= 0 {
		return fmt.Errorf("%w (got %v)", errInvalidFrameRate, c.Bake.FrameRate)
	}
	for clip, mode := range c.Bake.WrapModes {
		if !mode.Valid() {
			return fmt.Errorf("%w for clip %q: %d", errInvalidWrapMode, clip, mode)
		}
	}
	if c.Playback.TickRate <= 0 {
		return fmt.Errorf("%w (got %v)", errInvalidTickRate, c.Playback.TickRate)
	}
	if c.Playback.Instances < 0 {
		return fmt.Errorf("%w (got %d)", errInvalidInstances, c.Playback.Instances)
	}
	if err := c.Playback.TimeScale.Validate(); err != nil {
		return fmt.Errorf("playback.time_scale: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Bake.FrameRate = common.Coalesce(c.Bake.FrameRate, bakery.DefaultFrameRate)
	c.Playback.Workers = common.Coalesce(c.Playback.Workers, max(runtime.NumCPU()-1, 1))
	c.Playback.Seed = common.Coalesce(c.Playback.Seed, playback.DefaultSeed)
	c.Playback.TickRate = common.Coalesce(c.Playback.TickRate, DefaultTickRate)
	c.Playback.Instances = common.Coalesce(c.Playback.Instances, DefaultInstances)
}
