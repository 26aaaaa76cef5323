package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDuration   = 0.5
	DefaultSeed       = 42
	DefaultController = "nmpc"
	DefaultPreset     = "default"

	DefaultLQRQZ  = 1000.0
	DefaultLQRQVZ = 1.0
	DefaultLQRR   = 0.1

	DefaultHorizon       = 15
	DefaultWeightZ       = 5000.0
	DefaultWeightU       = 0.001
	DefaultBoundPenalty  = 1e5
	DefaultMaxIterations = 50
	DefaultTolerance     = 1e-3
)

// Config is the YAML run file. Physics holds the full parameter set; Preset,
// when non-empty, is resolved first and then overlaid by whatever the file
// sets explicitly.
type Config struct {
	Preset      string           `yaml:"preset"`
	Controller  string           `yaml:"controller"`
	Duration    float64          `yaml:"duration"`
	Seed        int64            `yaml:"seed"`
	Physics     PhysicalConfig   `yaml:"physics"`
	Controllers ControllerConfig `yaml:"controllers"`
	Logger      LoggerConfig     `yaml:"logger"`
	Storage     StorageConfig    `yaml:"storage"`
}

type ControllerConfig struct {
	LQR  LQRConfig  `yaml:"lqr"`
	NMPC NMPCConfig `yaml:"nmpc"`
}

// LQRConfig holds the diagonal state weights on (z, v_z) and the scalar
// control weight.
type LQRConfig struct {
	QZ  float64 `yaml:"q_z"`
	QVZ float64 `yaml:"q_vz"`
	R   float64 `yaml:"r"`
}

type NMPCConfig struct {
	Horizon       int     `yaml:"horizon"`
	WeightZ       float64 `yaml:"w_z"`
	WeightU       float64 `yaml:"w_u"`
	BoundPenalty  float64 `yaml:"bound_penalty"`
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
}

type LoggerConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type StorageConfig struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
}

func DefaultControllers() ControllerConfig {
	return ControllerConfig{
		LQR: LQRConfig{QZ: DefaultLQRQZ, QVZ: DefaultLQRQVZ, R: DefaultLQRR},
		NMPC: NMPCConfig{
			Horizon:       DefaultHorizon,
			WeightZ:       DefaultWeightZ,
			WeightU:       DefaultWeightU,
			BoundPenalty:  DefaultBoundPenalty,
			MaxIterations: DefaultMaxIterations,
			Tolerance:     DefaultTolerance,
		},
	}
}

func DefaultConfig() *Config {
	return &Config{
		Preset:      DefaultPreset,
		Controller:  DefaultController,
		Duration:    DefaultDuration,
		Seed:        DefaultSeed,
		Physics:     DefaultPhysical(),
		Controllers: DefaultControllers(),
		Logger: LoggerConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Storage: StorageConfig{
			Backend: "file",
			Dir:     ".vdesim",
		},
	}
}

// Load reads a YAML run file. When the file names a preset, the preset's
// physics are used as the base before the file's own physics keys apply.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var head struct {
		Preset string `yaml:"preset"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if head.Preset != "" {
		p, err := GetPreset(head.Preset)
		if err != nil {
			return nil, err
		}
		cfg.Physics = p
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := c.Physics.Validate(); err != nil {
		return err
	}
	if c.Duration <= 0 {
		return &ConfigurationError{Field: "duration", Value: c.Duration, Reason: "must be > 0"}
	}
	return c.Controllers.Validate()
}

func (c ControllerConfig) Validate() error {
	if c.LQR.QZ < 0 || c.LQR.QVZ < 0 {
		return &ConfigurationError{Field: "lqr.q", Value: minf(c.LQR.QZ, c.LQR.QVZ), Reason: "state weights must be >= 0"}
	}
	if c.LQR.R <= 0 {
		return &ConfigurationError{Field: "lqr.r", Value: c.LQR.R, Reason: "must be > 0"}
	}
	if c.NMPC.Horizon < 1 {
		return &ConfigurationError{Field: "nmpc.horizon", Value: float64(c.NMPC.Horizon), Reason: "must be >= 1"}
	}
	if c.NMPC.MaxIterations < 1 {
		return &ConfigurationError{Field: "nmpc.max_iterations", Value: float64(c.NMPC.MaxIterations), Reason: "must be >= 1"}
	}
	if c.NMPC.Tolerance < 0 {
		return &ConfigurationError{Field: "nmpc.tolerance", Value: c.NMPC.Tolerance, Reason: "must be >= 0"}
	}
	return nil
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
