package config

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is matched by every ConfigurationError via errors.Is.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// ConfigurationError reports a non-physical or non-numerical parameter.
type ConfigurationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: %s = %g: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Dimension selects whether the radial channel is simulated.
type Dimension int

const (
	Dim1D Dimension = iota + 1
	Dim2D
)

func (d Dimension) String() string {
	switch d {
	case Dim1D:
		return "1D"
	case Dim2D:
		return "2D"
	}
	return fmt.Sprintf("Dimension(%d)", int(d))
}

func ParseDimension(s string) (Dimension, error) {
	switch s {
	case "1D", "1d":
		return Dim1D, nil
	case "2D", "2d":
		return Dim2D, nil
	}
	return 0, fmt.Errorf("config: unknown dimension %q (want 1D or 2D)", s)
}

func (d Dimension) MarshalText() ([]byte, error) {
	if d != Dim1D && d != Dim2D {
		return nil, fmt.Errorf("config: invalid dimension %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Dimension) UnmarshalText(b []byte) error {
	v, err := ParseDimension(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// PhysicalConfig holds the filament model and numerical parameters. Values
// are plain data; copy it freely, it is never mutated by the simulation.
type PhysicalConfig struct {
	Dimension Dimension `yaml:"dimension" json:"dimension"`

	GammaZ    float64 `yaml:"gamma_z" json:"gamma_z"`
	GammaR    float64 `yaml:"gamma_r" json:"gamma_r"`
	KCoupling float64 `yaml:"k_coupling" json:"k_coupling"`

	IpNominal float64 `yaml:"ip_nominal" json:"ip_nominal"`

	MassZ float64 `yaml:"m_plasma_z" json:"m_plasma_z"`
	MassR float64 `yaml:"m_plasma_r" json:"m_plasma_r"`

	KEddyZ     float64 `yaml:"k_eddy_z" json:"k_eddy_z"`
	KEddyR     float64 `yaml:"k_eddy_r" json:"k_eddy_r"`
	LambdaEddy float64 `yaml:"lambda_eddy" json:"lambda_eddy"`

	BControlZ float64 `yaml:"b_control_z" json:"b_control_z"`
	BControlR float64 `yaml:"b_control_r" json:"b_control_r"`

	Dt         float64 `yaml:"dt" json:"dt"`
	NoiseLevel float64 `yaml:"noise_level" json:"noise_level"`

	VDEThresholdZ float64 `yaml:"vde_threshold_z" json:"vde_threshold_z"`
	VDEThresholdR float64 `yaml:"vde_threshold_r" json:"vde_threshold_r"`

	ZCQTrigger float64 `yaml:"z_cq_trigger" json:"z_cq_trigger"`
	IpCQRate   float64 `yaml:"ip_cq_rate" json:"ip_cq_rate"`
}

// DefaultPhysical returns the reference mid-size device parameters.
func DefaultPhysical() PhysicalConfig {
	return PhysicalConfig{
		Dimension:     Dim2D,
		GammaZ:        25.0,
		GammaR:        15.0,
		KCoupling:     0.5,
		IpNominal:     1.0e6,
		MassZ:         1.0,
		MassR:         0.8,
		KEddyZ:        3.0e6,
		KEddyR:        2.5e6,
		LambdaEddy:    0.4,
		BControlZ:     60.0,
		BControlR:     40.0,
		Dt:            0.0005,
		NoiseLevel:    0.01,
		VDEThresholdZ: 1.0,
		VDEThresholdR: 0.8,
		ZCQTrigger:    0.25,
		IpCQRate:      2.0e7,
	}
}

// Validate returns a *ConfigurationError for the first offending field.
func (c PhysicalConfig) Validate() error {
	if c.Dimension != Dim1D && c.Dimension != Dim2D {
		return &ConfigurationError{Field: "dimension", Value: float64(c.Dimension), Reason: "must be 1D or 2D"}
	}

	fields := []struct {
		name  string
		value float64
	}{
		{"gamma_z", c.GammaZ}, {"gamma_r", c.GammaR}, {"k_coupling", c.KCoupling},
		{"ip_nominal", c.IpNominal}, {"m_plasma_z", c.MassZ}, {"m_plasma_r", c.MassR},
		{"k_eddy_z", c.KEddyZ}, {"k_eddy_r", c.KEddyR}, {"lambda_eddy", c.LambdaEddy},
		{"b_control_z", c.BControlZ}, {"b_control_r", c.BControlR},
		{"dt", c.Dt}, {"noise_level", c.NoiseLevel},
		{"vde_threshold_z", c.VDEThresholdZ}, {"vde_threshold_r", c.VDEThresholdR},
		{"z_cq_trigger", c.ZCQTrigger}, {"ip_cq_rate", c.IpCQRate},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return &ConfigurationError{Field: f.name, Value: f.value, Reason: "must be finite"}
		}
	}

	positive := []struct {
		name  string
		value float64
	}{
		{"dt", c.Dt},
		{"ip_nominal", c.IpNominal},
		{"m_plasma_z", c.MassZ},
		{"m_plasma_r", c.MassR},
		{"lambda_eddy", c.LambdaEddy},
		{"vde_threshold_z", c.VDEThresholdZ},
		{"vde_threshold_r", c.VDEThresholdR},
	}
	for _, f := range positive {
		if f.value <= 0 {
			return &ConfigurationError{Field: f.name, Value: f.value, Reason: "must be > 0"}
		}
	}

	if c.NoiseLevel < 0 {
		return &ConfigurationError{Field: "noise_level", Value: c.NoiseLevel, Reason: "must be >= 0"}
	}
	if c.IpCQRate < 0 {
		return &ConfigurationError{Field: "ip_cq_rate", Value: c.IpCQRate, Reason: "must be >= 0"}
	}
	return nil
}

// Steps is the number of fixed steps that fit in duration.
func (c PhysicalConfig) Steps(duration float64) int {
	return int(duration / c.Dt)
}
