package config

import (
	"fmt"
	"sort"
)

// Presets are device-scale parameter sets. Each entry starts from
// DefaultPhysical and overrides what differs.
var Presets = map[string]func() PhysicalConfig{
	"default": DefaultPhysical,
	"iter": func() PhysicalConfig {
		c := DefaultPhysical()
		c.GammaZ = 10.0
		c.IpNominal = 15.0e6
		c.MassZ = 100.0
		c.KEddyZ = 5.0e7
		c.BControlZ = 1000.0
		c.VDEThresholdZ = 2.0
		return c
	},
	"sparc": func() PhysicalConfig {
		c := DefaultPhysical()
		c.GammaZ = 50.0
		c.IpNominal = 8.7e6
		c.MassZ = 20.0
		c.BControlZ = 500.0
		c.Dt = 0.0001
		return c
	},
	// unstable removes the passive eddy stabilization and the quench so the
	// bare vertical instability can be studied open loop.
	"unstable": func() PhysicalConfig {
		c := DefaultPhysical()
		c.Dimension = Dim1D
		c.MassZ = 0.1
		c.KEddyZ = 0
		c.ZCQTrigger = 10.0
		c.NoiseLevel = 0
		return c
	},
}

func GetPreset(name string) (PhysicalConfig, error) {
	fn, ok := Presets[name]
	if !ok {
		return PhysicalConfig{}, fmt.Errorf("unknown preset: %s (available: %v)", name, ListPresets())
	}
	return fn(), nil
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
