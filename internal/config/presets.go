package config

import (
	"sort"

	"github.com/san-kum/ctrlsweep/internal/scenario"
)

var Presets = map[string]*TestCase{
	"bestest_air": {
		SaveKPIResults:   Bool(true),
		SaveMeasurements: Bool(true),
		ElectricityPrice: []scenario.Value{scenario.Number(0.1), scenario.Number(0.2), scenario.Number(0.3)},
		TimePeriod:       []scenario.Value{scenario.Int(0), scenario.Int(30 * 86400)},
	},
	"bestest_hydronic": {
		RunUserDefinedTest: true,
		SaveKPIResults:     Bool(true),
		SaveMeasurements:   Bool(false),
		Integrator:         "euler",
	},
	"singlezone_commercial": {
		SaveKPIResults:   Bool(true),
		SaveMeasurements: Bool(false),
		ElectricityPrice: []scenario.Value{scenario.Number(0.15), scenario.Number(0.4)},
		TimePeriod:       []scenario.Value{scenario.Int(15 * 86400), scenario.Int(45 * 86400)},
		Controller:       "pid",
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *TestCase {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *p
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sample is the configuration written by `ctrlsweep init`.
func Sample() Global {
	g := Global{}
	for _, name := range ListPresets() {
		g[name] = GetPreset(name)
	}
	return g
}
