package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/san-kum/ctrlsweep/internal/scenario"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFile     = "config.json"
	DefaultTestCase = "bestest_air"
)

// Global maps test-case names to their configuration.
type Global map[string]*TestCase

// TestCase configures how one test case is exercised. The save flags are
// pointers because their defaults differ between the user-defined run and
// the scenario sweep.
type TestCase struct {
	RunUserDefinedTest bool             `yaml:"run_user_defined_test" json:"run_user_defined_test"`
	SaveKPIResults     *bool            `yaml:"save_kpi_results,omitempty" json:"save_kpi_results,omitempty"`
	SaveMeasurements   *bool            `yaml:"save_measurements,omitempty" json:"save_measurements,omitempty"`
	ElectricityPrice   []scenario.Value `yaml:"electricity_price,omitempty" json:"electricity_price,omitempty"`
	TimePeriod         []scenario.Value `yaml:"time_period,omitempty" json:"time_period,omitempty"`
	Controller         string           `yaml:"controller,omitempty" json:"controller,omitempty"`
	Backend            string           `yaml:"backend,omitempty" json:"backend,omitempty"`
	Integrator         string           `yaml:"integrator,omitempty" json:"integrator,omitempty"`
}

// NotFoundError is returned when a test case has no configuration entry.
type NotFoundError struct {
	TestCase string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Test case '%s' not found in config.", e.TestCase)
}

// SaveKPI reports whether KPI results should be persisted, falling back
// to def when the flag is absent.
func (tc *TestCase) SaveKPI(def bool) bool {
	if tc.SaveKPIResults == nil {
		return def
	}
	return *tc.SaveKPIResults
}

func (tc *TestCase) SaveMeasurementTables(def bool) bool {
	if tc.SaveMeasurements == nil {
		return def
	}
	return *tc.SaveMeasurements
}

// Load reads a configuration file: YAML for a .yaml/.yml extension, JSON
// otherwise. A test case listed twice in JSON keeps its last entry.
func Load(path string) (Global, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g := Global{}
	if isYAML(path) {
		err = yaml.Unmarshal(data, &g)
	} else {
		err = json.Unmarshal(data, &g)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for name, tc := range g {
		if tc == nil {
			g[name] = &TestCase{}
		}
	}
	return g, nil
}

// Save writes the configuration as JSON, or as YAML when path has a
// .yaml/.yml extension.
func Save(path string, g Global) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(g)
	} else {
		data, err = json.MarshalIndent(g, "", "  ")
	}
	if err != nil {
		return err
	}
	if !isYAML(path) {
		data = append(data, '\n')
	}
	return os.WriteFile(path, data, 0644)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func (g Global) Lookup(name string) (*TestCase, error) {
	tc, ok := g[name]
	if !ok {
		return nil, &NotFoundError{TestCase: name}
	}
	return tc, nil
}

func (g Global) Names() []string {
	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Bool(v bool) *bool { return &v }
