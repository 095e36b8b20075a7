package experiment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/ctrlsweep/internal/controllers"
	"github.com/san-kum/ctrlsweep/internal/integrators"
	"github.com/san-kum/ctrlsweep/internal/metrics"
	"github.com/san-kum/ctrlsweep/internal/models"
	"github.com/san-kum/ctrlsweep/internal/sim"
)

var (
	ErrUnknownTestCase   = errors.New("experiment: unknown test case")
	ErrUnknownController = errors.New("experiment: unknown controller")
	ErrUnknownIntegrator = errors.New("experiment: unknown integrator")
)

type Registry struct {
	testCases   map[string]func() *models.Zone
	integrators map[string]func() sim.Integrator
	controllers map[string]func(*models.Zone) sim.Controller
}

func NewRegistry() *Registry {
	r := &Registry{
		testCases:   make(map[string]func() *models.Zone),
		integrators: make(map[string]func() sim.Integrator),
		controllers: make(map[string]func(*models.Zone) sim.Controller),
	}

	r.testCases["bestest_air"] = models.NewBestestAir
	r.testCases["bestest_hydronic"] = models.NewBestestHydronic
	r.testCases["singlezone_commercial"] = models.NewSingleZoneCommercial

	r.integrators["euler"] = func() sim.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() sim.Integrator { return integrators.NewRK4() }

	r.controllers["baseline"] = func(z *models.Zone) sim.Controller {
		return controllers.NewBaseline(z.HeatingSetpoint, 1.0)
	}
	r.controllers["pid"] = func(z *models.Zone) sim.Controller {
		return controllers.NewPID(0.8, 2e-4, 0, z.HeatingSetpoint)
	}
	r.controllers["none"] = func(z *models.Zone) sim.Controller {
		return controllers.NewNone(z.ControlDim())
	}

	return r
}

func (r *Registry) GetTestCase(name string) (*models.Zone, error) {
	fn, ok := r.testCases[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTestCase, name)
	}
	return fn(), nil
}

func (r *Registry) GetIntegrator(name string) (sim.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIntegrator, name)
	}
	return fn(), nil
}

func (r *Registry) GetController(name string, zone *models.Zone) (sim.Controller, error) {
	fn, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownController, name)
	}
	return fn(zone), nil
}

func (r *Registry) ListTestCases() []string   { return sortedKeys(r.testCases) }
func (r *Registry) ListControllers() []string { return sortedKeys(r.controllers) }

// DefaultMetrics are the KPIs reported for every local test case.
func (r *Registry) DefaultMetrics(zone *models.Zone, tariff models.Tariff) []sim.Metric {
	return []sim.Metric{
		metrics.NewEnergy(zone.HeatingPower, zone.FloorArea),
		metrics.NewCost(zone.HeatingPower, tariff, zone.FloorArea),
		metrics.NewDiscomfort(zone.ComfortBounds),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
