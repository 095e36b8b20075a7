package experiment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/ctrlsweep/internal/ctrltest"
	"github.com/san-kum/ctrlsweep/internal/models"
)

var ErrUnknownTimePeriod = errors.New("experiment: unknown time period")

const defaultDt = 300

// Local runs control tests against the built-in zone models.
type Local struct {
	Registry   *Registry
	TestCase   string
	Integrator string
	// Dt is the internal integration step in seconds.
	Dt float64

	now func() time.Time
}

var _ ctrltest.Tester = (*Local)(nil)

func NewLocal(testCase string) *Local {
	return &Local{
		Registry:   NewRegistry(),
		TestCase:   testCase,
		Integrator: "rk4",
		Dt:         defaultDt,
		now:        time.Now,
	}
}

func (l *Local) ControlTest(ctx context.Context, req ctrltest.Request) (*ctrltest.Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	zone, err := l.Registry.GetTestCase(l.TestCase)
	if err != nil {
		return nil, err
	}
	integ, err := l.Registry.GetIntegrator(l.Integrator)
	if err != nil {
		return nil, err
	}
	ctrl, err := l.Registry.GetController(req.Controller, zone)
	if err != nil {
		return nil, err
	}

	start, tariff, err := ResolveScenario(zone, req)
	if err != nil {
		return nil, err
	}

	exp := New(Config{
		StartTime:    start,
		WarmupPeriod: req.WarmupPeriod,
		Length:       req.Length,
		Step:         req.Step,
		Dt:           l.Dt,
	})
	if err := exp.Setup(zone, integ, ctrl, l.Registry.DefaultMetrics(zone, tariff)); err != nil {
		return nil, err
	}

	began := l.clock()
	result, err := exp.Run(ctx)
	if err != nil {
		return nil, err
	}
	elapsed := l.clock().Sub(began)

	kpi := ctrltest.KPI(result.KPI)
	kpi["time_rat"] = elapsed.Seconds() / req.Length

	forecasts, err := Forecast(zone, tariff, start, req.Length, 3600)
	if err != nil {
		return nil, err
	}

	return &ctrltest.Outcome{
		KPI:          kpi,
		Measurements: result.Measurements,
		Forecasts:    forecasts,
		CustomKPI:    ctrltest.KPI{},
	}, nil
}

func (l *Local) clock() time.Time {
	if l.now == nil {
		return time.Now()
	}
	return l.now()
}

// ResolveScenario turns the scenario into a start time and a tariff.
// A numeric time period is the start time in seconds; a named one is
// looked up on the zone. A numeric price is a flat price per kWh; a named
// one selects a tariff shape around the zone's default price.
func ResolveScenario(zone *models.Zone, req ctrltest.Request) (float64, models.Tariff, error) {
	start := req.StartTime
	tariff := models.ConstantTariff(zone.DefaultPrice)

	sc := req.Scenario
	if sc == nil {
		return start, tariff, nil
	}

	if !sc.TimePeriod.IsZero() {
		if f, ok := sc.TimePeriod.Float(); ok {
			start = f
		} else {
			s, ok := zone.TimePeriods[sc.TimePeriod.String()]
			if !ok {
				return 0, nil, fmt.Errorf("%w: %q for %s", ErrUnknownTimePeriod, sc.TimePeriod, zone.Name)
			}
			start = s
		}
		if start < 0 {
			return 0, nil, fmt.Errorf("%w: negative time period %s", ctrltest.ErrInvalidRequest, sc.TimePeriod)
		}
	}

	if !sc.ElectricityPrice.IsZero() {
		if f, ok := sc.ElectricityPrice.Float(); ok {
			tariff = models.ConstantTariff(f)
		} else {
			t, err := models.TariffByName(sc.ElectricityPrice.String(), zone.DefaultPrice)
			if err != nil {
				return 0, nil, err
			}
			tariff = t
		}
	}

	return start, tariff, nil
}

// ForecastPoints are the columns of a forecast table.
func ForecastPoints() []string {
	return []string{"TDryBul", "PriceElectricPower"}
}

// Forecast samples outdoor temperature (K) and price every interval
// seconds over the horizon, both ends included.
func Forecast(zone *models.Zone, tariff models.Tariff, start, horizon, interval float64) (*ctrltest.Table, error) {
	tbl := ctrltest.NewTable("time", ForecastPoints()...)
	if interval <= 0 {
		interval = 3600
	}
	n := int(math.Ceil(horizon / interval))
	for i := 0; i <= n; i++ {
		t := start + float64(i)*interval
		if err := tbl.Append(t, zone.Weather.OutdoorTemperature(t)+273.15, tariff(t)); err != nil {
			return nil, fmt.Errorf("forecast at %g: %w", t, err)
		}
	}
	return tbl, nil
}
