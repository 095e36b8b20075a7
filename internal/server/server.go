// Package server exposes the local engine over the BOPTEST REST API, so
// that the boptest client and other BOPTEST tooling can drive it.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/san-kum/ctrlsweep/internal/controllers"
	"github.com/san-kum/ctrlsweep/internal/ctrltest"
	"github.com/san-kum/ctrlsweep/internal/experiment"
	"github.com/san-kum/ctrlsweep/internal/models"
	"github.com/san-kum/ctrlsweep/internal/scenario"
	"github.com/san-kum/ctrlsweep/internal/sim"
)

const (
	Version = "0.6.0"

	defaultStep     = 3600
	scenarioWarmup  = 7 * ctrltest.Day
	heatingInput    = "oveHeaFra_u"
	heatingActivate = "oveHeaFra_activate"
)

var ErrUnknownPoint = errors.New("server: unknown point")

// Point describes a measurement, input or forecast signal.
type Point struct {
	Description string   `json:"Description"`
	Unit        string   `json:"Unit"`
	Minimum     *float64 `json:"Minimum"`
	Maximum     *float64 `json:"Maximum"`
}

func bounded(desc, unit string, lo, hi float64) Point {
	return Point{Description: desc, Unit: unit, Minimum: &lo, Maximum: &hi}
}

var measurementPoints = map[string]Point{
	"reaTZon_y":    {Description: "Zone air temperature", Unit: "K"},
	"reaTWal_y":    {Description: "Envelope temperature", Unit: "K"},
	"weaTDryBul_y": {Description: "Outside dry bulb temperature", Unit: "K"},
	"reaPHea_y":    {Description: "Heating thermal power", Unit: "W"},
	"reaHeaFra_y":  {Description: "Heating fraction of capacity", Unit: "1"},
}

var inputPoints = map[string]Point{
	heatingInput:    bounded("Heating fraction of capacity", "1", 0, 1),
	heatingActivate: {Description: "Activation for " + heatingInput, Unit: "1"},
}

var forecastPoints = map[string]Point{
	"TDryBul":            {Description: "Outside dry bulb temperature", Unit: "K"},
	"PriceElectricPower": {Description: "Electricity price", Unit: "price/kWh"},
}

// Server holds one running test case. Every request is served under a
// single lock; BOPTEST test cases are single-client.
type Server struct {
	mu     sync.Mutex
	local  *experiment.Local
	logger *log.Logger

	zone     *models.Zone
	tariff   models.Tariff
	price    scenario.Value
	start    float64
	warmup   float64
	step     float64
	exp      *experiment.Experiment
	override *controllers.Override
	wall     time.Duration
	now      func() time.Time
}

// New starts the named local test case at time zero without warm-up.
func New(ctx context.Context, testCase string, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	local := experiment.NewLocal(testCase)
	zone, err := local.Registry.GetTestCase(testCase)
	if err != nil {
		return nil, err
	}

	s := &Server{
		local:  local,
		logger: logger,
		zone:   zone,
		tariff: models.ConstantTariff(zone.DefaultPrice),
		step:   defaultStep,
		now:    time.Now,
	}
	if err := s.reset(ctx, 0, 0); err != nil {
		return nil, err
	}
	return s, nil
}

// reset rebuilds the experiment at start after warmup seconds. KPIs and
// recorded measurements start over.
func (s *Server) reset(ctx context.Context, start, warmup float64) error {
	integ, err := s.local.Registry.GetIntegrator(s.local.Integrator)
	if err != nil {
		return err
	}
	base, err := s.local.Registry.GetController(ctrltest.DefaultController, s.zone)
	if err != nil {
		return err
	}
	override := controllers.NewOverride(base)

	exp := experiment.New(experiment.Config{
		StartTime:    start,
		WarmupPeriod: warmup,
		Length:       s.step,
		Step:         s.step,
		Dt:           s.local.Dt,
	})
	if err := exp.Setup(s.zone, integ, override, s.local.Registry.DefaultMetrics(s.zone, s.tariff)); err != nil {
		return err
	}
	if err := exp.Start(ctx); err != nil {
		return err
	}

	s.exp = exp
	s.override = override
	s.start = start
	s.warmup = warmup
	s.wall = 0
	s.logger.Printf("server: %s initialized at %g s after %g s warm-up", s.zone.Name, start, warmup)
	return nil
}

func (s *Server) Name() string { return s.zone.Name }

// Initialize restarts the test case at start after warmup seconds and
// returns the measurements at start.
func (s *Server) Initialize(ctx context.Context, start, warmup float64) (map[string]float64, error) {
	if start < 0 || warmup < 0 {
		return nil, fmt.Errorf("%w: start_time and warmup_period must not be negative", ctrltest.ErrInvalidRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reset(ctx, start, warmup); err != nil {
		return nil, err
	}
	return s.exp.Outputs(), nil
}

// ScenarioResult is the reply to a scenario change. TimePeriod holds the
// measurements at the new start time when the time period was set.
type ScenarioResult struct {
	TimePeriod       map[string]float64 `json:"time_period"`
	ElectricityPrice *scenario.Value    `json:"electricity_price"`
}

// SetScenario applies a price scenario and, when a time period is given,
// restarts the test case at that period after the scenario warm-up.
func (s *Server) SetScenario(ctx context.Context, p scenario.Params) (*ScenarioResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start, tariff, err := experiment.ResolveScenario(s.zone, ctrltest.Request{StartTime: s.start, Scenario: &p})
	if err != nil {
		return nil, err
	}

	res := &ScenarioResult{}
	if !p.ElectricityPrice.IsZero() {
		s.tariff = tariff
		s.price = p.ElectricityPrice
		res.ElectricityPrice = &s.price
	}

	if p.TimePeriod.IsZero() {
		// the cost meter binds its tariff at setup
		if err := s.reset(ctx, s.start, s.warmup); err != nil {
			return nil, err
		}
		return res, nil
	}

	if err := s.reset(ctx, start, math.Min(scenarioWarmup, start)); err != nil {
		return nil, err
	}
	res.TimePeriod = s.exp.Outputs()
	return res, nil
}

func (s *Server) Step() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

func (s *Server) SetStep(step float64) error {
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return fmt.Errorf("%w: step must be positive, got %g", ctrltest.ErrInvalidRequest, step)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = step
	return nil
}

// Advance runs one control step. A heating fraction in u overrides the
// embedded baseline controller for this step when its activation is set.
func (s *Server) Advance(ctx context.Context, u map[string]float64) (map[string]float64, error) {
	for name := range u {
		if _, ok := inputPoints[name]; !ok {
			return nil, fmt.Errorf("%w: input %s", ErrUnknownPoint, name)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	frac, hasFrac := u[heatingInput]
	if hasFrac && u[heatingActivate] != 0 {
		s.override.Set(sim.Control{frac})
	} else {
		s.override.Clear()
	}

	if s.override.Active() {
		s.logger.Printf("server: advancing %g s with %s=%g", s.step, heatingInput, frac)
	}

	began := s.now()
	if err := s.exp.Advance(ctx, s.step); err != nil {
		return nil, err
	}
	s.wall += s.now().Sub(began)

	return s.exp.Outputs(), nil
}

// KPI reports the core indicators since the last initialization. Values
// that cannot be computed yet are nil.
func (s *Server) KPI() map[string]*float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*float64)
	for name, v := range s.exp.KPI() {
		out[name] = &v
	}
	out["time_rat"] = nil
	if elapsed := s.exp.Time() - s.start; elapsed > 0 {
		rat := s.wall.Seconds() / elapsed
		out["time_rat"] = &rat
	}
	return out
}

// Results returns the trajectories of points recorded between start and
// final, keyed by point name plus "time". Asking for "time" itself adds
// nothing.
func (s *Server) Results(points []string, start, final float64) (map[string][]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table := s.exp.Measurements()
	names := make([]string, 0, len(points))
	columns := make([][]float64, 0, len(points))
	for _, p := range points {
		if p == table.IndexName {
			continue
		}
		col, err := table.Column(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPoint, p)
		}
		names = append(names, p)
		columns = append(columns, col)
	}

	out := map[string][]float64{table.IndexName: {}}
	for _, p := range names {
		out[p] = []float64{}
	}
	for i, t := range table.Index {
		if t < start || t > final {
			continue
		}
		out[table.IndexName] = append(out[table.IndexName], t)
		for j, p := range names {
			out[p] = append(out[p], columns[j][i])
		}
	}
	return out, nil
}

// Forecast samples the forecast points from the current time over
// horizon seconds.
func (s *Server) Forecast(points []string, horizon, interval float64) (map[string][]float64, error) {
	if horizon < 0 || interval <= 0 {
		return nil, fmt.Errorf("%w: horizon %g interval %g", ctrltest.ErrInvalidRequest, horizon, interval)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := experiment.Forecast(s.zone, s.tariff, s.exp.Time(), horizon, interval)
	if err != nil {
		return nil, err
	}
	out := map[string][]float64{table.IndexName: table.Index}
	for _, p := range points {
		if p == table.IndexName {
			continue
		}
		col, err := table.Column(p)
		if err != nil {
			return nil, fmt.Errorf("%w: forecast %s", ErrUnknownPoint, p)
		}
		out[p] = col
	}
	return out, nil
}

func (s *Server) Measurements() map[string]Point { return measurementPoints }

func (s *Server) Inputs() map[string]Point { return inputPoints }

func (s *Server) ForecastPoints() map[string]Point { return forecastPoints }

func errMissing(fields string) error {
	return fmt.Errorf("%w: %s required", ctrltest.ErrInvalidRequest, fields)
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ctrltest.ErrInvalidRequest),
		errors.Is(err, ErrUnknownPoint),
		errors.Is(err, experiment.ErrUnknownTimePeriod),
		errors.Is(err, models.ErrUnknownTariff):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
