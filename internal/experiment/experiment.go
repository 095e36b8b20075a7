package experiment

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/ctrlsweep/internal/ctrltest"
	"github.com/san-kum/ctrlsweep/internal/models"
	"github.com/san-kum/ctrlsweep/internal/sim"
)

type Config struct {
	StartTime    float64
	WarmupPeriod float64
	Length       float64
	Step         float64
	Dt           float64
}

type Result struct {
	KPI          map[string]float64
	Measurements *ctrltest.Table
	Advances     int
}

// Experiment runs one zone under one controller over a test period,
// advancing in control steps of cfg.Step seconds. Run drives the whole
// period; Start and Advance let a caller step it one request at a time.
type Experiment struct {
	cfg       Config
	zone      *models.Zone
	simulator *sim.Simulator
	recorder  *recorder
	started   bool
}

func New(cfg Config) *Experiment {
	return &Experiment{cfg: cfg}
}

func (e *Experiment) Setup(zone *models.Zone, integrator sim.Integrator, controller sim.Controller, metrics []sim.Metric) error {
	if e.cfg.Step <= 0 || e.cfg.Length <= 0 {
		return fmt.Errorf("%w: length %g step %g", ctrltest.ErrInvalidRequest, e.cfg.Length, e.cfg.Step)
	}
	e.zone = zone
	e.simulator = sim.New(zone, integrator, controller)
	for _, m := range metrics {
		e.simulator.AddMetric(m)
	}
	e.recorder = newRecorder(zone)
	e.simulator.AddObserver(e.recorder)
	e.started = false
	return nil
}

// Start places the zone at its initial state and runs the warm-up.
func (e *Experiment) Start(ctx context.Context) error {
	if e.simulator == nil {
		return fmt.Errorf("experiment not setup")
	}

	simCfg := sim.DefaultConfig()
	if e.cfg.Dt > 0 {
		simCfg.Dt = e.cfg.Dt
	}
	simCfg.StartTime = e.cfg.StartTime
	simCfg.WarmupPeriod = e.cfg.WarmupPeriod

	x0 := e.zone.InitialState(math.Max(0, e.cfg.StartTime-e.cfg.WarmupPeriod))
	if err := e.simulator.Initialize(ctx, x0, simCfg); err != nil {
		return err
	}
	e.started = true
	return nil
}

// Advance moves the experiment forward by duration seconds.
func (e *Experiment) Advance(ctx context.Context, duration float64) error {
	if !e.started {
		return sim.ErrNotInitialized
	}
	if err := e.simulator.Advance(ctx, duration); err != nil {
		return err
	}
	return e.recorder.err
}

func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if err := e.Start(ctx); err != nil {
		return nil, err
	}

	advances := 0
	for remaining := e.cfg.Length; remaining > 1e-9; remaining -= e.cfg.Step {
		if err := e.Advance(ctx, math.Min(e.cfg.Step, remaining)); err != nil {
			return nil, fmt.Errorf("advance %d: %w", advances+1, err)
		}
		advances++
	}

	return &Result{
		KPI:          e.KPI(),
		Measurements: e.recorder.table,
		Advances:     advances,
	}, nil
}

func (e *Experiment) Time() float64 { return e.simulator.Time() }

func (e *Experiment) KPI() map[string]float64 { return e.simulator.Metrics() }

// Measurements is the table recorded so far, one row per internal step.
func (e *Experiment) Measurements() *ctrltest.Table { return e.recorder.table }

// Outputs are the zone outputs at the current time, under the last
// applied control.
func (e *Experiment) Outputs() map[string]float64 {
	t := e.simulator.Time()
	values := e.zone.Outputs(e.simulator.State(), e.recorder.lastControl, t)
	out := make(map[string]float64, len(values)+1)
	for i, name := range e.zone.OutputNames() {
		out[name] = values[i]
	}
	out["time"] = t
	return out
}

// recorder writes the zone outputs of every observed step into a table
// indexed by simulation time.
type recorder struct {
	zone        *models.Zone
	table       *ctrltest.Table
	lastControl sim.Control
	err         error
}

func newRecorder(zone *models.Zone) *recorder {
	return &recorder{
		zone:        zone,
		table:       ctrltest.NewTable("time", zone.OutputNames()...),
		lastControl: make(sim.Control, zone.ControlDim()),
	}
}

func (r *recorder) OnStep(x sim.State, u sim.Control, t float64) {
	r.lastControl = u
	if r.err != nil {
		return
	}
	r.err = r.table.Append(t, r.zone.Outputs(x, u, t)...)
}
