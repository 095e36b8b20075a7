package sim

import (
	"context"
	"fmt"
	"math"
)

// Simulator steps a system under a controller. Initialize runs the warm-up
// period silently; each Advance then observes metrics and observers for
// every step it takes.
type Simulator struct {
	dyn        Dynamics
	integrator Integrator
	controller Controller
	metrics    []Metric
	observers  []Observer

	cfg         Config
	x           State
	t           float64
	steps       int
	initialized bool
}

func New(dyn Dynamics, integrator Integrator, controller Controller) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		controller: controller,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Time() float64 { return s.t }
func (s *Simulator) State() State  { return s.x.Clone() }

// Initialize places the system at x0 at StartTime-WarmupPeriod (clipped
// at zero) and integrates up to StartTime without recording.
func (s *Simulator) Initialize(ctx context.Context, x0 State, cfg Config) error {
	if err := s.validateConfig(cfg); err != nil {
		return err
	}
	if len(x0) != s.dyn.StateDim() {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(x0), s.dyn.StateDim())
	}

	s.cfg = cfg
	s.x = x0.Clone()
	s.t = math.Max(0, cfg.StartTime-cfg.WarmupPeriod)
	s.steps = 0
	for _, m := range s.metrics {
		m.Reset()
	}

	for s.t < cfg.StartTime {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		dt := math.Min(cfg.Dt, cfg.StartTime-s.t)
		u := s.controller.Compute(s.x, s.t)
		if err := s.step(u, dt); err != nil {
			return err
		}
	}
	s.t = cfg.StartTime
	s.initialized = true
	return nil
}

// Advance integrates duration seconds, observing every step.
func (s *Simulator) Advance(ctx context.Context, duration float64) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	end := s.t + duration
	for end-s.t > 1e-9 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		dt := math.Min(s.cfg.Dt, end-s.t)
		u := s.controller.Compute(s.x, s.t)

		for _, m := range s.metrics {
			m.Observe(s.x, u, s.t, dt)
		}
		for _, obs := range s.observers {
			obs.OnStep(s.x, u, s.t)
		}

		if err := s.step(u, dt); err != nil {
			return err
		}
		s.steps++
	}
	return nil
}

// Metrics returns the current value of every metric by name.
func (s *Simulator) Metrics() map[string]float64 {
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

func (s *Simulator) step(u Control, dt float64) error {
	newX := s.integrator.Step(s.dyn, s.x, u, s.t, dt)
	if s.cfg.ValidateState && !newX.IsValid() {
		return SimError{Time: s.t, Step: s.steps, Message: "invalid state (NaN/Inf)"}
	}
	s.x = newX
	s.t += dt
	return nil
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.StartTime < 0 {
		return fmt.Errorf("start time must not be negative, got %f", cfg.StartTime)
	}
	if cfg.WarmupPeriod < 0 {
		return fmt.Errorf("warm-up period must not be negative, got %f", cfg.WarmupPeriod)
	}
	return nil
}
