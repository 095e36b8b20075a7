package sim

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Control []float64

func (u Control) Clone() Control {
	c := make(Control, len(u))
	copy(c, u)
	return c
}

// Dynamics is an ODE system dx/dt = f(x, u, t) with t in seconds.
type Dynamics interface {
	Derivative(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

// Measurable systems expose named outputs that are recorded each step.
type Measurable interface {
	OutputNames() []string
	Outputs(x State, u Control, t float64) []float64
}

type Integrator interface {
	Step(dyn Dynamics, x State, u Control, t float64, dt float64) State
}

type Controller interface {
	Compute(x State, t float64) Control
}

// Metric accumulates a KPI over the steps of the test period. Observe is
// called once per step with the state and control held during [t, t+dt).
type Metric interface {
	Name() string
	Observe(x State, u Control, t, dt float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, t float64)
}

type Config struct {
	Dt            float64
	StartTime     float64
	WarmupPeriod  float64
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            300,
		ValidateState: true,
	}
}

type SimError struct {
	Time    float64
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.0fs): %s", e.Step, e.Time, e.Message)
}

func (e SimError) Unwrap() error { return ErrInvalidState }
