package controllers

import (
	"math"

	"github.com/san-kum/ctrlsweep/internal/sim"
)

// PID tracks a scheduled setpoint on x[0] with an output clamped to
// [0, 1]. The integral is frozen while the output saturates.
type PID struct {
	Kp       float64
	Ki       float64
	Kd       float64
	Setpoint func(t float64) float64
	integral float64
	prevErr  float64
	prevT    float64
	first    bool
}

func NewPID(kp, ki, kd float64, setpoint func(t float64) float64) *PID {
	return &PID{
		Kp:       kp,
		Ki:       ki,
		Kd:       kd,
		Setpoint: setpoint,
		first:    true,
	}
}

func (p *PID) Compute(x sim.State, t float64) sim.Control {
	if len(x) == 0 {
		return sim.Control{0}
	}

	err := p.Setpoint(t) - x[0]

	if p.first {
		p.prevErr = err
		p.prevT = t
		p.first = false
		return sim.Control{saturate(p.Kp*err + p.Ki*p.integral)}
	}

	dt := t - p.prevT
	if dt <= 0 {
		return sim.Control{saturate(p.Kp*err + p.Ki*p.integral)}
	}

	derivative := (err - p.prevErr) / dt
	candidate := p.integral + err*dt
	u := p.Kp*err + p.Ki*candidate + p.Kd*derivative
	if u == saturate(u) {
		p.integral = candidate
	}

	p.prevErr = err
	p.prevT = t
	return sim.Control{saturate(p.Kp*err + p.Ki*p.integral + p.Kd*derivative)}
}

func saturate(u float64) float64 {
	return math.Max(0, math.Min(1, u))
}
