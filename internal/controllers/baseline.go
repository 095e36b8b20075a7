package controllers

import "github.com/san-kum/ctrlsweep/internal/sim"

// Baseline is an on/off thermostat with hysteresis around a scheduled
// heating setpoint. It switches the heater fully on below
// setpoint-band/2 and off above setpoint+band/2.
type Baseline struct {
	Setpoint func(t float64) float64
	Band     float64
	on       bool
}

func NewBaseline(setpoint func(t float64) float64, band float64) *Baseline {
	return &Baseline{Setpoint: setpoint, Band: band}
}

func (b *Baseline) Compute(x sim.State, t float64) sim.Control {
	sp := b.Setpoint(t)
	switch {
	case !b.on && x[0] < sp-b.Band/2:
		b.on = true
	case b.on && x[0] > sp+b.Band/2:
		b.on = false
	}
	if b.on {
		return sim.Control{1}
	}
	return sim.Control{0}
}
