package metrics

import "github.com/san-kum/ctrlsweep/internal/sim"

const joulesPerKWh = 3.6e6

// PowerFunc maps a control to the electrical power it draws, in W.
type PowerFunc func(u sim.Control) float64

// Energy is the total heating energy per floor area, kWh/m2.
type Energy struct {
	name   string
	power  PowerFunc
	area   float64
	joules float64
}

func NewEnergy(power PowerFunc, area float64) *Energy {
	return &Energy{
		name:  "ener_tot",
		power: power,
		area:  area,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(x sim.State, u sim.Control, t, dt float64) {
	e.joules += e.power(u) * dt
}

func (e *Energy) Value() float64 {
	if e.area <= 0 {
		return 0
	}
	return e.joules / joulesPerKWh / e.area
}

func (e *Energy) Reset() {
	e.joules = 0
}
