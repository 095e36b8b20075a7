package metrics

import "github.com/san-kum/ctrlsweep/internal/sim"

// Discomfort integrates how far x[0] leaves the comfort band, in Kh.
type Discomfort struct {
	name          string
	bounds        func(t float64) (float64, float64)
	kelvinSeconds float64
}

func NewDiscomfort(bounds func(t float64) (float64, float64)) *Discomfort {
	return &Discomfort{
		name:   "tdis_tot",
		bounds: bounds,
	}
}

func (d *Discomfort) Name() string { return d.name }

func (d *Discomfort) Observe(x sim.State, u sim.Control, t, dt float64) {
	if len(x) == 0 {
		return
	}
	lo, hi := d.bounds(t)
	switch {
	case x[0] < lo:
		d.kelvinSeconds += (lo - x[0]) * dt
	case x[0] > hi:
		d.kelvinSeconds += (x[0] - hi) * dt
	}
}

func (d *Discomfort) Value() float64 {
	return d.kelvinSeconds / 3600
}

func (d *Discomfort) Reset() {
	d.kelvinSeconds = 0
}
