package metrics

import "github.com/san-kum/ctrlsweep/internal/sim"

// Cost is the operational cost per floor area: energy drawn in each step
// times the price at the start of the step.
type Cost struct {
	name  string
	power PowerFunc
	price func(t float64) float64
	area  float64
	sum   float64
}

func NewCost(power PowerFunc, price func(t float64) float64, area float64) *Cost {
	return &Cost{
		name:  "cost_tot",
		power: power,
		price: price,
		area:  area,
	}
}

func (c *Cost) Name() string { return c.name }

func (c *Cost) Observe(x sim.State, u sim.Control, t, dt float64) {
	kwh := c.power(u) * dt / joulesPerKWh
	c.sum += kwh * c.price(t)
}

func (c *Cost) Value() float64 {
	if c.area <= 0 {
		return 0
	}
	return c.sum / c.area
}

func (c *Cost) Reset() {
	c.sum = 0
}
