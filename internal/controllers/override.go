package controllers

import "github.com/san-kum/ctrlsweep/internal/sim"

// Override passes through an embedded controller unless an external
// control has been set, in which case that control is applied instead.
type Override struct {
	Base  sim.Controller
	value sim.Control
}

func NewOverride(base sim.Controller) *Override {
	return &Override{Base: base}
}

func (o *Override) Set(u sim.Control) { o.value = u.Clone() }

func (o *Override) Clear() { o.value = nil }

func (o *Override) Active() bool { return o.value != nil }

func (o *Override) Compute(x sim.State, t float64) sim.Control {
	// the base controller still sees every step so its internal state
	// stays current when the override is released.
	u := o.Base.Compute(x, t)
	if o.value != nil {
		return o.value.Clone()
	}
	return u
}
