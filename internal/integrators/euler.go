package integrators

import "github.com/san-kum/ctrlsweep/internal/sim"

// Euler is the explicit first-order stepper. Each step is split into
// Substeps equal sub-steps under a constant control; values below one
// count as one.
type Euler struct {
	Substeps int
}

func NewEuler() *Euler {
	return &Euler{Substeps: 1}
}

func (e *Euler) Step(dyn sim.Dynamics, x sim.State, u sim.Control, t, dt float64) sim.State {
	n := max(e.Substeps, 1)
	h := dt / float64(n)

	next := x.Clone()
	for k := 0; k < n; k++ {
		dx := dyn.Derivative(next, u, t+float64(k)*h)
		for i := range next {
			next[i] += h * dx[i]
		}
	}
	return next
}
