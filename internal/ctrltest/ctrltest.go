// Package ctrltest defines the control-test entry point the sweep driver
// calls for every scenario.
//
// A control test starts a test case at a given time, lets it warm up, runs
// a controller over the test horizon in fixed steps and reports:
//
//   - [KPI]: the key performance indicators of the run
//   - [Table]: the measured signals, one row per recorded step
//
// Implementations live in internal/boptest (remote test-case server) and
// internal/experiment (offline reference engine).
package ctrltest

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/ctrlsweep/internal/scenario"
)

const (
	Day = 24 * 3600

	DefaultController = "baseline"
	DefaultLength     = Day
)

// Request is the argument list of a single control test.
type Request struct {
	Controller   string
	StartTime    float64
	WarmupPeriod float64
	Length       float64
	Step         float64
	// Scenario is nil for user-defined runs.
	Scenario *scenario.Params
}

func (r Request) Validate() error {
	if r.Controller == "" {
		return fmt.Errorf("%w: empty controller", ErrInvalidRequest)
	}
	if r.StartTime < 0 || r.WarmupPeriod < 0 {
		return fmt.Errorf("%w: start time and warm-up must not be negative", ErrInvalidRequest)
	}
	if r.Length <= 0 {
		return fmt.Errorf("%w: length must be positive, got %g", ErrInvalidRequest, r.Length)
	}
	if r.Step <= 0 {
		return fmt.Errorf("%w: step must be positive, got %g", ErrInvalidRequest, r.Step)
	}
	return nil
}

// Steps is the number of control steps needed to cover Length.
func (r Request) Steps() int {
	return int(math.Ceil(r.Length / r.Step))
}

// KPI maps indicator names (ener_tot, cost_tot, tdis_tot, ...) to values.
type KPI map[string]float64

// Outcome is everything a control test returns. The sweep only consumes
// KPI and Measurements.
type Outcome struct {
	KPI          KPI
	Measurements *Table
	Forecasts    *Table
	CustomKPI    KPI
}

type Tester interface {
	ControlTest(ctx context.Context, req Request) (*Outcome, error)
}

// TesterFunc adapts a function to the Tester interface.
type TesterFunc func(ctx context.Context, req Request) (*Outcome, error)

func (f TesterFunc) ControlTest(ctx context.Context, req Request) (*Outcome, error) {
	return f(ctx, req)
}
