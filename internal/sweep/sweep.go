// Package sweep runs a test case over its configured scenarios and keeps
// the results.
//
// A test case is either swept over every (electricity price, time period)
// pair, price-major, with one day-long control test per pair, or run once
// over its user-defined week. KPI records accumulate in the result
// directory across invocations; measurement tables are written per
// scenario.
package sweep

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/san-kum/ctrlsweep/internal/config"
	"github.com/san-kum/ctrlsweep/internal/ctrltest"
	"github.com/san-kum/ctrlsweep/internal/report"
	"github.com/san-kum/ctrlsweep/internal/scenario"
	"github.com/san-kum/ctrlsweep/internal/storage"
)

// Timing is the start, warm-up and length of a control test, in seconds.
type Timing struct {
	Start  float64
	Warmup float64
	Length float64
}

func DefaultTiming() Timing {
	return Timing{Start: 0, Warmup: 0, Length: ctrltest.DefaultLength}
}

// UserDefinedTiming is the week starting on day 15 after one day of
// warm-up.
func UserDefinedTiming() Timing {
	return Timing{Start: 15 * ctrltest.Day, Warmup: ctrltest.Day, Length: 7 * ctrltest.Day}
}

// ScenarioError attaches the scenario name to a failure.
type ScenarioError struct {
	Scenario string
	Err      error
}

func (e *ScenarioError) Error() string {
	return fmt.Sprintf("scenario %s: %v", e.Scenario, e.Err)
}

func (e *ScenarioError) Unwrap() error {
	return e.Err
}

type Driver struct {
	Tester ctrltest.Tester
	Store  *storage.Store
	Out    io.Writer
	Logger *log.Logger
	// Controller overrides the test case's controller when set.
	Controller string
}

func New(tester ctrltest.Tester, store *storage.Store, out io.Writer) *Driver {
	if out == nil {
		out = io.Discard
	}
	return &Driver{
		Tester: tester,
		Store:  store,
		Out:    out,
		Logger: log.New(io.Discard, "", 0),
	}
}

// Dispatch runs the named test case the way its configuration asks and
// returns the names of the scenarios it ran.
func (d *Driver) Dispatch(ctx context.Context, global config.Global, name string) ([]string, error) {
	tc, err := global.Lookup(name)
	if err != nil {
		return nil, err
	}

	run := *d
	if run.Controller == "" {
		run.Controller = tc.Controller
	}

	if tc.RunUserDefinedTest {
		run.Logger.Printf("sweep: %s: user-defined run", name)
		return run.RunUserDefined(ctx, tc)
	}
	run.Logger.Printf("sweep: %s: %d prices x %d periods", name, len(tc.ElectricityPrice), len(tc.TimePeriod))
	return run.RunAll(ctx, tc.ElectricityPrice, tc.TimePeriod, tc)
}

// RunAll runs one control test per (price, period) pair, periods varying
// fastest, and returns the scenario names in the order they ran. The
// first failure stops the sweep. Save flags absent from tc count as off.
func (d *Driver) RunAll(ctx context.Context, prices, periods []scenario.Value, tc *config.TestCase) ([]string, error) {
	params := scenario.Product(prices, periods)
	names := scenario.Names(params)

	for i := range params {
		p := &params[i]
		name := names[i]

		kpi, table, err := d.RunSingle(ctx, p, DefaultTiming())
		if err != nil {
			return nil, &ScenarioError{Scenario: name, Err: err}
		}
		fmt.Fprintln(d.Out, report.Finished(p))

		if err := d.save(tc.SaveKPI(false), tc.SaveMeasurementTables(false), *p, name, kpi, table); err != nil {
			return nil, &ScenarioError{Scenario: name, Err: err}
		}
	}
	return names, nil
}

// RunUserDefined runs the test case once without a scenario. KPIs are
// saved unless switched off; measurements only when switched on.
func (d *Driver) RunUserDefined(ctx context.Context, tc *config.TestCase) ([]string, error) {
	kpi, table, err := d.RunSingle(ctx, nil, UserDefinedTiming())
	if err != nil {
		return nil, &ScenarioError{Scenario: scenario.UserDefined, Err: err}
	}

	names := []string{scenario.UserDefined}
	if err := d.save(tc.SaveKPI(true), tc.SaveMeasurementTables(false), scenario.UserDefined, names[0], kpi, table); err != nil {
		return nil, &ScenarioError{Scenario: names[0], Err: err}
	}
	return names, nil
}

// RunSingle runs one control test covering the whole horizon in a single
// step. params is nil for the user-defined run.
func (d *Driver) RunSingle(ctx context.Context, params *scenario.Params, timing Timing) (ctrltest.KPI, *ctrltest.Table, error) {
	out, err := d.Tester.ControlTest(ctx, ctrltest.Request{
		Controller:   d.controllerName(),
		StartTime:    timing.Start,
		WarmupPeriod: timing.Warmup,
		Length:       timing.Length,
		Step:         timing.Length,
		Scenario:     params,
	})
	if err != nil {
		return nil, nil, err
	}
	return out.KPI, out.Measurements, nil
}

func (d *Driver) controllerName() string {
	if d.Controller != "" {
		return d.Controller
	}
	return ctrltest.DefaultController
}

func (d *Driver) save(saveKPI, saveMeasurements bool, params any, name string, kpi ctrltest.KPI, table *ctrltest.Table) error {
	if saveKPI {
		if err := d.Store.AppendKPI(params, kpi); err != nil {
			return err
		}
		d.Logger.Printf("sweep: %s: kpi appended to %s", name, d.Store.KPIPath())
	}
	if saveMeasurements {
		if err := d.Store.WriteMeasurements(table, name); err != nil {
			return err
		}
		d.Logger.Printf("sweep: %s: measurements written to %s", name, d.Store.MeasurementsPath(name))
	}
	return nil
}
