package experiment

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/san-kum/ctrlsweep/internal/ctrltest"
	"github.com/san-kum/ctrlsweep/internal/models"
	"github.com/san-kum/ctrlsweep/internal/scenario"
)

func request(controller string, sc *scenario.Params) ctrltest.Request {
	return ctrltest.Request{
		Controller: controller,
		Length:     ctrltest.Day,
		Step:       ctrltest.Day,
		Scenario:   sc,
	}
}

func TestLocalBaselineDay(t *testing.T) {
	l := NewLocal("bestest_air")
	sc := &scenario.Params{TimePeriod: scenario.Int(16 * ctrltest.Day), ElectricityPrice: scenario.Number(0.25)}

	out, err := l.ControlTest(context.Background(), request("baseline", sc))
	if err != nil {
		t.Fatalf("control test failed: %v", err)
	}

	for _, name := range []string{"ener_tot", "cost_tot", "tdis_tot", "time_rat"} {
		if _, ok := out.KPI[name]; !ok {
			t.Errorf("missing KPI %s", name)
		}
	}
	if out.KPI["ener_tot"] <= 0 {
		t.Errorf("expected heating energy in January, got %f", out.KPI["ener_tot"])
	}
	if diff := out.KPI["cost_tot"] - 0.25*out.KPI["ener_tot"]; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("flat price cost should be price*energy, got cost %f energy %f", out.KPI["cost_tot"], out.KPI["ener_tot"])
	}

	if out.Measurements.Len() != ctrltest.Day/defaultDt {
		t.Errorf("expected %d rows, got %d", ctrltest.Day/defaultDt, out.Measurements.Len())
	}
	if out.Measurements.Index[0] != 16*ctrltest.Day {
		t.Errorf("expected first row at the scenario start, got %f", out.Measurements.Index[0])
	}
	if out.Forecasts == nil || out.Forecasts.Len() != 25 {
		t.Error("expected hourly forecast over the horizon")
	}
}

func TestLocalNoHeatIsUncomfortable(t *testing.T) {
	l := NewLocal("bestest_air")
	sc := &scenario.Params{TimePeriod: scenario.String("peak_heat_day"), ElectricityPrice: scenario.String("dynamic")}

	base, err := l.ControlTest(context.Background(), request("baseline", sc))
	if err != nil {
		t.Fatal(err)
	}
	none, err := l.ControlTest(context.Background(), request("none", sc))
	if err != nil {
		t.Fatal(err)
	}

	if none.KPI["ener_tot"] != 0 {
		t.Errorf("free-floating zone should use no energy, got %f", none.KPI["ener_tot"])
	}
	if none.KPI["tdis_tot"] <= base.KPI["tdis_tot"] {
		t.Errorf("free floating should be less comfortable: none %f baseline %f", none.KPI["tdis_tot"], base.KPI["tdis_tot"])
	}
}

func TestLocalUserDefinedTiming(t *testing.T) {
	l := NewLocal("bestest_hydronic")
	req := ctrltest.Request{
		Controller:   "pid",
		StartTime:    15 * ctrltest.Day,
		WarmupPeriod: ctrltest.Day,
		Length:       2 * ctrltest.Day,
		Step:         3600,
	}

	out, err := l.ControlTest(context.Background(), req)
	if err != nil {
		t.Fatalf("control test failed: %v", err)
	}
	if out.Measurements.Index[0] != 15*ctrltest.Day {
		t.Errorf("expected first row at start time, got %f", out.Measurements.Index[0])
	}
	last := out.Measurements.Index[out.Measurements.Len()-1]
	if last != 17*ctrltest.Day-defaultDt {
		t.Errorf("expected last row one dt before the end, got %f", last)
	}
}

func TestLocalEulerAgreesWithRK4(t *testing.T) {
	sc := &scenario.Params{TimePeriod: scenario.String("peak_heat_day")}

	rk4, err := NewLocal("bestest_air").ControlTest(context.Background(), request("baseline", sc))
	if err != nil {
		t.Fatal(err)
	}

	l := NewLocal("bestest_air")
	l.Integrator = "euler"
	euler, err := l.ControlTest(context.Background(), request("baseline", sc))
	if err != nil {
		t.Fatalf("euler run failed: %v", err)
	}

	if euler.Measurements.Len() != rk4.Measurements.Len() {
		t.Errorf("expected the same recording grid, got %d and %d rows", euler.Measurements.Len(), rk4.Measurements.Len())
	}
	e, r := euler.KPI["ener_tot"], rk4.KPI["ener_tot"]
	if r <= 0 || math.Abs(e-r)/r > 0.1 {
		t.Errorf("euler energy %f too far from rk4 %f", e, r)
	}

	l.Integrator = "verlet"
	if _, err := l.ControlTest(context.Background(), request("baseline", sc)); !errors.Is(err, ErrUnknownIntegrator) {
		t.Errorf("expected ErrUnknownIntegrator, got %v", err)
	}
}

func TestLocalTimeRatio(t *testing.T) {
	l := NewLocal("bestest_air")
	ticks := []time.Time{time.Unix(0, 0), time.Unix(864, 0)}
	l.now = func() time.Time {
		next := ticks[0]
		ticks = ticks[1:]
		return next
	}

	out, err := l.ControlTest(context.Background(), request("baseline", nil))
	if err != nil {
		t.Fatal(err)
	}
	if out.KPI["time_rat"] != 0.01 {
		t.Errorf("expected time_rat 0.01, got %f", out.KPI["time_rat"])
	}
}

func TestForecast(t *testing.T) {
	zone := models.NewBestestAir()
	tariff := models.ConstantTariff(0.3)

	tbl, err := Forecast(zone, tariff, 16*ctrltest.Day, 7200, 1800)
	if err != nil {
		t.Fatalf("forecast failed: %v", err)
	}
	if len(tbl.Columns) != len(ForecastPoints()) || tbl.Len() != 5 {
		t.Fatalf("unexpected shape: columns %v rows %d", tbl.Columns, tbl.Len())
	}
	if tbl.Index[4] != 16*ctrltest.Day+7200 {
		t.Errorf("expected the horizon end included, got %f", tbl.Index[4])
	}
	prices, err := tbl.Column("PriceElectricPower")
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range prices {
		if p != 0.3 {
			t.Errorf("expected flat price 0.3, got %f", p)
		}
	}
	temps, err := tbl.Column("TDryBul")
	if err != nil {
		t.Fatal(err)
	}
	if temps[0] < 200 {
		t.Errorf("expected temperatures in K, got %f", temps[0])
	}

	defaulted, err := Forecast(zone, tariff, 0, 7200, 0)
	if err != nil {
		t.Fatal(err)
	}
	if defaulted.Len() != 3 {
		t.Errorf("expected hourly samples for a non-positive interval, got %d", defaulted.Len())
	}
}

func TestLocalErrors(t *testing.T) {
	tests := []struct {
		name     string
		testCase string
		req      ctrltest.Request
		want     error
	}{
		{"unknown test case", "bestest_nothing", request("baseline", nil), ErrUnknownTestCase},
		{"unknown controller", "bestest_air", request("mpc", nil), ErrUnknownController},
		{"invalid request", "bestest_air", ctrltest.Request{Controller: "baseline"}, ctrltest.ErrInvalidRequest},
		{
			"unknown period", "bestest_air",
			request("baseline", &scenario.Params{TimePeriod: scenario.String("mid_summer")}),
			ErrUnknownTimePeriod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLocal(tt.testCase).ControlTest(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRegistryLists(t *testing.T) {
	r := NewRegistry()
	if got := r.ListTestCases(); len(got) != 3 || got[0] != "bestest_air" {
		t.Errorf("unexpected test cases: %v", got)
	}
	if got := r.ListControllers(); len(got) != 3 || got[0] != "baseline" {
		t.Errorf("unexpected controllers: %v", got)
	}
	if _, err := r.GetIntegrator("verlet"); !errors.Is(err, ErrUnknownIntegrator) {
		t.Errorf("expected ErrUnknownIntegrator, got %v", err)
	}
}
