package models

import (
	"math"

	"github.com/san-kum/ctrlsweep/internal/sim"
)

const kelvin = 273.15

// Zone is a single thermal zone with one lumped envelope node:
//
//	Cz dTz/dt = (Tw-Tz)/Rzw + (To-Tz)/Rinf + Qheat + Qint + Qsol
//	Cw dTw/dt = (Tz-Tw)/Rzw + (To-Tw)/Rwo
//
// State is [Tz, Tw] in degC. Control is [heating fraction in 0..1].
type Zone struct {
	Name      string
	FloorArea float64 // m2

	ZoneCapacitance float64 // J/K
	WallCapacitance float64 // J/K
	ZoneWallR       float64 // K/W
	WallOutdoorR    float64 // K/W
	InfiltrationR   float64 // K/W

	HeaterCapacity float64 // W
	InternalGain   float64 // W while occupied
	SolarAperture  float64 // m2

	Weather   Weather
	Occupancy Schedule

	OccupiedBand   [2]float64 // degC
	UnoccupiedBand [2]float64 // degC

	// DefaultPrice is the electricity price per kWh when the scenario
	// does not set one.
	DefaultPrice float64
	// TimePeriods maps named test periods to their start time.
	TimePeriods map[string]float64
}

func (z *Zone) StateDim() int   { return 2 }
func (z *Zone) ControlDim() int { return 1 }

func (z *Zone) Derivative(x sim.State, u sim.Control, t float64) sim.State {
	tz, tw := x[0], x[1]
	to := z.Weather.OutdoorTemperature(t)

	gains := z.HeatingPower(u) + z.SolarAperture*z.Weather.SolarIrradiance(t)
	if z.Occupancy.Occupied(t) {
		gains += z.InternalGain
	}

	dTz := ((tw-tz)/z.ZoneWallR + (to-tz)/z.InfiltrationR + gains) / z.ZoneCapacitance
	dTw := ((tz-tw)/z.ZoneWallR + (to-tw)/z.WallOutdoorR) / z.WallCapacitance
	return sim.State{dTz, dTw}
}

// HeatingPower is the heat delivered for control u, in W.
func (z *Zone) HeatingPower(u sim.Control) float64 {
	if len(u) == 0 {
		return 0
	}
	return clamp(u[0], 0, 1) * z.HeaterCapacity
}

// ComfortBounds returns the acceptable zone temperature range at t.
func (z *Zone) ComfortBounds(t float64) (float64, float64) {
	if z.Occupancy.Occupied(t) {
		return z.OccupiedBand[0], z.OccupiedBand[1]
	}
	return z.UnoccupiedBand[0], z.UnoccupiedBand[1]
}

// HeatingSetpoint sits half a degree inside the lower comfort bound.
func (z *Zone) HeatingSetpoint(t float64) float64 {
	lo, _ := z.ComfortBounds(t)
	return lo + 0.5
}

// InitialState starts zone and envelope at the heating setpoint.
func (z *Zone) InitialState(t float64) sim.State {
	sp := z.HeatingSetpoint(t)
	return sim.State{sp, sp}
}

func (z *Zone) OutputNames() []string {
	return []string{"reaTZon_y", "reaTWal_y", "weaTDryBul_y", "reaPHea_y", "reaHeaFra_y"}
}

// Outputs reports temperatures in K and power in W.
func (z *Zone) Outputs(x sim.State, u sim.Control, t float64) []float64 {
	frac := 0.0
	if len(u) > 0 {
		frac = clamp(u[0], 0, 1)
	}
	return []float64{
		x[0] + kelvin,
		x[1] + kelvin,
		z.Weather.OutdoorTemperature(t) + kelvin,
		z.HeatingPower(u),
		frac,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
