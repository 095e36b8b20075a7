package models

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownTariff indicates a price scenario name with no tariff shape.
var ErrUnknownTariff = errors.New("models: unknown electricity price scenario")

// Tariff is the electricity price per kWh at time t.
type Tariff func(t float64) float64

func ConstantTariff(price float64) Tariff {
	return func(float64) float64 { return price }
}

// DynamicTariff is a two-level day/night tariff around base.
func DynamicTariff(base float64) Tariff {
	return func(t float64) float64 {
		hour := hourOfDay(t)
		if hour >= 7 && hour < 23 {
			return base * 1.3
		}
		return base * 0.6
	}
}

// HighlyDynamicTariff changes every hour, following an evening-peaking
// sine around base.
func HighlyDynamicTariff(base float64) Tariff {
	return func(t float64) float64 {
		hour := math.Floor(hourOfDay(t))
		return base * (1 + 0.5*math.Sin(2*math.Pi*(hour-12)/24))
	}
}

// TariffByName maps the named price scenarios onto a tariff shape.
func TariffByName(name string, base float64) (Tariff, error) {
	switch name {
	case "constant":
		return ConstantTariff(base), nil
	case "dynamic":
		return DynamicTariff(base), nil
	case "highly_dynamic":
		return HighlyDynamicTariff(base), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTariff, name)
}
