package models

import "math"

const (
	secondsPerDay  = 86400.0
	secondsPerHour = 3600.0
	daysPerYear    = 365.0
)

// Weather is a synthetic climate: a seasonal cosine with its minimum in
// mid January, a diurnal cosine peaking at 15:00, and a half-sine solar
// day between 06:00 and 18:00. t is seconds since 1 January 00:00.
type Weather struct {
	AnnualMean      float64 // degC
	AnnualAmplitude float64 // degC
	DailyAmplitude  float64 // degC
	SolarPeak       float64 // W/m2, at summer solstice noon
}

func (w Weather) OutdoorTemperature(t float64) float64 {
	day := t / secondsPerDay
	hour := hourOfDay(t)
	seasonal := w.AnnualMean - w.AnnualAmplitude*math.Cos(2*math.Pi*(day-15)/daysPerYear)
	diurnal := w.DailyAmplitude * math.Cos(2*math.Pi*(hour-15)/24)
	return seasonal + diurnal
}

func (w Weather) SolarIrradiance(t float64) float64 {
	hour := hourOfDay(t)
	if hour < 6 || hour >= 18 {
		return 0
	}
	day := t / secondsPerDay
	season := 0.7 + 0.3*math.Cos(2*math.Pi*(day-172)/daysPerYear)
	return w.SolarPeak * season * math.Sin(math.Pi*(hour-6)/12)
}

// Schedule marks the hours a zone is occupied. Day 0 is a Monday.
type Schedule struct {
	From         float64 // hour of day
	To           float64 // hour of day
	WeekdaysOnly bool
}

func (s Schedule) Occupied(t float64) bool {
	if s.WeekdaysOnly {
		weekday := int(t/secondsPerDay) % 7
		if weekday >= 5 {
			return false
		}
	}
	hour := hourOfDay(t)
	return hour >= s.From && hour < s.To
}

func hourOfDay(t float64) float64 {
	return math.Mod(t, secondsPerDay) / secondsPerHour
}
