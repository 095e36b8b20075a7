package models

var residentialWeather = Weather{
	AnnualMean:      9.5,
	AnnualAmplitude: 8.0,
	DailyAmplitude:  4.0,
	SolarPeak:       800,
}

// NewBestestAir is a 48 m2 single-zone dwelling heated by an air unit.
func NewBestestAir() *Zone {
	return &Zone{
		Name:            "bestest_air",
		FloorArea:       48,
		ZoneCapacitance: 7.0e5,
		WallCapacitance: 1.5e7,
		ZoneWallR:       1.0 / 300,
		WallOutdoorR:    1.0 / 100,
		InfiltrationR:   1.0 / 20,
		HeaterCapacity:  5000,
		InternalGain:    300,
		SolarAperture:   3.6,
		Weather:         residentialWeather,
		Occupancy:       Schedule{From: 7, To: 23},
		OccupiedBand:    [2]float64{21, 24},
		UnoccupiedBand:  [2]float64{15, 30},
		DefaultPrice:    0.2,
		TimePeriods: map[string]float64{
			"peak_heat_day":    16 * secondsPerDay,
			"typical_heat_day": 44 * secondsPerDay,
		},
	}
}

// NewBestestHydronic is the same dwelling with a slower, larger
// radiator loop lumped into the zone capacitance.
func NewBestestHydronic() *Zone {
	z := NewBestestAir()
	z.Name = "bestest_hydronic"
	z.ZoneCapacitance = 1.2e6
	z.HeaterCapacity = 6000
	z.TimePeriods = map[string]float64{
		"peak_heat_day":    23 * secondsPerDay,
		"typical_heat_day": 115 * secondsPerDay,
	}
	return z
}

// NewSingleZoneCommercial is a 200 m2 office occupied on weekdays.
func NewSingleZoneCommercial() *Zone {
	return &Zone{
		Name:            "singlezone_commercial",
		FloorArea:       200,
		ZoneCapacitance: 3.0e6,
		WallCapacitance: 6.0e7,
		ZoneWallR:       1.0 / 1000,
		WallOutdoorR:    1.0 / 330,
		InfiltrationR:   1.0 / 70,
		HeaterCapacity:  25000,
		InternalGain:    2000,
		SolarAperture:   12,
		Weather:         residentialWeather,
		Occupancy:       Schedule{From: 8, To: 18, WeekdaysOnly: true},
		OccupiedBand:    [2]float64{21, 24},
		UnoccupiedBand:  [2]float64{15, 30},
		DefaultPrice:    0.15,
		TimePeriods: map[string]float64{
			"peak_heat_day":    8 * secondsPerDay,
			"typical_heat_day": 57 * secondsPerDay,
		},
	}
}
