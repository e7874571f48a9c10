package domain

import (
	"context"
	"math"
)

// Climate defaults substituted when the climate service has no value.
const (
	DefaultTemperature = 0.0
	DefaultHumidity    = 0.0
)

// ClimateReading is what the climate service returned for one calendar month,
// averaged over a window of years. Nil fields were absent.
type ClimateReading struct {
	Temperature   *float64 // °C at 2 m
	Dewpoint      *float64 // °C at 2 m
	Humidity      *float64 // relative, %
	Precipitation *float64 // mm/day
	Month         int
	YearsUsed     int
}

// HasData reports whether any value was present.
func (r ClimateReading) HasData() bool {
	return r.Temperature != nil || r.Dewpoint != nil || r.Humidity != nil || r.Precipitation != nil
}

// ClimateProfile is a complete set of climate attributes for the feature vector.
type ClimateProfile struct {
	Temperature   float64  `json:"temperature"`
	Humidity      float64  `json:"humidity"`
	Precipitation *float64 `json:"precipitation,omitempty"`
	Month         int      `json:"month"`
	YearsUsed     int      `json:"years_used"`
	Defaulted     []string `json:"-"`
}

// ClimateSource fetches the long-term climate of a calendar month at a coordinate.
type ClimateSource interface {
	Climate(ctx context.Context, c Coordinate, month int) (ClimateReading, error)
}

// CompleteClimate fills every missing climate value with its default. Humidity
// is derived from the dewpoint when only temperature and dewpoint are known.
func CompleteClimate(r ClimateReading) ClimateProfile {
	p := ClimateProfile{
		Precipitation: r.Precipitation,
		Month:         r.Month,
		YearsUsed:     r.YearsUsed,
	}
	p.Temperature = fill(r.Temperature, DefaultTemperature, "climate.temperature", &p.Defaulted)

	humidity := r.Humidity
	if humidity == nil && r.Temperature != nil && r.Dewpoint != nil {
		humidity = Ptr(Round2(DewpointHumidity(*r.Temperature, *r.Dewpoint)))
	}
	p.Humidity = fill(humidity, DefaultHumidity, "climate.humidity", &p.Defaulted)
	return p
}

// DewpointHumidity approximates relative humidity (%) from air temperature
// and dewpoint, both in °C.
func DewpointHumidity(tempC, dewpointC float64) float64 {
	rh := 100 * (112 - 0.1*tempC + dewpointC) / (112 + 0.9*tempC)
	return math.Max(0, math.Min(100, rh))
}

// RecencyWeight weights a year within [start, end] linearly from 0.1 to 1.0.
func RecencyWeight(year, start, end int) float64 {
	if end <= start {
		return 1
	}
	return 0.1 + 0.9*float64(year-start)/float64(end-start)
}

// KelvinToCelsius converts an absolute temperature.
func KelvinToCelsius(k float64) float64 {
	return k - 273.15
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
