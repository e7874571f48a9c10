package domain

import (
	"context"
	"fmt"
	"math"
)

// Coordinate is a WGS-84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks that the coordinate lies on the globe.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: lat must be within [-90, 90], got %v", ErrInvalidRequest, c.Lat)
	}
	if math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: lon must be within [-180, 180], got %v", ErrInvalidRequest, c.Lon)
	}
	return nil
}

// Offset returns the coordinate shifted by the given degrees.
func (c Coordinate) Offset(dLat, dLon float64) Coordinate {
	return Coordinate{Lat: c.Lat + dLat, Lon: c.Lon + dLon}
}

// Key is a stable cache key at roughly 10 m resolution.
func (c Coordinate) Key() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}

// Place is the human-readable location of a coordinate.
type Place struct {
	DisplayName string
	City        string
	Country     string
}

// Known reports whether the geocoder found anything for the coordinate.
func (p Place) Known() bool {
	return p.City != "" || p.Country != ""
}

// Label renders the place as "City, Country". Missing parts read as
// "Unknown City" and "Unknown Country".
func (p Place) Label() string {
	city := p.City
	if city == "" {
		city = "Unknown City"
	}
	country := p.Country
	if country == "" {
		country = "Unknown Country"
	}
	return city + ", " + country
}

// Geocoder resolves coordinates to places.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (Place, error)
}
