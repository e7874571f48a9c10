package domain

import "context"

// Soil defaults substituted when the soil-grid service has no value.
const (
	DefaultPH         = 7.0
	DefaultNitrogen   = 1.0
	DefaultPhosphorus = 20.0
	DefaultPotassium  = 200.0
	DefaultClay       = 20.0
	DefaultSand       = 40.0
	DefaultSilt       = 40.0
)

// SoilReading is what the soil-grid service returned. Nil fields were absent.
type SoilReading struct {
	PH       *float64
	Nitrogen *float64 // g/kg
	Clay     *float64 // %
	Sand     *float64 // %
	Silt     *float64 // %

	// SampledAt is the coordinate the values were measured at, which differs
	// from the requested one when a neighbour search was needed.
	SampledAt Coordinate
}

// HasData reports whether any property was present.
func (r SoilReading) HasData() bool {
	return r.PH != nil || r.Nitrogen != nil || r.Clay != nil || r.Sand != nil || r.Silt != nil
}

// SoilProfile is a complete set of soil attributes for the feature vector.
type SoilProfile struct {
	PH         float64    `json:"ph"`
	Nitrogen   float64    `json:"n"`
	Phosphorus float64    `json:"p"`
	Potassium  float64    `json:"k"`
	Clay       float64    `json:"clay_percent"`
	Sand       float64    `json:"sand_percent"`
	Silt       float64    `json:"silt_percent"`
	SampledAt  Coordinate `json:"sampled_at"`
	Defaulted  []string   `json:"-"`
}

// SoilSource fetches soil composition for a coordinate.
type SoilSource interface {
	Soil(ctx context.Context, c Coordinate) (SoilReading, error)
}

// CompleteSoil fills every missing soil value with its default.
func CompleteSoil(r SoilReading) SoilProfile {
	p := SoilProfile{
		Phosphorus: DefaultPhosphorus,
		Potassium:  DefaultPotassium,
		SampledAt:  r.SampledAt,
	}
	p.PH = fill(r.PH, DefaultPH, "soil.ph", &p.Defaulted)
	p.Nitrogen = fill(r.Nitrogen, DefaultNitrogen, "soil.nitrogen", &p.Defaulted)
	p.Clay = fill(r.Clay, DefaultClay, "soil.clay", &p.Defaulted)
	p.Sand = fill(r.Sand, DefaultSand, "soil.sand", &p.Defaulted)
	p.Silt = fill(r.Silt, DefaultSilt, "soil.silt", &p.Defaulted)
	return p
}

func fill(v *float64, def float64, field string, defaulted *[]string) float64 {
	if v == nil {
		*defaulted = append(*defaulted, field)
		return def
	}
	return *v
}

// Ptr returns a pointer to v, for building readings.
func Ptr[T any](v T) *T {
	return &v
}
