package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompleteSoil(t *testing.T) {
	t.Run("full reading keeps values", func(t *testing.T) {
		r := SoilReading{
			PH:        Ptr(6.4),
			Nitrogen:  Ptr(1.8),
			Clay:      Ptr(31.0),
			Sand:      Ptr(28.0),
			Silt:      Ptr(41.0),
			SampledAt: Coordinate{Lat: 12.97, Lon: 77.59},
		}
		p := CompleteSoil(r)

		assert.Equal(t, 6.4, p.PH)
		assert.Equal(t, 1.8, p.Nitrogen)
		assert.Equal(t, 31.0, p.Clay)
		assert.Equal(t, 28.0, p.Sand)
		assert.Equal(t, 41.0, p.Silt)
		assert.Equal(t, DefaultPhosphorus, p.Phosphorus)
		assert.Equal(t, DefaultPotassium, p.Potassium)
		assert.Equal(t, r.SampledAt, p.SampledAt)
		assert.Empty(t, p.Defaulted)
	})

	t.Run("empty reading uses defaults", func(t *testing.T) {
		p := CompleteSoil(SoilReading{})

		assert.Equal(t, 7.0, p.PH)
		assert.Equal(t, 1.0, p.Nitrogen)
		assert.Equal(t, 20.0, p.Clay)
		assert.Equal(t, 40.0, p.Sand)
		assert.Equal(t, 40.0, p.Silt)
		assert.Equal(t, 20.0, p.Phosphorus)
		assert.Equal(t, 200.0, p.Potassium)
		assert.Equal(t, []string{"soil.ph", "soil.nitrogen", "soil.clay", "soil.sand", "soil.silt"}, p.Defaulted)
	})

	t.Run("partial reading", func(t *testing.T) {
		p := CompleteSoil(SoilReading{PH: Ptr(5.5), Clay: Ptr(0.0)})

		assert.Equal(t, 5.5, p.PH)
		assert.Equal(t, 0.0, p.Clay)
		assert.Equal(t, []string{"soil.nitrogen", "soil.sand", "soil.silt"}, p.Defaulted)
	})
}

func TestSoilReading_HasData(t *testing.T) {
	assert.False(t, SoilReading{}.HasData())
	assert.True(t, SoilReading{Silt: Ptr(12.0)}.HasData())
}
