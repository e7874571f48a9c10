package domain

import (
	"math"
	"slices"
)

// Soil type labels understood by the model.
const (
	SoilBlack   = "Black"
	SoilClay    = "Clay"
	SoilLoamy   = "Loamy"
	SoilPeaty   = "Peaty"
	SoilRed     = "Red"
	SoilSaline  = "Saline"
	SoilSandy   = "Sandy"
	SoilSilty   = "Silty"
	SoilUnknown = "Unknown"
)

// SoilTypes lists the soil labels in encoder order. The index of a label is
// its encoded value.
var SoilTypes = []string{
	SoilBlack, SoilClay, SoilLoamy, SoilPeaty, SoilRed,
	SoilSaline, SoilSandy, SoilSilty, SoilUnknown,
}

// EncodeSoilType maps a label to its encoded value. Labels outside the
// vocabulary encode as Unknown.
func EncodeSoilType(label string) int {
	if i := slices.Index(SoilTypes, label); i >= 0 {
		return i
	}
	return slices.Index(SoilTypes, SoilUnknown)
}

// DecodeSoilType maps an encoded value back to its label.
func DecodeSoilType(code int) string {
	if code < 0 || code >= len(SoilTypes) {
		return SoilUnknown
	}
	return SoilTypes[code]
}

// ClassifySoilType derives the model's soil label from texture percentages.
// Rules are evaluated in order and the first match wins.
func ClassifySoilType(clay, sand, silt float64) string {
	switch {
	case clay > 40:
		return SoilClay
	case sand > 70:
		return SoilSandy
	case silt > 40:
		return SoilSilty
	case clay > 20 && clay < 35 && sand > 20 && sand < 70 && silt > 20 && silt < 70:
		return SoilLoamy
	case clay < 20 && sand < 52 && silt > 28:
		return SoilPeaty
	case clay > 20 && sand < 20 && silt < 20:
		return SoilBlack
	case sand > 60 && clay < 10:
		return SoilRed
	case sand > 20 && silt > 20 && clay < 10:
		return SoilSaline
	default:
		return SoilUnknown
	}
}

// USDA texture classes.
const (
	TextureSand           = "sand"
	TextureLoamySand      = "loamy sand"
	TextureSandyLoam      = "sandy loam"
	TextureLoam           = "loam"
	TextureSiltLoam       = "silt loam"
	TextureSilt           = "silt"
	TextureSandyClayLoam  = "sandy clay loam"
	TextureClayLoam       = "clay loam"
	TextureSiltyClayLoam  = "silty clay loam"
	TextureSandyClay      = "sandy clay"
	TextureSiltyClay      = "silty clay"
	TextureClay           = "clay"
	TextureUnclassifiable = "unclassified"
)

// TextureClass places a sand/silt/clay triple on the USDA texture triangle.
// Fractions are normalized to sum to 100 first, since gridded estimates
// rarely add up exactly.
func TextureClass(clay, sand, silt float64) string {
	total := clay + sand + silt
	if total <= 0 || clay < 0 || sand < 0 || silt < 0 || math.IsNaN(total) {
		return TextureUnclassifiable
	}
	clay, sand, silt = clay*100/total, sand*100/total, silt*100/total

	switch {
	case silt+1.5*clay < 15:
		return TextureSand
	case silt+2*clay < 30:
		return TextureLoamySand
	case clay >= 40 && silt >= 40:
		return TextureSiltyClay
	case clay >= 40 && sand <= 45:
		return TextureClay
	case clay >= 35 && sand > 45:
		return TextureSandyClay
	case clay >= 27 && sand <= 20:
		return TextureSiltyClayLoam
	case clay >= 27 && sand <= 45:
		return TextureClayLoam
	case clay >= 20 && silt < 28 && sand > 45:
		return TextureSandyClayLoam
	case silt >= 80 && clay < 12:
		return TextureSilt
	case silt >= 50:
		return TextureSiltLoam
	case clay >= 7 && silt >= 28 && sand <= 52:
		return TextureLoam
	default:
		return TextureSandyLoam
	}
}
