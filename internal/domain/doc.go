// Package domain models the soil, climate and crop data behind a recommendation.
//
// # Soil Data
//
// Soil composition comes from the ISRIC SoilGrids v2.0 properties endpoint
// (https://rest.isric.org/soilgrids/v2.0/docs). Only the 0-5cm depth and the
// "mean" statistic are used. SoilGrids publishes integers scaled by a per-layer
// d_factor, so the conventional value is mean / d_factor:
//
//	phh2o     pH x 10      d_factor 10   -> pH
//	nitrogen  cg/kg        d_factor 100  -> g/kg
//	clay      g/kg         d_factor 10   -> %
//	sand      g/kg         d_factor 10   -> %
//	silt      g/kg         d_factor 10   -> %
//
// Water bodies, urban cores and the poles return null means. Those points are
// treated as "no data" and the adapter queries neighbouring points before the
// defaults below apply.
//
// Phosphorus and potassium are not part of SoilGrids. The model was trained on
// field samples that include them, so serving always uses the agronomic
// defaults P = 20 and K = 200 and does not report them as substituted.
//
// # Defaults
//
// Missing soil values are replaced with: pH 7.0, nitrogen 1.0 g/kg, clay 20 %,
// sand 40 %, silt 40 %. Missing climate values are replaced with 0.0, the fill
// value the model artifact was validated against. Every substituted field is
// listed in the recommendation's defaults_used.
//
// # Climate Data
//
// Climate comes from the NASA POWER monthly point API. For the target month
// each year in the configured window contributes its 2 m temperature (T2M) and
// dewpoint (T2MDEW) with a recency weight
//
//	w(y) = 0.1 + 0.9 * (y - start) / (end - start)
//
// so the most recent year counts ten times more than the first. Relative
// humidity is derived from the weighted means with
//
//	RH = 100 * (112 - 0.1*T + Td) / (112 + 0.9*T), clamped to [0, 100].
//
// # Soil Type
//
// The model's soil_type feature is a coarse label derived from texture
// fractions by an ordered rule table (see [ClassifySoilType]), encoded with the
// alphabetical label order used at training time (see [SoilTypes]). The USDA
// texture class (see [TextureClass]) is reported next to it for agronomists.
//
// # Feature Vector
//
// The classifier input is, in order:
//
//	soil_type, ph, k, p, n, temperature, humidity
package domain
