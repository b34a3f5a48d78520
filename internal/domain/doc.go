// Package domain models ward-level flood-vulnerability scoring for Greater Mumbai.
//
// # Methodology
//
// Each administrative ward receives three indices on a 0–100 scale: a physical
// index derived from terrain, a socioeconomic index derived from census
// indicators, and an overall index blending the two. The method is a weighted
// multi-criteria composite, not a hydrological simulation: it ranks wards by
// relative exposure, it does not predict inundation depth.
//
// Physical factors (from zonal statistics over the elevation surface):
//
//	elevation_mean   weight 0.30  descending  (lower terrain → more vulnerable)
//	elevation_min    weight 0.30  descending
//	pct_below_5m     weight 0.25  ascending   (share of cells under 5 m)
//	pct_below_10m    weight 0.15  ascending
//
// Socioeconomic factors (from the ward census table):
//
//	population_density         weight 0.25  ascending
//	poverty_index              weight 0.25  ascending
//	vulnerable_population_pct  weight 0.20  ascending
//	slum_household_pct         weight 0.20  ascending
//	concrete_building_pct      weight 0.10  descending  (optional column)
//
// Overall = 0.6·physical + 0.4·socioeconomic.
//
// # Normalization
//
// Every factor is min–max rescaled to [0,1] across all wards before weighting.
// A descending factor is inverted after rescaling. A flat column (max == min)
// normalizes to 0 for every ward: a factor that cannot discriminate between
// wards contributes no vulnerability signal instead of dividing by zero.
//
// # Missing data
//
// Weights renormalize over the factors actually present, so a ward scored from
// three of five factors still lands on the same 0–100 scale; the weight mass
// used is reported alongside the index. A ward whose raster clip yields no
// valid cells keeps sentinel (0.0) statistics and a degraded flag rather than
// aborting extraction. A ward missing an entire category substitutes the
// neutral value 50.0 for that category and is flagged. Only the loss of both
// categories at once is a hard error.
//
// # Ward identifiers
//
// Wards are keyed by a textual zone_id. Sources that carry numeric or padded
// identifiers are coerced to one canonical text form before any join, and the
// index-to-geometry join enforces a strict 1:1 match; mismatches surface as
// errors listing the offending identifiers, never as silently dropped wards.
// Boundary sources without a zone_id attribute get deterministic synthetic
// identifiers (W01, W02, …) in feature order.
package domain
