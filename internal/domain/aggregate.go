package domain

import (
	"sort"

	"github.com/paulmach/orb/geojson"
)

// Blend weights and the substitute applied when an entire category is absent
// for a zone.
const (
	PhysicalBlendWeight      = 0.6
	SocioeconomicBlendWeight = 0.4
	NeutralCategoryIndex     = 50.0
)

// Flags recorded on an OverallIndex row.
const (
	FlagDegradedExtraction    = "degraded_extraction"
	FlagPhysicalFallback      = "physical_fallback"
	FlagSocioeconomicFallback = "socioeconomic_fallback"
)

// OverallIndex is the terminal per-zone artifact: both category indices, the
// blended overall score, the weight mass each category actually used, and any
// degradation flags picked up along the way.
type OverallIndex struct {
	ZoneID                  string
	ZoneName                string
	Physical                float64
	Socioeconomic           float64
	Overall                 float64
	PhysicalWeightUsed      float64
	SocioeconomicWeightUsed float64
	Flags                   []string
}

// HasFlag reports whether the row carries the named flag.
func (o OverallIndex) HasFlag(flag string) bool {
	for _, f := range o.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// ComputePhysicalIndex runs zonal extraction over the surface and scores the
// physical category. It returns the per-zone indices, the raw factor table
// (for the tabular artifact), and the extraction statistics. Zones whose
// extraction degraded carry the flag through to their CategoryIndex.
func ComputePhysicalIndex(surface *ElevationSurface, zones *ZoneSet, spec CategorySpec, thresholds []float64) (map[string]CategoryIndex, *FactorTable, map[string]ZoneStats, error) {
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds
	}
	stats := ExtractZonalStats(surface, zones, thresholds)

	table := NewFactorTable(CategoryPhysical)
	for _, z := range zones.Zones() {
		st := stats[z.ID]
		table.AddZone(z.ID, z.Name)
		table.Set(z.ID, "elevation_mean", st.Mean)
		table.Set(z.ID, "elevation_min", st.Min)
		table.Set(z.ID, "elevation_max", st.Max)
		for _, t := range thresholds {
			table.Set(z.ID, PctBelowName(t), st.PctBelow[t])
		}
	}

	indices, err := ComputeCategory(spec, table)
	if err != nil {
		return nil, nil, nil, err
	}
	for id, st := range stats {
		if !st.Degraded {
			continue
		}
		ci := indices[id]
		ci.Degraded = true
		indices[id] = ci
	}
	return indices, table, stats, nil
}

// ComputeSocioeconomicIndex maps census columns onto the declared factors and
// scores the socioeconomic category. The returned column names are required
// factors whose source column the census did not carry at all; they degrade
// the score per the renormalization policy but are surfaced for logging.
func ComputeSocioeconomicIndex(census *CensusTable, spec CategorySpec) (map[string]CategoryIndex, *FactorTable, []string, error) {
	table := NewFactorTable(CategorySocioeconomic)
	var missingRequired []string
	for _, f := range spec.Factors {
		if !census.HasColumn(f.SourceColumn()) && !f.Optional {
			missingRequired = append(missingRequired, f.SourceColumn())
		}
	}
	for _, row := range census.Rows {
		table.AddZone(row.ZoneID, row.ZoneName)
		for _, f := range spec.Factors {
			col := f.SourceColumn()
			if !census.HasColumn(col) {
				continue
			}
			if v, ok := row.Values[col]; ok {
				table.Set(row.ZoneID, f.Name, v)
			} else {
				table.SetMissing(row.ZoneID, f.Name)
			}
		}
	}

	indices, err := ComputeCategory(spec, table)
	if err != nil {
		return nil, nil, nil, err
	}
	return indices, table, missingRequired, nil
}

// Aggregate blends the two category outputs over the union of their zones.
// A zone present in only one category substitutes the neutral value for the
// other and is flagged rather than dropped, so coverage never shrinks to the
// intersection. Rows come back sorted by zone id for deterministic artifacts.
func Aggregate(physical, socio map[string]CategoryIndex, names map[string]string) []OverallIndex {
	ids := make([]string, 0, len(physical)+len(socio))
	seen := make(map[string]bool, len(physical)+len(socio))
	for id := range physical {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id := range socio {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]OverallIndex, 0, len(ids))
	for _, id := range ids {
		row := OverallIndex{
			ZoneID:        id,
			ZoneName:      names[id],
			Physical:      NeutralCategoryIndex,
			Socioeconomic: NeutralCategoryIndex,
		}

		if p, ok := physical[id]; ok {
			row.Physical = p.Index
			row.PhysicalWeightUsed = p.WeightUsed
			if p.Degraded {
				row.Flags = append(row.Flags, FlagDegradedExtraction)
			}
		} else {
			row.Flags = append(row.Flags, FlagPhysicalFallback)
		}

		if s, ok := socio[id]; ok {
			row.Socioeconomic = s.Index
			row.SocioeconomicWeightUsed = s.WeightUsed
		} else {
			row.Flags = append(row.Flags, FlagSocioeconomicFallback)
		}

		row.Overall = PhysicalBlendWeight*row.Physical + SocioeconomicBlendWeight*row.Socioeconomic
		out = append(out, row)
	}
	return out
}

// JoinGeometry attaches overall index rows onto zone geometries by canonical
// identifier and returns a GeoJSON feature collection ready for rendering.
// The join is strict 1:1: index rows without a geometry, geometries without
// an index row, or duplicated identifiers fail the join with a
// JoinMismatchError naming every offender.
func JoinGeometry(indices []OverallIndex, zones *ZoneSet) (*geojson.FeatureCollection, error) {
	mismatch := &JoinMismatchError{}

	counts := make(map[string]int, len(indices))
	for _, row := range indices {
		counts[row.ZoneID]++
	}
	for id, n := range counts {
		if n > 1 {
			mismatch.Duplicated = append(mismatch.Duplicated, id)
		}
	}

	matched := make(map[string]bool, len(indices))
	fc := geojson.NewFeatureCollection()
	for _, row := range indices {
		zone, ok := zones.ByID(row.ZoneID)
		if !ok {
			mismatch.UnmatchedIndex = append(mismatch.UnmatchedIndex, row.ZoneID)
			continue
		}
		matched[zone.ID] = true

		name := row.ZoneName
		if name == "" {
			name = zone.Name
		}
		f := geojson.NewFeature(zone.Geometry)
		f.Properties = geojson.Properties{
			"zone_id":                   row.ZoneID,
			"zone_name":                 name,
			"physical_index":            row.Physical,
			"socioeconomic_index":       row.Socioeconomic,
			"overall_index":             row.Overall,
			"physical_weight_used":      row.PhysicalWeightUsed,
			"socioeconomic_weight_used": row.SocioeconomicWeightUsed,
		}
		if zone.AreaKm2 > 0 {
			f.Properties["area_sqkm"] = zone.AreaKm2
		}
		if len(row.Flags) > 0 {
			f.Properties["flags"] = row.Flags
		}
		fc.Append(f)
	}

	for _, z := range zones.Zones() {
		if !matched[z.ID] {
			mismatch.UnmatchedGeometry = append(mismatch.UnmatchedGeometry, z.ID)
		}
	}

	if len(mismatch.UnmatchedIndex) > 0 || len(mismatch.UnmatchedGeometry) > 0 || len(mismatch.Duplicated) > 0 {
		sort.Strings(mismatch.UnmatchedIndex)
		sort.Strings(mismatch.UnmatchedGeometry)
		sort.Strings(mismatch.Duplicated)
		return nil, mismatch
	}
	return fc, nil
}
