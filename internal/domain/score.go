package domain

import "sort"

// CategoryIndex is one zone's score for one category on the 0–100 scale,
// together with the weight mass that actually contributed. Degraded marks
// sentinel raster statistics behind the score; Fallback marks a category that
// was substituted wholesale with the neutral value.
type CategoryIndex struct {
	ZoneID     string
	Category   string
	Index      float64
	WeightUsed float64
	Degraded   bool
	Fallback   bool
}

// ScoreZone combines one zone's normalized factor values under a weight
// table. Only factors present in values contribute; the denominator is the
// weight mass of the contributors, so partial data renormalizes instead of
// dragging the score toward zero. With no contributors at all the score is 0
// with zero weight used. The result is scaled to 0–100.
func ScoreZone(values map[string]float64, weights map[string]float64) (index, weightUsed float64) {
	// Fixed summation order keeps runs bit-for-bit reproducible; map order
	// would reshuffle the floating-point accumulation.
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)

	var sum float64
	for _, name := range names {
		v, ok := values[name]
		w := weights[name]
		if !ok || w == 0 {
			continue
		}
		sum += w * v
		weightUsed += w
	}
	if weightUsed == 0 {
		return 0, 0
	}
	return 100 * sum / weightUsed, weightUsed
}

// ComputeCategory normalizes every declared factor across the table's zones
// and scores each zone under the category's weights. Factor columns the table
// does not carry simply do not contribute; per-zone gaps renormalize per zone.
func ComputeCategory(spec CategorySpec, table *FactorTable) (map[string]CategoryIndex, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	normalized := make(map[string]map[string]float64, len(spec.Factors))
	for _, f := range spec.Factors {
		col := table.Column(f.Name)
		if len(col) == 0 {
			continue
		}
		normalized[f.Name] = NormalizeColumn(col, f.Direction)
	}

	weights := spec.Weights()
	out := make(map[string]CategoryIndex, len(table.ZoneIDs()))
	for _, zoneID := range table.ZoneIDs() {
		values := make(map[string]float64, len(normalized))
		for name, col := range normalized {
			if v, ok := col[zoneID]; ok {
				values[name] = v
			}
		}
		index, used := ScoreZone(values, weights)
		out[zoneID] = CategoryIndex{
			ZoneID:     zoneID,
			Category:   spec.Name,
			Index:      index,
			WeightUsed: used,
		}
	}
	return out, nil
}
