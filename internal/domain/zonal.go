package domain

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultThresholds are the elevation cutoffs, in surface units (meters),
// below which cell fractions are reported.
var DefaultThresholds = []float64{5, 10}

// PctBelowName returns the factor/column name for one threshold, e.g.
// pct_below_5m.
func PctBelowName(threshold float64) string {
	return fmt.Sprintf("pct_below_%sm", strconv.FormatFloat(threshold, 'g', -1, 64))
}

// ZoneStats summarizes the valid surface samples inside one zone. A degraded
// zone keeps sentinel zero statistics and records why.
type ZoneStats struct {
	ZoneID     string
	Mean       float64
	Min        float64
	Max        float64
	PctBelow   map[float64]float64 // threshold → percentage of valid samples strictly below
	ValidCells int
	Degraded   bool
	Reason     string
}

// ExtractZonalStats samples the surface under every zone polygon and returns
// one ZoneStats per zone. Zones are reprojected to the surface's coordinate
// reference first; the surface is never resampled. Any per-zone failure (bad
// geometry, failed reprojection, no valid samples) degrades that zone only;
// extraction always completes for the rest.
func ExtractZonalStats(surface *ElevationSurface, zones *ZoneSet, thresholds []float64) map[string]ZoneStats {
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds
	}
	out := make(map[string]ZoneStats, zones.Len())
	for _, z := range zones.Zones() {
		out[z.ID] = extractZone(surface, z, zones.CRS(), thresholds)
	}
	return out
}

func extractZone(surface *ElevationSurface, z Zone, zoneCRS string, thresholds []float64) ZoneStats {
	if z.Geometry == nil {
		return degradedStats(z.ID, thresholds, "empty geometry")
	}
	switch z.Geometry.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		return degradedStats(z.ID, thresholds, fmt.Sprintf("unsupported geometry %T", z.Geometry))
	}

	geom := z.Geometry
	if NormalizeCRS(zoneCRS) != surface.CRS() {
		var err error
		geom, err = TransformGeometry(geom, zoneCRS, surface.CRS())
		if err != nil {
			return degradedStats(z.ID, thresholds, fmt.Sprintf("reprojection to %s failed: %v", surface.CRS(), err))
		}
	}

	rowMin, rowMax, colMin, colMax, ok := surface.CellRange(geom.Bound())
	if !ok {
		return degradedStats(z.ID, thresholds, "outside surface extent")
	}

	var samples []float64
	for row := rowMin; row < rowMax; row++ {
		for col := colMin; col < colMax; col++ {
			v := surface.Value(row, col)
			if surface.IsNoData(v) {
				continue
			}
			if !containsPoint(geom, surface.CellCenter(row, col)) {
				continue
			}
			samples = append(samples, v)
		}
	}
	if len(samples) == 0 {
		return degradedStats(z.ID, thresholds, "no valid samples inside zone")
	}

	stats := ZoneStats{
		ZoneID:     z.ID,
		Mean:       stat.Mean(samples, nil),
		Min:        floats.Min(samples),
		Max:        floats.Max(samples),
		PctBelow:   make(map[float64]float64, len(thresholds)),
		ValidCells: len(samples),
	}
	for _, t := range thresholds {
		below := 0
		for _, v := range samples {
			if v < t {
				below++
			}
		}
		stats.PctBelow[t] = 100 * float64(below) / float64(len(samples))
	}
	return stats
}

func degradedStats(zoneID string, thresholds []float64, reason string) ZoneStats {
	pct := make(map[float64]float64, len(thresholds))
	for _, t := range thresholds {
		pct[t] = 0
	}
	return ZoneStats{ZoneID: zoneID, PctBelow: pct, Degraded: true, Reason: reason}
}

func containsPoint(g orb.Geometry, p orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, p)
	default:
		return false
	}
}
