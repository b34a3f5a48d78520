// Package synth builds deterministic synthetic inputs shaped like a coastal
// city: an elevation grid that climbs west to east, a ward grid over its
// bounding box, and a census table whose indicators track population density.
// cmd/genfixtures writes the three to disk; pipeline tests consume them
// directly.
package synth

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/floats"

	"github.com/wardscope/flood-vulnerability-etl/internal/domain"
)

// DefaultSeed reproduces the checked-in fixtures.
const DefaultSeed = 42

const (
	gridCols = 300
	gridRows = 400
	cellSize = 0.001
	originX  = 72.75 // lower-left corner, degrees east
	originY  = 19.25 // lower-left corner, degrees north
	noData   = -9999.0

	wardCols = 4
	wardRows = 6
)

// wardNames labels the grid south to north, west to east.
var wardNames = []string{
	"Colaba", "Fort", "Dongri", "Mazgaon",
	"Girgaon", "Byculla", "Sewri", "Wadala",
	"Worli", "Parel", "Dadar", "Matunga",
	"Mahim", "Dharavi", "Sion", "Kurla",
	"Bandra", "Khar", "Santacruz", "Ghatkopar",
	"Juhu", "Andheri", "Jogeshwari", "Bhandup",
}

// Surface generates the elevation grid: a 0-100 m west-to-east gradient with
// Gaussian noise, a low coastal band across the western fifth, and sparse
// masked cells standing in for water pixels.
func Surface(seed int64) *domain.ElevationSurface {
	rng := rand.New(rand.NewSource(seed))
	coastal := gridCols / 5

	values := make([]float64, gridRows*gridCols)
	for r := 0; r < gridRows; r++ {
		for c := 0; c < gridCols; c++ {
			var elev float64
			if c < coastal {
				elev = 2 + rng.NormFloat64()
			} else {
				elev = 100*float64(c)/float64(gridCols-1) + rng.NormFloat64()*5
			}
			if rng.Float64() < 0.002 {
				elev = noData
			}
			values[r*gridCols+c] = elev
		}
	}

	s, err := domain.NewElevationSurface("EPSG:4326", noData, originX, originY, cellSize, gridRows, gridCols, values)
	if err != nil {
		panic(fmt.Sprintf("synth surface: %v", err)) // dimensions are constants
	}
	return s
}

// Wards lays a ward grid over the surface bounding box, numbered W01..W24
// south to north so low numbers sit on the low coastal end.
func Wards() (*domain.ZoneSet, error) {
	width := float64(gridCols) * cellSize
	height := float64(gridRows) * cellSize
	cellW := width / wardCols
	cellH := height / wardRows

	zones := make([]domain.Zone, 0, wardRows*wardCols)
	for row := 0; row < wardRows; row++ {
		for col := 0; col < wardCols; col++ {
			minX := originX + float64(col)*cellW
			minY := originY + float64(row)*cellH
			poly := orb.Polygon{{
				{minX, minY},
				{minX + cellW, minY},
				{minX + cellW, minY + cellH},
				{minX, minY + cellH},
				{minX, minY},
			}}
			i := row*wardCols + col
			zones = append(zones, domain.Zone{
				ID:       domain.SyntheticZoneID(i),
				Name:     wardNames[i],
				Geometry: poly,
				AreaKm2:  geo.Area(poly) / 1e6,
			})
		}
	}
	return domain.NewZoneSet("EPSG:4326", zones)
}

// Census derives socioeconomic indicators from population density: southern
// wards are denser, and poverty, vulnerable-age share and slum share all rise
// with density while concrete construction falls.
func Census(zones *domain.ZoneSet, seed int64) *domain.CensusTable {
	rng := rand.New(rand.NewSource(seed))
	all := zones.Zones()

	bound := all[0].Geometry.Bound()
	for _, z := range all[1:] {
		bound = bound.Union(z.Geometry.Bound())
	}
	spanY := bound.Max[1] - bound.Min[1]

	populations := make([]float64, len(all))
	densities := make([]float64, len(all))
	for i, z := range all {
		centroid, _ := planar.CentroidArea(z.Geometry)
		southness := 1.0
		if spanY > 0 {
			southness = (bound.Max[1] - centroid[1]) / spanY
		}
		pop := 150000 + 550000*southness + rng.NormFloat64()*25000
		if pop < 60000 {
			pop = 60000
		}
		populations[i] = math.Round(pop)

		area := z.AreaKm2
		if area <= 0 {
			area = geo.Area(z.Geometry) / 1e6
		}
		densities[i] = populations[i] / area
	}

	lo, hi := floats.Min(densities), floats.Max(densities)

	table := &domain.CensusTable{
		Columns: []string{
			"population", "households", "population_density", "poverty_index",
			"vulnerable_population_pct", "slum_household_pct", "concrete_building_pct",
		},
	}
	for i, z := range all {
		n := 0.0
		if hi > lo {
			n = (densities[i] - lo) / (hi - lo)
		}
		table.Rows = append(table.Rows, domain.CensusRow{
			ZoneID:   z.ID,
			ZoneName: z.Name,
			Values: map[string]float64{
				"population":                populations[i],
				"households":                math.Round(populations[i] / 4.5),
				"population_density":        round1(densities[i]),
				"poverty_index":             round1(clip(10+30*n+rng.NormFloat64()*5, 5, 50)),
				"vulnerable_population_pct": round1(clip(5+20*n+rng.NormFloat64()*3, 2, 35)),
				"slum_household_pct":        round1(clip(5+35*n+rng.NormFloat64()*5, 0, 60)),
				"concrete_building_pct":     round1(clip(90-50*n+rng.NormFloat64()*5, 30, 95)),
			},
		})
	}
	return table
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
