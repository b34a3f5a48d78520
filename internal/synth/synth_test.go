package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardscope/flood-vulnerability-etl/internal/domain"
)

func TestSurfaceIsDeterministic(t *testing.T) {
	a := Surface(DefaultSeed)
	b := Surface(DefaultSeed)

	require.Equal(t, a.Rows(), b.Rows())
	require.Equal(t, a.Cols(), b.Cols())
	for r := 0; r < a.Rows(); r++ {
		for c := 0; c < a.Cols(); c++ {
			if a.Value(r, c) != b.Value(r, c) {
				t.Fatalf("cell (%d,%d) differs across identical seeds: %g vs %g", r, c, a.Value(r, c), b.Value(r, c))
			}
		}
	}

	other := Surface(DefaultSeed + 1)
	same := true
	for r := 0; r < a.Rows() && same; r++ {
		for c := 0; c < a.Cols(); c++ {
			if a.Value(r, c) != other.Value(r, c) {
				same = false
				break
			}
		}
	}
	assert.False(t, same, "different seeds should produce different grids")
}

func TestSurfaceShape(t *testing.T) {
	s := Surface(DefaultSeed)

	assert.Equal(t, 400, s.Rows())
	assert.Equal(t, 300, s.Cols())
	assert.Equal(t, -9999.0, s.NoData())
	x, y := s.Origin()
	assert.Equal(t, 72.75, x)
	assert.Equal(t, 19.25, y)

	colMean := func(c int) float64 {
		var sum float64
		var n int
		for r := 0; r < s.Rows(); r++ {
			if v := s.Value(r, c); !s.IsNoData(v) {
				sum += v
				n++
			}
		}
		require.Positive(t, n)
		return sum / float64(n)
	}

	// Coastal band sits near sea level, the east edge near the gradient top.
	assert.InDelta(t, 2.0, colMean(10), 0.5)
	assert.InDelta(t, 100.0, colMean(299), 2.0)
	assert.Greater(t, colMean(299), colMean(150))
}

func TestWardsCoverTheSurface(t *testing.T) {
	zones, err := Wards()
	require.NoError(t, err)
	require.Equal(t, 24, zones.Len())

	surfaceBound := Surface(DefaultSeed).Bound()
	seenNames := map[string]bool{}
	for i, z := range zones.Zones() {
		assert.Equal(t, domain.SyntheticZoneID(i), z.ID)
		assert.NotEmpty(t, z.Name)
		assert.False(t, seenNames[z.Name], "duplicate ward name %s", z.Name)
		seenNames[z.Name] = true

		// Each grid cell is roughly 8 km by 7 km at this latitude.
		assert.Greater(t, z.AreaKm2, 40.0, z.ID)
		assert.Less(t, z.AreaKm2, 80.0, z.ID)

		b := z.Geometry.Bound()
		assert.GreaterOrEqual(t, b.Min[0], surfaceBound.Min[0]-1e-9)
		assert.LessOrEqual(t, b.Max[0], surfaceBound.Max[0]+1e-9)
	}

	first, ok := zones.ByID("W01")
	require.True(t, ok)
	assert.Equal(t, "Colaba", first.Name)
}

func TestCensusIsDeterministicAndClipped(t *testing.T) {
	zones, err := Wards()
	require.NoError(t, err)

	a := Census(zones, DefaultSeed)
	b := Census(zones, DefaultSeed)
	require.Equal(t, a, b)

	bounds := map[string][2]float64{
		"poverty_index":             {5, 50},
		"vulnerable_population_pct": {2, 35},
		"slum_household_pct":        {0, 60},
		"concrete_building_pct":     {30, 95},
	}

	require.Len(t, a.Rows, 24)
	for _, row := range a.Rows {
		for _, col := range a.Columns {
			v, ok := row.Values[col]
			require.True(t, ok, "%s missing %s", row.ZoneID, col)
			if lim, bounded := bounds[col]; bounded {
				assert.GreaterOrEqual(t, v, lim[0], "%s %s", row.ZoneID, col)
				assert.LessOrEqual(t, v, lim[1], "%s %s", row.ZoneID, col)
			}
		}
		assert.InDelta(t, row.Values["population"]/4.5, row.Values["households"], 0.5, row.ZoneID)
	}
}

func TestCensusSouthIsDenserAndPoorer(t *testing.T) {
	zones, err := Wards()
	require.NoError(t, err)
	table := Census(zones, DefaultSeed)

	rowMean := func(ids []string, col string) float64 {
		var sum float64
		for _, row := range table.Rows {
			for _, id := range ids {
				if row.ZoneID == id {
					sum += row.Values[col]
				}
			}
		}
		return sum / float64(len(ids))
	}

	south := []string{"W01", "W02", "W03", "W04"}
	north := []string{"W21", "W22", "W23", "W24"}
	assert.Greater(t, rowMean(south, "population_density"), rowMean(north, "population_density"))
	assert.Greater(t, rowMean(south, "poverty_index"), rowMean(north, "poverty_index"))
	assert.Less(t, rowMean(south, "concrete_building_pct"), rowMean(north, "concrete_building_pct"))
}
