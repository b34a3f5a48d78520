package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeColumn_Ascending(t *testing.T) {
	col := map[string]float64{"W01": 10, "W02": 20, "W03": 30}

	got := NormalizeColumn(col, Ascending)
	require.Len(t, got, 3)
	assert.Equal(t, 0.0, got["W01"])
	assert.InDelta(t, 0.5, got["W02"], 1e-9)
	assert.Equal(t, 1.0, got["W03"])
}

func TestNormalizeColumn_DescendingInverts(t *testing.T) {
	col := map[string]float64{"W01": 10, "W02": 20, "W03": 30}

	got := NormalizeColumn(col, Descending)
	assert.Equal(t, 1.0, got["W01"], "lowest raw value is most vulnerable")
	assert.InDelta(t, 0.5, got["W02"], 1e-9)
	assert.Equal(t, 0.0, got["W03"])
}

func TestNormalizeColumn_BoundsHold(t *testing.T) {
	col := map[string]float64{
		"a": -120.5, "b": 0, "c": 3.25, "d": 88, "e": 1e6,
	}
	for _, dir := range []Direction{Ascending, Descending} {
		got := NormalizeColumn(col, dir)
		for id, v := range got {
			assert.GreaterOrEqual(t, v, 0.0, "zone %s dir %s", id, dir)
			assert.LessOrEqual(t, v, 1.0, "zone %s dir %s", id, dir)
		}
	}
}

func TestNormalizeColumn_FlatColumnIsZero(t *testing.T) {
	cases := []struct {
		name string
		col  map[string]float64
	}{
		{"identical values", map[string]float64{"W01": 7, "W02": 7, "W03": 7}},
		{"all sentinel zero", map[string]float64{"W01": 0, "W02": 0}},
		{"single zone", map[string]float64{"W01": 42}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, dir := range []Direction{Ascending, Descending} {
				got := NormalizeColumn(tc.col, dir)
				require.Len(t, got, len(tc.col))
				for id, v := range got {
					assert.Equal(t, 0.0, v, "zone %s dir %s", id, dir)
				}
			}
		})
	}
}

func TestNormalizeColumn_EmptyColumn(t *testing.T) {
	got := NormalizeColumn(nil, Ascending)
	assert.Empty(t, got)
}

func TestNormalizeColumn_PureFunction(t *testing.T) {
	col := map[string]float64{"W01": 1, "W02": 2}
	first := NormalizeColumn(col, Ascending)
	second := NormalizeColumn(col, Ascending)

	assert.Equal(t, first, second, "identical inputs produce identical outputs")
	assert.Equal(t, map[string]float64{"W01": 1, "W02": 2}, col, "input untouched")
}
