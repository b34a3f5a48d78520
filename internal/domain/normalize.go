package domain

import "gonum.org/v1/gonum/floats"

// NormalizeColumn min–max rescales one raw factor column to [0,1] across all
// zones present in it. Descending direction inverts the scale so that lower
// raw values score higher. A flat column (max == min) maps every zone to 0:
// a factor with no spread carries no signal, and 0 avoids the undefined
// division. Pure function; the input map is not modified.
func NormalizeColumn(column map[string]float64, dir Direction) map[string]float64 {
	out := make(map[string]float64, len(column))
	if len(column) == 0 {
		return out
	}

	vals := make([]float64, 0, len(column))
	for _, v := range column {
		vals = append(vals, v)
	}
	lo, hi := floats.Min(vals), floats.Max(vals)

	if hi == lo {
		for id := range column {
			out[id] = 0
		}
		return out
	}

	span := hi - lo
	for id, v := range column {
		n := (v - lo) / span
		if dir == Descending {
			n = 1 - n
		}
		out[id] = n
	}
	return out
}
