package domain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ElevationSurface is an immutable 2-D grid of elevation samples with square
// cells, a lower-left origin, a coordinate reference, and a nodata sentinel.
// Rows are stored north to south (row 0 is the top of the grid), matching the
// raster formats it is loaded from.
type ElevationSurface struct {
	crs      string
	noData   float64
	cellSize float64
	originX  float64 // x of the lower-left corner
	originY  float64 // y of the lower-left corner
	rows     int
	cols     int
	values   []float64 // row-major, len rows*cols
}

// NewElevationSurface validates grid dimensions and wraps the sample slice.
// The slice is owned by the surface afterwards and must not be mutated.
func NewElevationSurface(crs string, noData, originX, originY, cellSize float64, rows, cols int, values []float64) (*ElevationSurface, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid grid size %dx%d", rows, cols)
	}
	if cellSize <= 0 {
		return nil, fmt.Errorf("invalid cell size %g", cellSize)
	}
	if len(values) != rows*cols {
		return nil, fmt.Errorf("grid %dx%d needs %d samples, got %d", rows, cols, rows*cols, len(values))
	}
	return &ElevationSurface{
		crs:      NormalizeCRS(crs),
		noData:   noData,
		cellSize: cellSize,
		originX:  originX,
		originY:  originY,
		rows:     rows,
		cols:     cols,
		values:   values,
	}, nil
}

func (s *ElevationSurface) CRS() string       { return s.crs }
func (s *ElevationSurface) NoData() float64   { return s.noData }
func (s *ElevationSurface) CellSize() float64 { return s.cellSize }
func (s *ElevationSurface) Rows() int         { return s.rows }
func (s *ElevationSurface) Cols() int         { return s.cols }

// Origin returns the lower-left corner of the grid.
func (s *ElevationSurface) Origin() (x, y float64) { return s.originX, s.originY }

// Value returns the sample at (row, col); row 0 is the northernmost row.
func (s *ElevationSurface) Value(row, col int) float64 {
	return s.values[row*s.cols+col]
}

// IsNoData reports whether a sample carries no valid measurement. NaN samples
// count as nodata so corrupt inputs cannot poison the statistics.
func (s *ElevationSurface) IsNoData(v float64) bool {
	return v == s.noData || math.IsNaN(v)
}

// Bound returns the outer extent of the grid.
func (s *ElevationSurface) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{s.originX, s.originY},
		Max: orb.Point{s.originX + float64(s.cols)*s.cellSize, s.originY + float64(s.rows)*s.cellSize},
	}
}

// CellCenter returns the coordinate of the center of cell (row, col).
func (s *ElevationSurface) CellCenter(row, col int) orb.Point {
	return orb.Point{
		s.originX + (float64(col)+0.5)*s.cellSize,
		s.originY + (float64(s.rows-row)-0.5)*s.cellSize,
	}
}

// CellRange returns the half-open row/column window whose cell centers can lie
// inside b, clamped to the grid. ok is false when b misses the grid entirely.
func (s *ElevationSurface) CellRange(b orb.Bound) (rowMin, rowMax, colMin, colMax int, ok bool) {
	ext := s.Bound()
	if b.Min[0] > ext.Max[0] || b.Max[0] < ext.Min[0] || b.Min[1] > ext.Max[1] || b.Max[1] < ext.Min[1] {
		return 0, 0, 0, 0, false
	}

	colMin = int(math.Floor((b.Min[0] - s.originX) / s.cellSize))
	colMax = int(math.Ceil((b.Max[0]-s.originX)/s.cellSize)) + 1
	// Row indices run north to south, so the bound's max y maps to rowMin.
	rowMin = s.rows - int(math.Ceil((b.Max[1]-s.originY)/s.cellSize)) - 1
	rowMax = s.rows - int(math.Floor((b.Min[1]-s.originY)/s.cellSize))

	colMin = max(colMin, 0)
	rowMin = max(rowMin, 0)
	colMax = min(colMax, s.cols)
	rowMax = min(rowMax, s.rows)
	if rowMin >= rowMax || colMin >= colMax {
		return 0, 0, 0, 0, false
	}
	return rowMin, rowMax, colMin, colMax, true
}
