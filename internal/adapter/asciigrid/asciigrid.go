// Package asciigrid reads and writes elevation rasters in the ESRI ASCII grid
// format: a six-line header (ncols, nrows, xllcorner, yllcorner, cellsize,
// NODATA_value) followed by row-major cell values, northernmost row first.
package asciigrid

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wardscope/flood-vulnerability-etl/internal/domain"
)

// DefaultNoData is assumed when the header omits NODATA_value.
const DefaultNoData = -9999.0

// Decode parses an ASCII grid into an elevation surface. The format carries
// no coordinate reference, so the caller names the CRS the values live in.
func Decode(r io.Reader, crs string) (*domain.ElevationSurface, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	sc.Split(bufio.ScanWords)

	next := func() (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		return sc.Text(), nil
	}

	var (
		cols, rows             int
		originX, originY       float64
		xCenter, yCenter       bool
		cellSize               float64
		noData                 = DefaultNoData
		haveCols, haveRows     bool
		haveX, haveY, haveCell bool
	)

	// Header lines are "key value" pairs. The value section starts at the
	// first token that is not a known key.
	var firstValue string
	for {
		key, err := next()
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		lower := strings.ToLower(key)
		if !isHeaderKey(lower) {
			firstValue = key
			break
		}
		raw, err := next()
		if err != nil {
			return nil, fmt.Errorf("header %s: %w", key, err)
		}
		switch lower {
		case "ncols":
			cols, err = strconv.Atoi(raw)
			haveCols = true
		case "nrows":
			rows, err = strconv.Atoi(raw)
			haveRows = true
		case "xllcorner", "xllcenter":
			originX, err = strconv.ParseFloat(raw, 64)
			xCenter = lower == "xllcenter"
			haveX = true
		case "yllcorner", "yllcenter":
			originY, err = strconv.ParseFloat(raw, 64)
			yCenter = lower == "yllcenter"
			haveY = true
		case "cellsize":
			cellSize, err = strconv.ParseFloat(raw, 64)
			haveCell = true
		case "nodata_value":
			noData, err = strconv.ParseFloat(raw, 64)
		}
		if err != nil {
			return nil, fmt.Errorf("header %s: bad value %q", key, raw)
		}
	}
	if !haveCols || !haveRows || !haveX || !haveY || !haveCell {
		return nil, fmt.Errorf("incomplete header: need ncols, nrows, xllcorner, yllcorner, cellsize")
	}
	if xCenter {
		originX -= cellSize / 2
	}
	if yCenter {
		originY -= cellSize / 2
	}

	values := make([]float64, 0, rows*cols)
	v, err := strconv.ParseFloat(firstValue, 64)
	if err != nil {
		return nil, fmt.Errorf("cell 0: bad value %q", firstValue)
	}
	values = append(values, v)
	for len(values) < rows*cols {
		raw, err := next()
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", len(values), err)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("cell %d: bad value %q", len(values), raw)
		}
		values = append(values, v)
	}
	if sc.Scan() {
		return nil, fmt.Errorf("trailing data after %d cells", rows*cols)
	}

	return domain.NewElevationSurface(crs, noData, originX, originY, cellSize, rows, cols, values)
}

// Encode writes the surface in ASCII grid form. Values are written one raster
// row per line so the output diffs cleanly.
func Encode(w io.Writer, s *domain.ElevationSurface) error {
	bw := bufio.NewWriter(w)
	originX, originY := s.Origin()
	fmt.Fprintf(bw, "ncols %d\n", s.Cols())
	fmt.Fprintf(bw, "nrows %d\n", s.Rows())
	fmt.Fprintf(bw, "xllcorner %s\n", formatCoord(originX))
	fmt.Fprintf(bw, "yllcorner %s\n", formatCoord(originY))
	fmt.Fprintf(bw, "cellsize %s\n", formatCoord(s.CellSize()))
	fmt.Fprintf(bw, "NODATA_value %s\n", formatCoord(s.NoData()))

	for row := 0; row < s.Rows(); row++ {
		for col := 0; col < s.Cols(); col++ {
			if col > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.FormatFloat(s.Value(row, col), 'g', -1, 64))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func isHeaderKey(k string) bool {
	switch k {
	case "ncols", "nrows", "xllcorner", "xllcenter", "yllcorner", "yllcenter", "cellsize", "nodata_value":
		return true
	}
	return false
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
