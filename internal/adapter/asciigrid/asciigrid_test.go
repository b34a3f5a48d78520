package asciigrid

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardscope/flood-vulnerability-etl/internal/domain"
)

const smallGrid = `ncols 3
nrows 2
xllcorner 72.75
yllcorner 19.25
cellsize 0.001
NODATA_value -9999
1.5 2 3
-9999 5 6.25
`

func TestDecode(t *testing.T) {
	s, err := Decode(strings.NewReader(smallGrid), "")
	require.NoError(t, err)

	assert.Equal(t, "EPSG:4326", s.CRS())
	assert.Equal(t, 2, s.Rows())
	assert.Equal(t, 3, s.Cols())
	assert.Equal(t, -9999.0, s.NoData())
	assert.Equal(t, 0.001, s.CellSize())

	originX, originY := s.Origin()
	assert.Equal(t, 72.75, originX)
	assert.Equal(t, 19.25, originY)

	// Row 0 is the northernmost raster row.
	assert.Equal(t, 1.5, s.Value(0, 0))
	assert.Equal(t, 6.25, s.Value(1, 2))
	assert.True(t, s.IsNoData(s.Value(1, 0)))
}

func TestDecode_HeaderVariants(t *testing.T) {
	t.Run("case insensitive keys", func(t *testing.T) {
		doc := strings.NewReader("NCOLS 1\nNROWS 1\nXLLCORNER 0\nYLLCORNER 0\nCELLSIZE 1\n7\n")
		s, err := Decode(doc, "")
		require.NoError(t, err)
		assert.Equal(t, 7.0, s.Value(0, 0))
	})

	t.Run("nodata defaults when omitted", func(t *testing.T) {
		doc := strings.NewReader("ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n7\n")
		s, err := Decode(doc, "")
		require.NoError(t, err)
		assert.Equal(t, DefaultNoData, s.NoData())
	})

	t.Run("cell-centered origin shifts to corner", func(t *testing.T) {
		doc := strings.NewReader("ncols 1\nnrows 1\nxllcenter 10\nyllcenter 20\ncellsize 2\n7\n")
		s, err := Decode(doc, "")
		require.NoError(t, err)
		originX, originY := s.Origin()
		assert.Equal(t, 9.0, originX)
		assert.Equal(t, 19.0, originY)
	})
}

func TestDecode_Errors(t *testing.T) {
	cases := map[string]string{
		"missing header field": "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\n1 2 3 4\n",
		"bad header value":     "ncols two\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2\n",
		"truncated values":     "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2 3\n",
		"bad cell value":       "ncols 2\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 two\n",
		"trailing data":        "ncols 2\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2 3\n",
		"empty input":          "",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc), "")
			assert.Error(t, err)
		})
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	original, err := Decode(strings.NewReader(smallGrid), "")
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, Encode(&buf, original))

	decoded, err := Decode(strings.NewReader(buf.String()), "")
	require.NoError(t, err)

	assert.Equal(t, original.Rows(), decoded.Rows())
	assert.Equal(t, original.Cols(), decoded.Cols())
	for row := 0; row < original.Rows(); row++ {
		for col := 0; col < original.Cols(); col++ {
			assert.Equal(t, original.Value(row, col), decoded.Value(row, col))
		}
	}
}

func TestSource_MissingFileIsMissingInput(t *testing.T) {
	src := NewSource(filepath.Join(t.TempDir(), "absent.asc"), "")
	_, err := src.Surface(context.Background())

	var missing *domain.MissingInputError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, domain.CategoryPhysical, missing.Category)
}

func TestSource_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dem.asc")
	require.NoError(t, os.WriteFile(path, []byte(smallGrid), 0o644))

	s, err := NewSource(path, "EPSG:4326").Surface(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Rows())
}

func TestSource_CorruptFileIsHardError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dem.asc")
	require.NoError(t, os.WriteFile(path, []byte("not a grid"), 0o644))

	_, err := NewSource(path, "").Surface(context.Background())
	require.Error(t, err)
	var missing *domain.MissingInputError
	assert.False(t, errors.As(err, &missing))
}
