package render

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(minX, minY, side float64, score any) *geojson.Feature {
	f := geojson.NewFeature(orb.Polygon{{
		{minX, minY}, {minX + side, minY}, {minX + side, minY + side}, {minX, minY + side}, {minX, minY},
	}})
	if score != nil {
		f.Properties["overall_index"] = score
	}
	return f
}

func TestRenderWritesPNG(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(square(72.0, 19.0, 0.1, 85.0))
	fc.Append(square(72.1, 19.0, 0.1, 15.0))
	fc.Append(square(72.0, 19.1, 0.2, nil)) // no score, drawn gray

	dir := t.TempDir()
	path, err := NewMap(dir).Render(fc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, MapFileName), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, mapWidth, img.Bounds().Dx())
	assert.Greater(t, img.Bounds().Dy(), 0)
}

func TestRenderRejectsEmptyCollection(t *testing.T) {
	_, err := NewMap(t.TempDir()).Render(geojson.NewFeatureCollection())
	assert.Error(t, err)

	_, err = NewMap(t.TempDir()).Render(nil)
	assert.Error(t, err)
}

func TestScoreColorRamp(t *testing.T) {
	low := scoreColor(0)
	mid := scoreColor(50)
	high := scoreColor(100)

	assert.Greater(t, low.B, low.R, "low scores lean blue")
	assert.Greater(t, high.R, high.B, "high scores lean red")
	assert.Equal(t, uint8(0xFF), mid.R)
	assert.Equal(t, uint8(0xFF), mid.G)

	// Out-of-range input clamps rather than wrapping.
	assert.Equal(t, low, scoreColor(-5))
	assert.Equal(t, high, scoreColor(140))
}
