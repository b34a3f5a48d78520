// Package render draws the ward choropleth PNG from the joined feature
// collection.
package render

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// MapFileName is the choropleth artifact written under the output directory.
const MapFileName = "ward_vulnerability.png"

const (
	mapWidth  = 1200
	margin    = 40.0
	legendBar = 60.0
)

// Map renders overall vulnerability as a blue-to-red choropleth.
// It implements pipeline.Renderer.
type Map struct {
	outputDir string
}

func NewMap(outputDir string) *Map {
	return &Map{outputDir: outputDir}
}

// Render draws every feature filled by its overall_index property and writes
// the PNG. Features without a usable score are filled gray.
func (m *Map) Render(fc *geojson.FeatureCollection) (string, error) {
	if fc == nil || len(fc.Features) == 0 {
		return "", fmt.Errorf("render map: no features to draw")
	}

	bound := fc.Features[0].Geometry.Bound()
	for _, f := range fc.Features[1:] {
		bound = bound.Union(f.Geometry.Bound())
	}
	dx, dy := bound.Max[0]-bound.Min[0], bound.Max[1]-bound.Min[1]
	if dx <= 0 || dy <= 0 {
		return "", fmt.Errorf("render map: degenerate bounds")
	}

	innerW := float64(mapWidth) - 2*margin
	innerH := innerW * dy / dx
	height := int(innerH + 2*margin + legendBar)

	dc := gg.NewContext(mapWidth, height)
	dc.SetColor(color.White)
	dc.Clear()

	project := func(p orb.Point) (float64, float64) {
		x := margin + (p[0]-bound.Min[0])/dx*innerW
		y := margin + (bound.Max[1]-p[1])/dy*innerH
		return x, y
	}

	for _, f := range fc.Features {
		fill := color.NRGBA{R: 0xBD, G: 0xBD, B: 0xBD, A: 0xFF}
		if score, ok := asFloat(f.Properties["overall_index"]); ok {
			fill = scoreColor(score)
		}
		switch geom := f.Geometry.(type) {
		case orb.Polygon:
			drawPolygon(dc, geom, project, fill)
		case orb.MultiPolygon:
			for _, poly := range geom {
				drawPolygon(dc, poly, project, fill)
			}
		}
	}

	drawLegend(dc, float64(height)-legendBar+10)

	if err := os.MkdirAll(m.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("render map: %w", err)
	}
	path := filepath.Join(m.outputDir, MapFileName)
	if err := dc.SavePNG(path); err != nil {
		return "", fmt.Errorf("render map: %w", err)
	}
	return path, nil
}

func drawPolygon(dc *gg.Context, poly orb.Polygon, project func(orb.Point) (float64, float64), fill color.NRGBA) {
	for _, ring := range poly {
		for i, p := range ring {
			x, y := project(p)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.ClosePath()
	}
	dc.SetColor(fill)
	dc.FillPreserve()
	dc.SetColor(color.NRGBA{R: 0x42, G: 0x42, B: 0x42, A: 0xFF})
	dc.SetLineWidth(1)
	dc.Stroke()
}

func drawLegend(dc *gg.Context, y float64) {
	const barW, barH = 300.0, 14.0
	x0 := margin
	for i := 0.0; i < barW; i++ {
		dc.SetColor(scoreColor(i / barW * 100))
		dc.DrawRectangle(x0+i, y, 1, barH)
		dc.Fill()
	}
	dc.SetColor(color.Black)
	dc.DrawString("0", x0, y+barH+14)
	dc.DrawString("50", x0+barW/2-7, y+barH+14)
	dc.DrawString("100", x0+barW-14, y+barH+14)
	dc.DrawString("overall vulnerability", x0+barW+16, y+barH)
}

// scoreColor maps [0,100] onto a blue-yellow-red ramp.
func scoreColor(score float64) color.NRGBA {
	score = math.Max(0, math.Min(100, score))
	low := color.NRGBA{R: 0x2C, G: 0x7B, B: 0xB6, A: 0xFF}  // blue
	mid := color.NRGBA{R: 0xFF, G: 0xFF, B: 0xBF, A: 0xFF}  // pale yellow
	high := color.NRGBA{R: 0xD7, G: 0x19, B: 0x1C, A: 0xFF} // red
	if score < 50 {
		return lerp(low, mid, score/50)
	}
	return lerp(mid, high, (score-50)/50)
}

func lerp(a, b color.NRGBA, t float64) color.NRGBA {
	return color.NRGBA{
		R: uint8(float64(a.R) + (float64(b.R)-float64(a.R))*t),
		G: uint8(float64(a.G) + (float64(b.G)-float64(a.G))*t),
		B: uint8(float64(a.B) + (float64(b.B)-float64(a.B))*t),
		A: 0xFF,
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
