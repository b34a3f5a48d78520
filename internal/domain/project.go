package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// NormalizeCRS canonicalizes the coordinate-reference names the pipeline
// accepts. Unknown names pass through upper-cased so mismatches stay visible
// in errors and logs.
func NormalizeCRS(s string) string {
	c := strings.ToUpper(strings.TrimSpace(s))
	switch c {
	case "", "WGS84", "WGS 84", "CRS84", "OGC:CRS84", "URN:OGC:DEF:CRS:OGC:1.3:CRS84", "4326":
		return "EPSG:4326"
	case "3857", "WEB MERCATOR", "WEBMERCATOR":
		return "EPSG:3857"
	}
	if n, err := strconv.Atoi(c); err == nil {
		return fmt.Sprintf("EPSG:%d", n)
	}
	return c
}

// TransformGeometry reprojects g between two coordinate references, pivoting
// through WGS84. Identity when the references agree. Supported: EPSG:4326,
// EPSG:3857, and UTM zones EPSG:326xx / EPSG:327xx.
func TransformGeometry(g orb.Geometry, from, to string) (orb.Geometry, error) {
	from, to = NormalizeCRS(from), NormalizeCRS(to)
	if from == to {
		return g, nil
	}
	fromProj, err := lookupProjection(from)
	if err != nil {
		return nil, err
	}
	toProj, err := lookupProjection(to)
	if err != nil {
		return nil, err
	}
	g = orb.Clone(g)
	if fromProj.inverse != nil {
		g = project.Geometry(g, fromProj.inverse)
	}
	if toProj.forward != nil {
		g = project.Geometry(g, toProj.forward)
	}
	return g, nil
}

// crsProjection maps a CRS to and from WGS84 lon/lat. Nil funcs mean identity.
type crsProjection struct {
	forward func(orb.Point) orb.Point // WGS84 → CRS
	inverse func(orb.Point) orb.Point // CRS → WGS84
}

func lookupProjection(crs string) (crsProjection, error) {
	switch {
	case crs == "EPSG:4326":
		return crsProjection{}, nil
	case crs == "EPSG:3857":
		return crsProjection{forward: project.WGS84.ToMercator, inverse: project.Mercator.ToWGS84}, nil
	case strings.HasPrefix(crs, "EPSG:326") || strings.HasPrefix(crs, "EPSG:327"):
		code, err := strconv.Atoi(strings.TrimPrefix(crs, "EPSG:"))
		if err != nil || code%100 < 1 || code%100 > 60 {
			return crsProjection{}, fmt.Errorf("unsupported coordinate reference %q", crs)
		}
		zone := code % 100
		south := code/100 == 327
		return crsProjection{
			forward: func(p orb.Point) orb.Point { return utmForward(p, zone, south) },
			inverse: func(p orb.Point) orb.Point { return utmInverse(p, zone, south) },
		}, nil
	default:
		return crsProjection{}, fmt.Errorf("unsupported coordinate reference %q", crs)
	}
}

// WGS84 ellipsoid and UTM constants.
const (
	wgs84A        = 6378137.0
	wgs84F        = 1 / 298.257223563
	utmScale      = 0.9996
	utmFalseEast  = 500000.0
	utmFalseNorth = 10000000.0
)

// utmForward converts a WGS84 lon/lat point to UTM easting/northing using the
// standard series expansion (Snyder, Map Projections: A Working Manual).
func utmForward(p orb.Point, zone int, south bool) orb.Point {
	e2 := wgs84F * (2 - wgs84F)
	ep2 := e2 / (1 - e2)
	lon := p[0] * math.Pi / 180
	lat := p[1] * math.Pi / 180
	lon0 := float64(zone*6-183) * math.Pi / 180

	sinLat, cosLat := math.Sincos(lat)
	n := wgs84A / math.Sqrt(1-e2*sinLat*sinLat)
	t := math.Tan(lat) * math.Tan(lat)
	c := ep2 * cosLat * cosLat
	a := cosLat * (lon - lon0)
	m := meridionalArc(lat, e2)

	a2, a3, a4, a5, a6 := a*a, a*a*a, a*a*a*a, a*a*a*a*a, a*a*a*a*a*a
	x := utmScale*n*(a+(1-t+c)*a3/6+(5-18*t+t*t+72*c-58*ep2)*a5/120) + utmFalseEast
	y := utmScale * (m + n*math.Tan(lat)*(a2/2+(5-t+9*c+4*c*c)*a4/24+(61-58*t+t*t+600*c-330*ep2)*a6/720))
	if south {
		y += utmFalseNorth
	}
	return orb.Point{x, y}
}

// utmInverse converts a UTM easting/northing point back to WGS84 lon/lat.
func utmInverse(p orb.Point, zone int, south bool) orb.Point {
	e2 := wgs84F * (2 - wgs84F)
	ep2 := e2 / (1 - e2)
	x := p[0] - utmFalseEast
	y := p[1]
	if south {
		y -= utmFalseNorth
	}
	lon0 := float64(zone*6-183) * math.Pi / 180

	m := y / utmScale
	mu := m / (wgs84A * (1 - e2/4 - 3*e2*e2/64 - 5*e2*e2*e2/256))
	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))
	phi1 := mu +
		(3*e1/2-27*e1*e1*e1/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*e1*e1*e1*e1/32)*math.Sin(4*mu) +
		(151*e1*e1*e1/96)*math.Sin(6*mu) +
		(1097*e1*e1*e1*e1/512)*math.Sin(8*mu)

	sinPhi1, cosPhi1 := math.Sincos(phi1)
	c1 := ep2 * cosPhi1 * cosPhi1
	t1 := math.Tan(phi1) * math.Tan(phi1)
	n1 := wgs84A / math.Sqrt(1-e2*sinPhi1*sinPhi1)
	r1 := wgs84A * (1 - e2) / math.Pow(1-e2*sinPhi1*sinPhi1, 1.5)
	d := x / (n1 * utmScale)

	d2, d3, d4, d5, d6 := d*d, d*d*d, d*d*d*d, d*d*d*d*d, d*d*d*d*d*d
	lat := phi1 - (n1*math.Tan(phi1)/r1)*
		(d2/2-(5+3*t1+10*c1-4*c1*c1-9*ep2)*d4/24+
			(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*d6/720)
	lon := lon0 + (d-(1+2*t1+c1)*d3/6+
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*d5/120)/cosPhi1

	return orb.Point{lon * 180 / math.Pi, lat * 180 / math.Pi}
}

// meridionalArc returns the ellipsoidal arc length from the equator to lat.
func meridionalArc(lat, e2 float64) float64 {
	e4 := e2 * e2
	e6 := e4 * e2
	return wgs84A * ((1-e2/4-3*e4/64-5*e6/256)*lat -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*lat) +
		(15*e4/256+45*e6/1024)*math.Sin(4*lat) -
		(35*e6/3072)*math.Sin(6*lat))
}
