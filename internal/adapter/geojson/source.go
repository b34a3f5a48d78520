// Package geojson loads ward boundaries from GeoJSON files and writes the
// joined vulnerability feature collection back out.
package geojson

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	orbjson "github.com/paulmach/orb/geojson"

	"github.com/wardscope/flood-vulnerability-etl/internal/domain"
)

// Properties consulted for the zone identifier and display name, in order.
var (
	idProperties   = []string{"zone_id", "ward_id", "id"}
	nameProperties = []string{"zone_name", "ward_name", "name"}
)

// Source loads zone polygons from a GeoJSON file. Per RFC 7946 the
// coordinates are WGS84 unless the caller says otherwise.
type Source struct {
	path string
	crs  string
}

// NewSource returns a boundary source for the file at path.
func NewSource(path, crs string) *Source {
	return &Source{path: path, crs: crs}
}

// Zones reads the feature collection and builds the zone set. Features
// without an identifier property get sequential synthetic ids; a missing file
// is a MissingInputError for the physical category since zonal extraction
// cannot run without boundaries.
func (s *Source) Zones(ctx context.Context) (*domain.ZoneSet, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &domain.MissingInputError{Source: s.path, Category: domain.CategoryPhysical, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("open boundaries: %w", err)
	}

	fc, err := orbjson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}

	crs := domain.NormalizeCRS(s.crs)
	zones := make([]domain.Zone, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			zones = append(zones, domain.Zone{})
			continue
		}
		zones = append(zones, domain.Zone{
			ID:       idProperty(f.Properties),
			Name:     nameProperty(f.Properties),
			Geometry: f.Geometry,
			AreaKm2:  areaKm2(f.Geometry, crs),
		})
	}

	set, err := domain.NewZoneSet(crs, zones)
	if err != nil {
		return nil, fmt.Errorf("build zone set from %s: %w", s.path, err)
	}
	return set, nil
}

// idProperty coerces the identifier through the canonical form so "7", 7 and
// 7.0 all join against the same key later.
func idProperty(props orbjson.Properties) string {
	for _, key := range idProperties {
		if v, ok := props[key]; ok {
			if id := domain.CanonicalZoneID(v); id != "" {
				return id
			}
		}
	}
	return ""
}

func nameProperty(props orbjson.Properties) string {
	for _, key := range nameProperties {
		if s, ok := props[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// areaKm2 measures the polygon footprint. Geographic coordinates use the
// spherical formula; projected coordinates are assumed to be in meters.
func areaKm2(g orb.Geometry, crs string) float64 {
	if crs == "EPSG:4326" {
		return geo.Area(g) / 1e6
	}
	return planar.Area(g) / 1e6
}
