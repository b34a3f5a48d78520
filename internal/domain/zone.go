package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Category names used across indices, flags, and artifacts.
const (
	CategoryPhysical      = "physical"
	CategorySocioeconomic = "socioeconomic"
)

// Zone is one administrative ward: a unique textual identifier, an optional
// display name, and a polygon geometry in the collection's CRS.
type Zone struct {
	ID       string
	Name     string
	Geometry orb.Geometry // orb.Polygon or orb.MultiPolygon
	AreaKm2  float64      // geodesic area, filled by the boundary adapter
}

// ZoneSet is a collection of zones with unique identifiers and a shared CRS.
type ZoneSet struct {
	crs   string
	zones []Zone
	byID  map[string]int
}

// NewZoneSet builds a ZoneSet, coercing identifiers to canonical text and
// synthesizing sequential ones (W01, W02, …) for zones that arrive without.
// Duplicate identifiers are rejected.
func NewZoneSet(crs string, zones []Zone) (*ZoneSet, error) {
	s := &ZoneSet{
		crs:   NormalizeCRS(crs),
		zones: make([]Zone, len(zones)),
		byID:  make(map[string]int, len(zones)),
	}
	for i, z := range zones {
		z.ID = CanonicalZoneID(z.ID)
		if z.ID == "" {
			z.ID = SyntheticZoneID(i)
		}
		if prev, dup := s.byID[z.ID]; dup {
			return nil, fmt.Errorf("duplicate zone identifier %q (positions %d and %d)", z.ID, prev, i)
		}
		s.byID[z.ID] = i
		s.zones[i] = z
	}
	return s, nil
}

// CRS returns the canonical coordinate reference of the collection.
func (s *ZoneSet) CRS() string { return s.crs }

// Zones returns the zones in their source order.
func (s *ZoneSet) Zones() []Zone { return s.zones }

// Len returns the number of zones.
func (s *ZoneSet) Len() int { return len(s.zones) }

// ByID looks a zone up by canonical identifier.
func (s *ZoneSet) ByID(id string) (Zone, bool) {
	i, ok := s.byID[CanonicalZoneID(id)]
	if !ok {
		return Zone{}, false
	}
	return s.zones[i], true
}

// SyntheticZoneID returns the deterministic identifier for the zone at
// position i when the source carries none: W01, W02, ….
func SyntheticZoneID(i int) string {
	return fmt.Sprintf("W%02d", i+1)
}

// CanonicalZoneID coerces a zone identifier of any source type to one textual
// form so joins across raster, census, and geometry sources cannot miss on
// type alone. Integral numbers lose their fraction marker ("7.0" and 7 both
// become "7"); strings are trimmed.
func CanonicalZoneID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(id)
		// Census exports sometimes round-trip identifiers through floats.
		if f, err := strconv.ParseFloat(s, 64); err == nil && strings.Contains(s, ".") {
			if f == math.Trunc(f) && !math.IsInf(f, 0) {
				return strconv.FormatFloat(f, 'f', -1, 64)
			}
		}
		return s
	case float64:
		if f := id; f == math.Trunc(f) && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return strconv.FormatFloat(id, 'g', -1, 64)
	case float32:
		return CanonicalZoneID(float64(id))
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", id))
	}
}
