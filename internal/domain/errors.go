package domain

import (
	"fmt"
	"strings"
)

// MissingInputError reports an absent required source. It aborts the category
// it belongs to but leaves the other category free to proceed.
type MissingInputError struct {
	Source   string // path or identifier of the missing input
	Category string // CategoryPhysical or CategorySocioeconomic
	Err      error
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing %s input %s: %v", e.Category, e.Source, e.Err)
}

func (e *MissingInputError) Unwrap() error { return e.Err }

// DegradedZoneWarning marks a zone whose raster extraction produced no valid
// samples. The zone is still emitted with sentinel statistics; the warning
// carries the reason for diagnostics.
type DegradedZoneWarning struct {
	ZoneID string
	Reason string
}

func (e *DegradedZoneWarning) Error() string {
	return fmt.Sprintf("zone %s degraded: %s", e.ZoneID, e.Reason)
}

// JoinMismatchError reports identifiers that broke the 1:1 invariant between
// the overall index table and the zone geometry collection.
type JoinMismatchError struct {
	UnmatchedIndex    []string // index rows with no geometry
	UnmatchedGeometry []string // geometries with no index row
	Duplicated        []string // identifiers appearing more than once on a side
}

func (e *JoinMismatchError) Error() string {
	var parts []string
	if len(e.UnmatchedIndex) > 0 {
		parts = append(parts, fmt.Sprintf("index rows without geometry: %s", strings.Join(e.UnmatchedIndex, ", ")))
	}
	if len(e.UnmatchedGeometry) > 0 {
		parts = append(parts, fmt.Sprintf("geometries without index row: %s", strings.Join(e.UnmatchedGeometry, ", ")))
	}
	if len(e.Duplicated) > 0 {
		parts = append(parts, fmt.Sprintf("duplicated identifiers: %s", strings.Join(e.Duplicated, ", ")))
	}
	return "zone join mismatch: " + strings.Join(parts, "; ")
}
