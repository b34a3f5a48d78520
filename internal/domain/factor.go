package domain

import (
	"fmt"
	"sort"
)

// Direction states how a raw factor maps onto vulnerability. Ascending means
// higher raw values score as more vulnerable; descending inverts.
type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == Ascending || d == Descending
}

// FactorSpec declares one scored factor: where its raw values come from, how
// they map onto vulnerability, and how much they weigh. Optional factors drop
// out silently when the source table lacks their column; required factors
// also drop out (weights renormalize either way) but their absence is
// reported so a run cannot lose a core factor unnoticed.
type FactorSpec struct {
	Name      string    `yaml:"name"`
	Column    string    `yaml:"column,omitempty"` // source column; defaults to Name
	Direction Direction `yaml:"direction"`
	Weight    float64   `yaml:"weight"`
	Optional  bool      `yaml:"optional,omitempty"`
}

// SourceColumn returns the table column the factor reads from.
func (f FactorSpec) SourceColumn() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// CategorySpec is the fixed factor table for one index category.
type CategorySpec struct {
	Name    string       `yaml:"name"`
	Factors []FactorSpec `yaml:"factors"`
}

// Validate checks the declarations once at construction time: unique names,
// known directions, non-negative weights, and a usable total weight mass.
func (c CategorySpec) Validate() error {
	if c.Name != CategoryPhysical && c.Name != CategorySocioeconomic {
		return fmt.Errorf("unknown category %q", c.Name)
	}
	if len(c.Factors) == 0 {
		return fmt.Errorf("category %s declares no factors", c.Name)
	}
	seen := make(map[string]bool, len(c.Factors))
	var mass float64
	for _, f := range c.Factors {
		if f.Name == "" {
			return fmt.Errorf("category %s has a factor without a name", c.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("category %s declares factor %q twice", c.Name, f.Name)
		}
		seen[f.Name] = true
		if !f.Direction.Valid() {
			return fmt.Errorf("factor %s has unknown direction %q", f.Name, f.Direction)
		}
		if f.Weight < 0 {
			return fmt.Errorf("factor %s has negative weight %g", f.Name, f.Weight)
		}
		mass += f.Weight
	}
	if mass <= 0 {
		return fmt.Errorf("category %s has zero total weight", c.Name)
	}
	return nil
}

// WeightMass returns the sum of all declared weights.
func (c CategorySpec) WeightMass() float64 {
	var mass float64
	for _, f := range c.Factors {
		mass += f.Weight
	}
	return mass
}

// Weights returns the declared factor-name → weight table.
func (c CategorySpec) Weights() map[string]float64 {
	w := make(map[string]float64, len(c.Factors))
	for _, f := range c.Factors {
		w[f.Name] = f.Weight
	}
	return w
}

// DefaultPhysicalSpec returns the terrain factor table documented in the
// package comment.
func DefaultPhysicalSpec() CategorySpec {
	return CategorySpec{
		Name: CategoryPhysical,
		Factors: []FactorSpec{
			{Name: "elevation_mean", Direction: Descending, Weight: 0.3},
			{Name: "elevation_min", Direction: Descending, Weight: 0.3},
			{Name: "pct_below_5m", Direction: Ascending, Weight: 0.25},
			{Name: "pct_below_10m", Direction: Ascending, Weight: 0.15},
		},
	}
}

// DefaultSocioeconomicSpec returns the census factor table documented in the
// package comment. concrete_building_pct is optional: not every census export
// carries building-material shares.
func DefaultSocioeconomicSpec() CategorySpec {
	return CategorySpec{
		Name: CategorySocioeconomic,
		Factors: []FactorSpec{
			{Name: "population_density", Direction: Ascending, Weight: 0.25},
			{Name: "poverty_index", Direction: Ascending, Weight: 0.25},
			{Name: "vulnerable_population_pct", Direction: Ascending, Weight: 0.2},
			{Name: "slum_household_pct", Direction: Ascending, Weight: 0.2},
			{Name: "concrete_building_pct", Direction: Descending, Weight: 0.1, Optional: true},
		},
	}
}

// FactorValue is one observation of a named factor for one zone. Present is
// false when the source had no value; the pair is kept so missing data stays
// explicit instead of vanishing from the table.
type FactorValue struct {
	Value   float64
	Present bool
}

// FactorTable holds raw factor values with exactly one cell per (zone, factor)
// pair. Zones keep their insertion order; factor columns are tracked so a
// fully absent factor is distinguishable from one that is merely sparse.
type FactorTable struct {
	Category string

	zoneIDs []string
	zoneIdx map[string]int
	names   map[string]string // zone id → display name
	factors []string
	cells   map[string]map[string]FactorValue
}

// NewFactorTable creates an empty table for one category.
func NewFactorTable(category string) *FactorTable {
	return &FactorTable{
		Category: category,
		zoneIdx:  make(map[string]int),
		names:    make(map[string]string),
		cells:    make(map[string]map[string]FactorValue),
	}
}

// AddZone registers a zone row. Adding an existing zone only updates its name.
func (t *FactorTable) AddZone(zoneID, name string) {
	zoneID = CanonicalZoneID(zoneID)
	if _, ok := t.zoneIdx[zoneID]; !ok {
		t.zoneIdx[zoneID] = len(t.zoneIDs)
		t.zoneIDs = append(t.zoneIDs, zoneID)
		t.cells[zoneID] = make(map[string]FactorValue)
	}
	if name != "" {
		t.names[zoneID] = name
	}
}

// Set records a present value for (zone, factor), registering both as needed.
func (t *FactorTable) Set(zoneID, factor string, v float64) {
	t.put(zoneID, factor, FactorValue{Value: v, Present: true})
}

// SetMissing records an explicitly absent value for (zone, factor).
func (t *FactorTable) SetMissing(zoneID, factor string) {
	t.put(zoneID, factor, FactorValue{})
}

func (t *FactorTable) put(zoneID, factor string, fv FactorValue) {
	t.AddZone(zoneID, "")
	zoneID = CanonicalZoneID(zoneID)
	if _, ok := t.cells[zoneID][factor]; !ok {
		t.registerFactor(factor)
	}
	t.cells[zoneID][factor] = fv
}

func (t *FactorTable) registerFactor(factor string) {
	for _, f := range t.factors {
		if f == factor {
			return
		}
	}
	t.factors = append(t.factors, factor)
}

// Get returns the value for (zone, factor); ok is false when absent.
func (t *FactorTable) Get(zoneID, factor string) (float64, bool) {
	fv, ok := t.cells[CanonicalZoneID(zoneID)][factor]
	if !ok || !fv.Present {
		return 0, false
	}
	return fv.Value, true
}

// ZoneIDs returns zone identifiers in insertion order.
func (t *FactorTable) ZoneIDs() []string { return t.zoneIDs }

// ZoneName returns the display name recorded for a zone, if any.
func (t *FactorTable) ZoneName(zoneID string) string {
	return t.names[CanonicalZoneID(zoneID)]
}

// Factors returns the factor columns in first-seen order.
func (t *FactorTable) Factors() []string { return t.factors }

// Column returns the present values of one factor keyed by zone id.
func (t *FactorTable) Column(factor string) map[string]float64 {
	col := make(map[string]float64, len(t.zoneIDs))
	for _, id := range t.zoneIDs {
		if fv, ok := t.cells[id][factor]; ok && fv.Present {
			col[id] = fv.Value
		}
	}
	return col
}

// SortedZoneIDs returns zone identifiers in lexical order, for deterministic
// artifact output.
func (t *FactorTable) SortedZoneIDs() []string {
	ids := make([]string, len(t.zoneIDs))
	copy(ids, t.zoneIDs)
	sort.Strings(ids)
	return ids
}

// CensusRow is one ward row from the socioeconomic source table.
type CensusRow struct {
	ZoneID   string
	ZoneName string
	Values   map[string]float64 // column → value, present columns only
}

// CensusTable is the raw socioeconomic source: its column set plus one row
// per ward.
type CensusTable struct {
	Columns []string
	Rows    []CensusRow
}

// HasColumn reports whether the source carried the named column.
func (t *CensusTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}
