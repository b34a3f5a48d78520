// Command validate performs integrity checks across the artifacts one scoring
// run writes: both category CSVs, the overall CSV, and the joined GeoJSON. It
// verifies schema and value ranges, the blend arithmetic, cross-artifact
// consistency, the 1:1 geometry join, and flag coherence.
//
// Usage:
//
//	go run ./cmd/validate -output-dir outputs
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	orbjson "github.com/paulmach/orb/geojson"

	"github.com/wardscope/flood-vulnerability-etl/internal/adapter/geojson"
	"github.com/wardscope/flood-vulnerability-etl/internal/adapter/tabular"
	"github.com/wardscope/flood-vulnerability-etl/internal/domain"
)

const blendTolerance = 1e-6

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	outputDir := flag.String("output-dir", "outputs", "directory containing the run artifacts")
	flag.Parse()

	if code := run(*outputDir); code != 0 {
		os.Exit(code)
	}
}

func run(outputDir string) int {
	// ── Load all artifacts ──
	fmt.Println("=== Vulnerability Artifact Validation ===")
	fmt.Println()

	physical, err := loadCSV(filepath.Join(outputDir, tabular.CategoryFileName(domain.CategoryPhysical)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load physical CSV: %v\n", err)
		return 1
	}
	socio, err := loadCSV(filepath.Join(outputDir, tabular.CategoryFileName(domain.CategorySocioeconomic)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load socioeconomic CSV: %v\n", err)
		return 1
	}
	overall, err := tabular.ReadOverall(filepath.Join(outputDir, tabular.OverallFileName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load overall CSV: %v\n", err)
		return 1
	}
	fc, err := loadGeoJSON(filepath.Join(outputDir, geojson.JoinedFileName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load joined GeoJSON: %v\n", err)
		return 1
	}

	// ── Run validation phases ──
	phases := []*phase{
		validateCategoryTables(physical, socio),
		validateBlend(overall),
		validateCategoryParity(overall, physical, socio),
		validateJoin(overall, fc),
		validateFlags(overall, physical),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d physical, %d socioeconomic, %d overall, %d features\n",
		len(physical), len(socio), len(overall), len(fc.Features))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// csvRow is a parsed CSV row with field values keyed by header name.
type csvRow struct {
	lineNum int
	fields  map[string]string
}

func loadCSV(path string) ([]csvRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) < 2 {
		return nil, fmt.Errorf("no data rows in %s", path)
	}

	header := all[0]
	var rows []csvRow
	for i, row := range all[1:] {
		fields := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(row) {
				fields[h] = strings.TrimSpace(row[j])
			}
		}
		rows = append(rows, csvRow{lineNum: i + 2, fields: fields})
	}
	return rows, nil
}

func loadGeoJSON(path string) (*orbjson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return orbjson.UnmarshalFeatureCollection(data)
}

// ── Phase 1: Category Tables ──
// Validates schema, identifier uniqueness, and value ranges in both CSVs.

func validateCategoryTables(physical, socio []csvRow) *phase {
	p := &phase{name: "Phase 1: Category Tables (schema, ranges)"}
	checkCategoryTable(p, domain.CategoryPhysical, physical)
	checkCategoryTable(p, domain.CategorySocioeconomic, socio)
	return p
}

func checkCategoryTable(p *phase, category string, rows []csvRow) {
	indexCol := category + "_index"
	seen := map[string]int{}

	for _, row := range rows {
		id := row.fields["zone_id"]
		if id == "" {
			p.errorf("%s line %d: empty zone_id", category, row.lineNum)
			continue
		}
		if prev, dup := seen[id]; dup {
			p.errorf("%s line %d: duplicate zone_id %q (also line %d)", category, row.lineNum, id, prev)
		}
		seen[id] = row.lineNum

		idx, ok := parseFloat(row, indexCol)
		if !ok {
			p.errorf("%s line %d: missing or bad %s", category, row.lineNum, indexCol)
		} else if idx < 0 || idx > 100 {
			p.errorf("%s line %d: %s %g outside [0,100]", category, row.lineNum, indexCol, idx)
		}

		w, ok := parseFloat(row, "weight_used")
		if !ok {
			p.errorf("%s line %d: missing or bad weight_used", category, row.lineNum)
		} else if w <= 0 || w > 1 {
			p.errorf("%s line %d: weight_used %g outside (0,1]", category, row.lineNum, w)
		}

		if d := row.fields["degraded"]; d != "true" && d != "false" {
			p.errorf("%s line %d: degraded %q is not a bool", category, row.lineNum, d)
		}
	}
}

// ── Phase 2: Blend Arithmetic ──
// The overall index must be the 0.6/0.4 blend of the category columns, and a
// fallback flag must mean the neutral substitute was used.

func validateBlend(overall []domain.OverallIndex) *phase {
	p := &phase{name: "Phase 2: Blend Arithmetic (0.6/0.4)"}

	for _, row := range overall {
		want := domain.PhysicalBlendWeight*row.Physical + domain.SocioeconomicBlendWeight*row.Socioeconomic
		if math.Abs(row.Overall-want) > blendTolerance {
			p.errorf("%s: overall %g != 0.6*%g + 0.4*%g", row.ZoneID, row.Overall, row.Physical, row.Socioeconomic)
		}
		for col, v := range map[string]float64{"physical": row.Physical, "socioeconomic": row.Socioeconomic, "overall": row.Overall} {
			if v < 0 || v > 100 {
				p.errorf("%s: %s index %g outside [0,100]", row.ZoneID, col, v)
			}
		}

		checkFallback(p, row, domain.FlagPhysicalFallback, row.Physical, row.PhysicalWeightUsed, "physical")
		checkFallback(p, row, domain.FlagSocioeconomicFallback, row.Socioeconomic, row.SocioeconomicWeightUsed, "socioeconomic")
	}
	return p
}

func checkFallback(p *phase, row domain.OverallIndex, flag string, index, weight float64, label string) {
	if row.HasFlag(flag) {
		if index != domain.NeutralCategoryIndex {
			p.errorf("%s: %s flag set but index is %g, not the neutral %g", row.ZoneID, flag, index, domain.NeutralCategoryIndex)
		}
		if weight != 0 {
			p.errorf("%s: %s flag set but weight_used is %g", row.ZoneID, flag, weight)
		}
		return
	}
	if weight <= 0 || weight > 1 {
		p.errorf("%s: %s_weight_used %g outside (0,1]", row.ZoneID, label, weight)
	}
}

// ── Phase 3: Category Parity ──
// Index values in the overall CSV must match the per-category CSVs.

func validateCategoryParity(overall []domain.OverallIndex, physical, socio []csvRow) *phase {
	p := &phase{name: "Phase 3: Category Parity (overall vs tables)"}

	checkParity(p, overall, physical, domain.CategoryPhysical, domain.FlagPhysicalFallback,
		func(r domain.OverallIndex) float64 { return r.Physical })
	checkParity(p, overall, socio, domain.CategorySocioeconomic, domain.FlagSocioeconomicFallback,
		func(r domain.OverallIndex) float64 { return r.Socioeconomic })
	return p
}

func checkParity(p *phase, overall []domain.OverallIndex, table []csvRow, category, fallbackFlag string, pick func(domain.OverallIndex) float64) {
	indexCol := category + "_index"
	byID := map[string]float64{}
	for _, row := range table {
		if v, ok := parseFloat(row, indexCol); ok {
			byID[row.fields["zone_id"]] = v
		}
	}

	for _, row := range overall {
		if row.HasFlag(fallbackFlag) {
			if _, present := byID[row.ZoneID]; present {
				p.errorf("%s: flagged %s but zone exists in the %s table", row.ZoneID, fallbackFlag, category)
			}
			continue
		}
		v, present := byID[row.ZoneID]
		if !present {
			p.errorf("%s: missing from the %s table without a fallback flag", row.ZoneID, category)
			continue
		}
		if math.Abs(v-pick(row)) > blendTolerance {
			p.errorf("%s: %s index differs: table %g, overall %g", row.ZoneID, category, v, pick(row))
		}
	}
}

// ── Phase 4: Geometry Join ──
// The joined GeoJSON must carry exactly one feature per overall row.

func validateJoin(overall []domain.OverallIndex, fc *orbjson.FeatureCollection) *phase {
	p := &phase{name: "Phase 4: Geometry Join (1:1)"}

	if len(fc.Features) != len(overall) {
		p.errorf("feature count %d != overall row count %d", len(fc.Features), len(overall))
	}

	featureScores := map[string]float64{}
	for i, f := range fc.Features {
		id, _ := f.Properties["zone_id"].(string)
		if id == "" {
			p.errorf("feature %d: missing zone_id property", i)
			continue
		}
		if _, dup := featureScores[id]; dup {
			p.errorf("feature %d: duplicate zone_id %q", i, id)
			continue
		}
		if f.Geometry == nil {
			p.errorf("feature %q: nil geometry", id)
		}
		score, ok := f.Properties["overall_index"].(float64)
		if !ok {
			p.errorf("feature %q: missing overall_index property", id)
			continue
		}
		featureScores[id] = score
	}

	for _, row := range overall {
		score, present := featureScores[row.ZoneID]
		if !present {
			p.errorf("%s: no feature in joined GeoJSON", row.ZoneID)
			continue
		}
		if math.Abs(score-row.Overall) > blendTolerance {
			p.errorf("%s: feature overall_index %g != CSV %g", row.ZoneID, score, row.Overall)
		}
	}
	return p
}

// ── Phase 5: Flag Consistency ──
// Degradation flags must agree with the physical table's degraded column, and
// no unknown flags may appear.

func validateFlags(overall []domain.OverallIndex, physical []csvRow) *phase {
	p := &phase{name: "Phase 5: Flag Consistency"}

	known := map[string]bool{
		domain.FlagDegradedExtraction:    true,
		domain.FlagPhysicalFallback:      true,
		domain.FlagSocioeconomicFallback: true,
	}

	degraded := map[string]bool{}
	for _, row := range physical {
		degraded[row.fields["zone_id"]] = row.fields["degraded"] == "true"
	}

	for _, row := range overall {
		for _, f := range row.Flags {
			if !known[f] {
				p.errorf("%s: unknown flag %q", row.ZoneID, f)
			}
		}

		if row.HasFlag(domain.FlagPhysicalFallback) {
			continue // no physical row to compare against
		}
		if want := degraded[row.ZoneID]; want != row.HasFlag(domain.FlagDegradedExtraction) {
			p.errorf("%s: degraded=%v in physical table but degraded_extraction flag is %v",
				row.ZoneID, want, row.HasFlag(domain.FlagDegradedExtraction))
		}
	}
	return p
}

// ── Helpers ──

func parseFloat(row csvRow, col string) (float64, bool) {
	raw, ok := row.fields[col]
	if !ok || raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
