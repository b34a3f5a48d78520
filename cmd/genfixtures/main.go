// Command genfixtures writes the deterministic synthetic inputs the scoring
// pipeline consumes: an ESRI ASCII elevation grid, ward boundaries as GeoJSON,
// and a ward census CSV. The same seed always reproduces the same bytes, so
// the fixtures can be checked in and diffed.
//
// Usage:
//
//	go run ./cmd/genfixtures -out data/raw -seed 42
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/paulmach/orb/geojson"

	"github.com/wardscope/flood-vulnerability-etl/internal/adapter/asciigrid"
	"github.com/wardscope/flood-vulnerability-etl/internal/domain"
	"github.com/wardscope/flood-vulnerability-etl/internal/synth"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "data/raw", "directory to write fixture inputs under")
	seed := flag.Int64("seed", synth.DefaultSeed, "random seed")
	flag.Parse()

	surface := synth.Surface(*seed)
	zones, err := synth.Wards()
	if err != nil {
		return fmt.Errorf("generate wards: %w", err)
	}
	census := synth.Census(zones, *seed)

	demPath := filepath.Join(*outDir, "dem", "mumbai_dem.asc")
	if err := writeDEM(demPath, surface); err != nil {
		return fmt.Errorf("writing DEM: %w", err)
	}
	log.Printf("wrote DEM: %s (%dx%d cells)", demPath, surface.Rows(), surface.Cols())

	wardsPath := filepath.Join(*outDir, "boundaries", "mumbai_wards.geojson")
	if err := writeWards(wardsPath, zones); err != nil {
		return fmt.Errorf("writing wards: %w", err)
	}
	log.Printf("wrote wards: %s (%d zones)", wardsPath, zones.Len())

	censusPath := filepath.Join(*outDir, "census", "ward_demographics.csv")
	if err := writeCensus(censusPath, census); err != nil {
		return fmt.Errorf("writing census: %w", err)
	}
	log.Printf("wrote census: %s (%d rows)", censusPath, len(census.Rows))

	printStats(census)
	return nil
}

func writeDEM(path string, s *domain.ElevationSurface) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := asciigrid.Encode(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeWards(path string, zones *domain.ZoneSet) error {
	fc := geojson.NewFeatureCollection()
	for _, z := range zones.Zones() {
		f := geojson.NewFeature(z.Geometry)
		f.Properties["ward_id"] = z.ID
		f.Properties["ward_name"] = z.Name
		f.Properties["area_sqkm"] = math.Round(z.AreaKm2*100) / 100
		fc.Append(f)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func writeCensus(path string, table *domain.CensusTable) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"ward_id", "ward_name"}, table.Columns...)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range table.Rows {
		rec := make([]string, 0, len(header))
		rec = append(rec, row.ZoneID, row.ZoneName)
		for _, col := range table.Columns {
			rec = append(rec, strconv.FormatFloat(row.Values[col], 'f', -1, 64))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func printStats(table *domain.CensusTable) {
	var minPoverty, maxPoverty float64
	for i, row := range table.Rows {
		p := row.Values["poverty_index"]
		if i == 0 || p < minPoverty {
			minPoverty = p
		}
		if p > maxPoverty {
			maxPoverty = p
		}
	}
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Wards: %d\n", len(table.Rows))
	fmt.Printf("Poverty index range: %.1f - %.1f\n", minPoverty, maxPoverty)
	if len(table.Rows) > 0 {
		first := table.Rows[0]
		fmt.Printf("First ward: %s (%s), density %.1f\n",
			first.ZoneID, first.ZoneName, first.Values["population_density"])
	}
}
