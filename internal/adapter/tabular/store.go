package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wardscope/flood-vulnerability-etl/internal/domain"
)

// OverallFileName is the blended-index artifact written by the store.
const OverallFileName = "overall_vulnerability.csv"

// CategoryFileName returns the artifact name for one category table.
func CategoryFileName(category string) string {
	return category + "_vulnerability.csv"
}

// Store writes the CSV artifacts into an output directory. Rows are ordered
// by zone id and floats use shortest round-trip formatting, so repeated runs
// over the same inputs produce byte-identical files.
type Store struct {
	dir string
}

// NewStore returns a store writing into dir, creating it on first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// WriteCategory writes one category's raw factor table with its computed
// index: zone columns first, then each factor column in declaration order,
// then index, weight_used and degraded.
func (s *Store) WriteCategory(table *domain.FactorTable, indices map[string]domain.CategoryIndex) (string, error) {
	factors := table.Factors()
	header := append([]string{"zone_id", "zone_name"}, factors...)
	header = append(header, table.Category+"_index", "weight_used", "degraded")

	return s.write(CategoryFileName(table.Category), func(w *csv.Writer) error {
		if err := w.Write(header); err != nil {
			return err
		}
		for _, id := range table.SortedZoneIDs() {
			rec := make([]string, 0, len(header))
			rec = append(rec, id, table.ZoneName(id))
			for _, factor := range factors {
				if v, ok := table.Get(id, factor); ok {
					rec = append(rec, formatFloat(v))
				} else {
					rec = append(rec, "")
				}
			}
			idx := indices[id]
			rec = append(rec, formatFloat(idx.Index), formatFloat(idx.WeightUsed), strconv.FormatBool(idx.Degraded))
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteOverall writes the blended per-zone indices in the given row order.
func (s *Store) WriteOverall(rows []domain.OverallIndex) (string, error) {
	return s.write(OverallFileName, func(w *csv.Writer) error {
		header := []string{
			"zone_id", "zone_name",
			"physical_index", "socioeconomic_index", "overall_index",
			"physical_weight_used", "socioeconomic_weight_used", "flags",
		}
		if err := w.Write(header); err != nil {
			return err
		}
		for _, row := range rows {
			rec := []string{
				row.ZoneID, row.ZoneName,
				formatFloat(row.Physical), formatFloat(row.Socioeconomic), formatFloat(row.Overall),
				formatFloat(row.PhysicalWeightUsed), formatFloat(row.SocioeconomicWeightUsed),
				strings.Join(row.Flags, ";"),
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadOverall parses an overall artifact back into rows, for verification
// tooling and tests.
func ReadOverall(path string) ([]domain.OverallIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", path, err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"zone_id", "physical_index", "socioeconomic_index", "overall_index"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("%s: missing column %s", path, required)
		}
	}

	var rows []domain.OverallIndex
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		row := domain.OverallIndex{ZoneID: rec[col["zone_id"]]}
		if i, ok := col["zone_name"]; ok {
			row.ZoneName = rec[i]
		}
		if row.Physical, err = parseFloat(rec, col, "physical_index"); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		if row.Socioeconomic, err = parseFloat(rec, col, "socioeconomic_index"); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		if row.Overall, err = parseFloat(rec, col, "overall_index"); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		if i, ok := col["physical_weight_used"]; ok {
			if row.PhysicalWeightUsed, err = strconv.ParseFloat(rec[i], 64); err != nil {
				return nil, fmt.Errorf("%s line %d: physical_weight_used: %w", path, line, err)
			}
		}
		if i, ok := col["socioeconomic_weight_used"]; ok {
			if row.SocioeconomicWeightUsed, err = strconv.ParseFloat(rec[i], 64); err != nil {
				return nil, fmt.Errorf("%s line %d: socioeconomic_weight_used: %w", path, line, err)
			}
		}
		if i, ok := col["flags"]; ok && rec[i] != "" {
			row.Flags = strings.Split(rec[i], ";")
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Store) write(name string, body func(w *csv.Writer) error) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := body(w); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseFloat(rec []string, col map[string]int, name string) (float64, error) {
	v, err := strconv.ParseFloat(rec[col[name]], 64)
	if err != nil {
		return 0, fmt.Errorf("%s: bad value %q", name, rec[col[name]])
	}
	return v, nil
}
