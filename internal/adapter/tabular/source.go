// Package tabular reads the socioeconomic census table and writes the CSV
// scoring artifacts.
package tabular

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/wardscope/flood-vulnerability-etl/internal/domain"
)

// Source loads per-zone socioeconomic indicators from a CSV file with a
// header row. A zone_id column is required; every column that is not an
// identifier or name is treated as a numeric factor column. Empty cells mean
// the value is missing for that zone, which is recorded explicitly rather
// than treated as zero.
type Source struct {
	path string
}

// NewSource returns a census source for the file at path.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Census reads and parses the table. An absent file is a MissingInputError
// for the socioeconomic category.
func (s *Source) Census(ctx context.Context) (*domain.CensusTable, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &domain.MissingInputError{Source: s.path, Category: domain.CategorySocioeconomic, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("open census: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read census header: %w", err)
	}

	idIdx, nameIdx := -1, -1
	var columns []string
	colIdx := make(map[int]string, len(header))
	for i, col := range header {
		switch norm := strings.ToLower(strings.TrimSpace(col)); norm {
		case "zone_id", "ward_id":
			if idIdx < 0 {
				idIdx = i
			}
		case "zone_name", "ward_name", "name":
			if nameIdx < 0 {
				nameIdx = i
			}
		default:
			columns = append(columns, norm)
			colIdx[i] = norm
		}
	}
	if idIdx < 0 {
		return nil, fmt.Errorf("census %s has no zone_id column", s.path)
	}

	table := &domain.CensusTable{Columns: columns}
	seen := make(map[string]bool)
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("census line %d: %w", line, err)
		}

		id := domain.CanonicalZoneID(rec[idIdx])
		if id == "" {
			return nil, fmt.Errorf("census line %d: empty zone_id", line)
		}
		if seen[id] {
			return nil, fmt.Errorf("census line %d: duplicate zone_id %q", line, id)
		}
		seen[id] = true

		row := domain.CensusRow{ZoneID: id, Values: make(map[string]float64, len(columns))}
		if nameIdx >= 0 {
			row.ZoneName = strings.TrimSpace(rec[nameIdx])
		}
		for i, col := range colIdx {
			cell := strings.TrimSpace(rec[i])
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("census line %d: column %s: bad value %q", line, col, cell)
			}
			row.Values[col] = v
		}
		table.Rows = append(table.Rows, row)
	}

	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("census %s has no data rows", s.path)
	}
	return table, nil
}
