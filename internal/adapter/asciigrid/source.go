package asciigrid

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/wardscope/flood-vulnerability-etl/internal/domain"
)

// Source loads the elevation surface from an ASCII grid file on disk. An
// absent file is a MissingInputError for the physical category; a file that
// exists but fails to parse is a hard error, never a silent skip.
type Source struct {
	path string
	crs  string
}

// NewSource returns a source for the grid at path. An empty crs means the
// grid coordinates are geographic WGS84.
func NewSource(path, crs string) *Source {
	return &Source{path: path, crs: crs}
}

// Surface reads and decodes the grid.
func (s *Source) Surface(ctx context.Context) (*domain.ElevationSurface, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &domain.MissingInputError{Source: s.path, Category: domain.CategoryPhysical, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("open elevation grid: %w", err)
	}
	defer f.Close()

	surface, err := Decode(f, s.crs)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return surface, nil
}
