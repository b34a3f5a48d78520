package geojson

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	orbjson "github.com/paulmach/orb/geojson"
)

// JoinedFileName is the artifact written by the sink.
const JoinedFileName = "ward_vulnerability.geojson"

// Sink persists the joined vulnerability feature collection under a fixed
// name in the output directory.
type Sink struct {
	dir string
}

// NewSink returns a sink writing into dir, creating it on first write.
func NewSink(dir string) *Sink {
	return &Sink{dir: dir}
}

// WriteJoined marshals the collection and returns the written path. Output is
// indented and has sorted property keys, so identical runs produce identical
// bytes.
func (s *Sink) WriteJoined(fc *orbjson.FeatureCollection) (string, error) {
	raw, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal feature collection: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(s.dir, JoinedFileName)
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
