package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardscope/flood-vulnerability-etl/internal/adapter/geojson"
	"github.com/wardscope/flood-vulnerability-etl/internal/adapter/tabular"
	"github.com/wardscope/flood-vulnerability-etl/internal/domain"
	"github.com/wardscope/flood-vulnerability-etl/internal/pipeline"
	"github.com/wardscope/flood-vulnerability-etl/internal/synth"
)

// syntheticCity wires the generated coastal city through in-memory sources.
func syntheticCity(t *testing.T) pipeline.Sources {
	t.Helper()
	zones, err := synth.Wards()
	require.NoError(t, err)
	return pipeline.Sources{
		Surface:  &mockSurfaceSource{surface: synth.Surface(synth.DefaultSeed)},
		Boundary: &mockBoundarySource{zones: zones},
		Census:   &mockCensusSource{table: synth.Census(zones, synth.DefaultSeed)},
	}
}

func runOverSyntheticCity(t *testing.T, dir string) *pipeline.RunResult {
	t.Helper()
	p := newPipeline(syntheticCity(t), pipeline.Sinks{
		Tables: tabular.NewStore(dir),
		Geo:    geojson.NewSink(dir),
	})
	res, err := p.Run(context.Background())
	require.NoError(t, err)
	return res
}

func TestPipeline_Run_SyntheticCity(t *testing.T) {
	res := runOverSyntheticCity(t, t.TempDir())

	assert.Equal(t, 24, res.Zones)
	assert.Empty(t, res.Skipped)
	assert.Empty(t, res.DegradedZones)
	assert.Empty(t, res.MissingColumns)
	require.Len(t, res.Rows, 24)
	assert.Len(t, res.Artifacts, 4)

	byID := map[string]domain.OverallIndex{}
	for _, row := range res.Rows {
		byID[row.ZoneID] = row
		assert.GreaterOrEqual(t, row.Physical, 0.0, row.ZoneID)
		assert.LessOrEqual(t, row.Physical, 100.0, row.ZoneID)
		assert.GreaterOrEqual(t, row.Socioeconomic, 0.0, row.ZoneID)
		assert.LessOrEqual(t, row.Socioeconomic, 100.0, row.ZoneID)
		assert.GreaterOrEqual(t, row.Overall, 0.0, row.ZoneID)
		assert.LessOrEqual(t, row.Overall, 100.0, row.ZoneID)
		assert.Equal(t, 1.0, row.PhysicalWeightUsed, row.ZoneID)
		assert.Empty(t, row.Flags, row.ZoneID)
	}

	// W01 is the dense, poor ward on the low coastal corner; W24 the sparse,
	// well-built ward on the high inland corner.
	low, high := byID["W24"], byID["W01"]
	assert.Greater(t, high.Physical, low.Physical)
	assert.Greater(t, high.Socioeconomic, low.Socioeconomic)
	assert.Greater(t, high.Overall, low.Overall+30)

	require.NotNil(t, res.Joined)
	assert.Len(t, res.Joined.Features, 24)
}

func TestPipeline_Run_ArtifactsAreReproducible(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	runOverSyntheticCity(t, dirA)
	runOverSyntheticCity(t, dirB)

	for _, name := range []string{
		tabular.CategoryFileName(domain.CategoryPhysical),
		tabular.CategoryFileName(domain.CategorySocioeconomic),
		tabular.OverallFileName,
		geojson.JoinedFileName,
	} {
		a, err := os.ReadFile(filepath.Join(dirA, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(dirB, name))
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b), "artifact %s differs between identical runs", name)
	}
}
