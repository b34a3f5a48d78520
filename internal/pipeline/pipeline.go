// Package pipeline orchestrates a scoring run: load the elevation surface,
// ward boundaries and census table, score both vulnerability categories,
// blend them, write the artifacts, and optionally publish the per-zone
// scores. A run is synchronous; concurrency (the HTTP API, repeated runs)
// lives with the caller.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/paulmach/orb/geojson"

	"github.com/wardscope/flood-vulnerability-etl/internal/domain"
	"github.com/wardscope/flood-vulnerability-etl/internal/observability"
)

// SurfaceSource supplies the elevation raster.
type SurfaceSource interface {
	Surface(ctx context.Context) (*domain.ElevationSurface, error)
}

// BoundarySource supplies the zone polygons.
type BoundarySource interface {
	Zones(ctx context.Context) (*domain.ZoneSet, error)
}

// CensusSource supplies the socioeconomic table.
type CensusSource interface {
	Census(ctx context.Context) (*domain.CensusTable, error)
}

// TableSink persists the CSV artifacts.
type TableSink interface {
	WriteCategory(table *domain.FactorTable, indices map[string]domain.CategoryIndex) (string, error)
	WriteOverall(rows []domain.OverallIndex) (string, error)
}

// GeoSink persists the joined feature collection.
type GeoSink interface {
	WriteJoined(fc *geojson.FeatureCollection) (string, error)
}

// Renderer draws a choropleth from the joined feature collection.
type Renderer interface {
	Render(fc *geojson.FeatureCollection) (string, error)
}

// Publisher delivers per-zone scores to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, runID string, computedAt time.Time, rows []domain.OverallIndex) error
}

// Sources groups the three input collaborators.
type Sources struct {
	Surface  SurfaceSource
	Boundary BoundarySource
	Census   CensusSource
}

// Sinks groups the output collaborators. Renderer and Publisher are optional;
// nil disables the map artifact and broker publishing respectively.
type Sinks struct {
	Tables    TableSink
	Geo       GeoSink
	Renderer  Renderer
	Publisher Publisher
}

// Scoring carries the factor weight tables and elevation thresholds for a run.
type Scoring struct {
	Physical      domain.CategorySpec
	Socioeconomic domain.CategorySpec
	Thresholds    []float64
}

// RunResult captures everything one completed run produced.
type RunResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Zones          int
	DegradedZones  []string
	MissingColumns []string
	Skipped        []string // categories dropped wholesale for missing input
	Warnings       []string

	Physical           map[string]domain.CategoryIndex
	Socioeconomic      map[string]domain.CategoryIndex
	PhysicalTable      *domain.FactorTable
	SocioeconomicTable *domain.FactorTable
	Stats              map[string]domain.ZoneStats
	Rows               []domain.OverallIndex
	Joined             *geojson.FeatureCollection
	Artifacts          []string
}

// Pipeline wires sources, scoring and sinks together and remembers the most
// recent completed run for the query API.
type Pipeline struct {
	sources Sources
	sinks   Sinks
	scoring Scoring
	logger  *slog.Logger
	metrics *observability.Metrics

	ready atomic.Bool
	last  atomic.Pointer[RunResult]
}

// New creates a Pipeline with the given collaborators and observability.
func New(sources Sources, sinks Sinks, scoring Scoring, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	p := &Pipeline{
		sources: sources,
		sinks:   sinks,
		scoring: scoring,
		logger:  logger,
		metrics: metrics,
	}
	if sinks.Publisher != nil {
		metrics.PublishEnabled.Set(1)
	}
	return p
}

// CheckReadiness returns nil once at least one scoring run has completed,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no scoring run has completed yet")
	}
	return nil
}

// LastRun returns the most recent completed run, or nil before the first one.
func (p *Pipeline) LastRun() *RunResult {
	return p.last.Load()
}

// Run executes one full scoring cycle. A non-nil result means scores were
// computed and artifacts written, even when the final publish step failed;
// the caller decides whether a publish failure is fatal.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	res := &RunResult{RunID: uuid.NewString(), StartedAt: domain.Now()}
	logger := p.logger.With("run_id", res.RunID)

	logger.Info("scoring run started")
	p.metrics.RunInProgress.Set(1)
	defer p.metrics.RunInProgress.Set(0)

	surface, zones, census, err := p.loadInputs(ctx, res, logger)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := p.score(res, surface, zones, census, logger); err != nil {
		p.metrics.RunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := p.writeArtifacts(res, zones, logger); err != nil {
		p.metrics.RunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	res.FinishedAt = domain.Now()
	p.last.Store(res)
	p.ready.Store(true)
	p.metrics.RunDuration.Observe(res.FinishedAt.Sub(res.StartedAt).Seconds())

	if err := p.publish(ctx, res, logger); err != nil {
		p.metrics.RunsTotal.WithLabelValues("error").Inc()
		return res, err
	}

	p.metrics.RunsTotal.WithLabelValues("success").Inc()
	logger.Info("scoring run finished",
		"zones", res.Zones,
		"degraded", len(res.DegradedZones),
		"artifacts", len(res.Artifacts),
		"duration", res.FinishedAt.Sub(res.StartedAt),
	)
	return res, nil
}

// loadInputs reads the three sources. An absent input drops its category and
// is reported as a warning; the run only aborts when a source is corrupt or
// when both categories lose their inputs at once.
func (p *Pipeline) loadInputs(ctx context.Context, res *RunResult, logger *slog.Logger) (*domain.ElevationSurface, *domain.ZoneSet, *domain.CensusTable, error) {
	var missingErrs *multierror.Error

	zones, err := p.sources.Boundary.Zones(ctx)
	if err != nil {
		if !isMissingInput(err) {
			return nil, nil, nil, fmt.Errorf("load boundaries: %w", err)
		}
		logger.Warn("boundary source missing", "error", err)
		missingErrs = multierror.Append(missingErrs, err)
		zones = nil
	}

	surface, err := p.sources.Surface.Surface(ctx)
	if err != nil {
		if !isMissingInput(err) {
			return nil, nil, nil, fmt.Errorf("load elevation surface: %w", err)
		}
		logger.Warn("elevation source missing", "error", err)
		missingErrs = multierror.Append(missingErrs, err)
		surface = nil
	}

	census, err := p.sources.Census.Census(ctx)
	if err != nil {
		if !isMissingInput(err) {
			return nil, nil, nil, fmt.Errorf("load census: %w", err)
		}
		logger.Warn("census source missing", "error", err)
		missingErrs = multierror.Append(missingErrs, err)
		census = nil
	}

	physicalLost := surface == nil || zones == nil
	socioeconomicLost := census == nil
	if physicalLost && socioeconomicLost {
		return nil, nil, nil, fmt.Errorf("no scorable categories: %w", missingErrs.ErrorOrNil())
	}
	if physicalLost {
		res.Skipped = append(res.Skipped, domain.CategoryPhysical)
		res.Warnings = append(res.Warnings, "physical category skipped: input missing")
	}
	if socioeconomicLost {
		res.Skipped = append(res.Skipped, domain.CategorySocioeconomic)
		res.Warnings = append(res.Warnings, "socioeconomic category skipped: input missing")
	}
	return surface, zones, census, nil
}

// score computes both category indices and the blended rows.
func (p *Pipeline) score(res *RunResult, surface *domain.ElevationSurface, zones *domain.ZoneSet, census *domain.CensusTable, logger *slog.Logger) error {
	if surface != nil && zones != nil {
		indices, table, stats, err := domain.ComputePhysicalIndex(surface, zones, p.scoring.Physical, p.scoring.Thresholds)
		if err != nil {
			return fmt.Errorf("score physical category: %w", err)
		}
		res.Physical = indices
		res.PhysicalTable = table
		res.Stats = stats

		for _, id := range table.SortedZoneIDs() {
			st := stats[id]
			if !st.Degraded {
				continue
			}
			warn := domain.DegradedZoneWarning{ZoneID: id, Reason: st.Reason}
			logger.Warn("zone degraded during extraction", "zone_id", id, "reason", st.Reason)
			res.DegradedZones = append(res.DegradedZones, id)
			res.Warnings = append(res.Warnings, warn.Error())
			p.metrics.ZonesDegraded.Inc()
		}
	}

	if census != nil {
		indices, table, missingColumns, err := domain.ComputeSocioeconomicIndex(census, p.scoring.Socioeconomic)
		if err != nil {
			return fmt.Errorf("score socioeconomic category: %w", err)
		}
		res.Socioeconomic = indices
		res.SocioeconomicTable = table
		res.MissingColumns = missingColumns

		for _, col := range missingColumns {
			logger.Warn("required census column missing, weight renormalized", "column", col)
			res.Warnings = append(res.Warnings, fmt.Sprintf("census column %s missing for all zones", col))
		}
	}

	res.Rows = domain.Aggregate(res.Physical, res.Socioeconomic, p.zoneNames(zones, census))
	res.Zones = len(res.Rows)
	p.metrics.ZonesProcessed.Add(float64(len(res.Rows)))
	for _, row := range res.Rows {
		if row.HasFlag(domain.FlagPhysicalFallback) {
			p.metrics.CategoryFallbacks.WithLabelValues(domain.CategoryPhysical).Inc()
		}
		if row.HasFlag(domain.FlagSocioeconomicFallback) {
			p.metrics.CategoryFallbacks.WithLabelValues(domain.CategorySocioeconomic).Inc()
		}
	}
	return nil
}

// zoneNames merges display names from both inputs; boundary names win.
func (p *Pipeline) zoneNames(zones *domain.ZoneSet, census *domain.CensusTable) map[string]string {
	names := make(map[string]string)
	if census != nil {
		for _, row := range census.Rows {
			if row.ZoneName != "" {
				names[row.ZoneID] = row.ZoneName
			}
		}
	}
	if zones != nil {
		for _, z := range zones.Zones() {
			if z.Name != "" {
				names[z.ID] = z.Name
			}
		}
	}
	return names
}

// writeArtifacts persists the CSV tables first so that partial output
// survives a failed geometry join, then the joined GeoJSON and the optional
// rendered map.
func (p *Pipeline) writeArtifacts(res *RunResult, zones *domain.ZoneSet, logger *slog.Logger) error {
	for _, t := range []*domain.FactorTable{res.PhysicalTable, res.SocioeconomicTable} {
		if t == nil {
			continue
		}
		indices := res.Physical
		if t.Category == domain.CategorySocioeconomic {
			indices = res.Socioeconomic
		}
		path, err := p.sinks.Tables.WriteCategory(t, indices)
		if err != nil {
			return fmt.Errorf("write %s table: %w", t.Category, err)
		}
		res.Artifacts = append(res.Artifacts, path)
		p.metrics.ArtifactsWritten.WithLabelValues("csv").Inc()
	}

	path, err := p.sinks.Tables.WriteOverall(res.Rows)
	if err != nil {
		return fmt.Errorf("write overall table: %w", err)
	}
	res.Artifacts = append(res.Artifacts, path)
	p.metrics.ArtifactsWritten.WithLabelValues("csv").Inc()

	if zones == nil {
		logger.Warn("skipping geometry join, no boundaries loaded")
		return nil
	}

	fc, err := domain.JoinGeometry(res.Rows, zones)
	if err != nil {
		var mismatch *domain.JoinMismatchError
		if errors.As(err, &mismatch) {
			p.metrics.JoinMismatches.Inc()
		}
		return fmt.Errorf("join indices onto geometry: %w", err)
	}
	res.Joined = fc

	path, err = p.sinks.Geo.WriteJoined(fc)
	if err != nil {
		return fmt.Errorf("write joined geojson: %w", err)
	}
	res.Artifacts = append(res.Artifacts, path)
	p.metrics.ArtifactsWritten.WithLabelValues("geojson").Inc()

	if p.sinks.Renderer != nil {
		path, err := p.sinks.Renderer.Render(fc)
		if err != nil {
			// The map is a convenience artifact; a failed render does
			// not fail a run whose scores are already on disk.
			logger.Error("render choropleth failed", "error", err)
		} else {
			res.Artifacts = append(res.Artifacts, path)
			p.metrics.ArtifactsWritten.WithLabelValues("png").Inc()
		}
	}
	return nil
}

// publish delivers the per-zone scores when a publisher is configured.
func (p *Pipeline) publish(ctx context.Context, res *RunResult, logger *slog.Logger) error {
	if p.sinks.Publisher == nil {
		return nil
	}
	if err := p.sinks.Publisher.Publish(ctx, res.RunID, res.FinishedAt, res.Rows); err != nil {
		p.metrics.PublishErrors.Inc()
		return fmt.Errorf("publish scores: %w", err)
	}
	p.metrics.ScoresPublished.Add(float64(len(res.Rows)))
	logger.Info("scores published", "count", len(res.Rows))
	return nil
}

func isMissingInput(err error) bool {
	var missing *domain.MissingInputError
	return errors.As(err, &missing)
}
