// Package httpapi exposes operational endpoints and a read-only query API
// over the most recent completed scoring run.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wardscope/flood-vulnerability-etl/internal/domain"
	"github.com/wardscope/flood-vulnerability-etl/internal/observability"
	"github.com/wardscope/flood-vulnerability-etl/internal/pipeline"
)

// RunProvider gives handlers access to scoring results and readiness.
type RunProvider interface {
	LastRun() *pipeline.RunResult
	CheckReadiness(ctx context.Context) error
}

// Server exposes health, readiness, metrics, and the vulnerability query API.
type Server struct {
	httpServer *http.Server
	runs       RunProvider
	scenarios  map[string]float64
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer wires the routes. Scenarios maps scenario names to score
// multipliers and must contain "baseline".
func NewServer(addr string, runs RunProvider, scenarios map[string]float64, logger *slog.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		runs:      runs,
		scenarios: scenarios,
		logger:    logger,
		metrics:   metrics,
	}

	r := chi.NewRouter()
	r.Use(s.instrument)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/vulnerability", s.handleVulnerability)
		r.Get("/vulnerability.geojson", s.handleGeoJSON)
		r.Get("/vulnerability/{zoneID}", s.handleZone)
		r.Get("/run", s.handleRun)
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// instrument records request counts and latency per matched route.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		s.metrics.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.runs.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type zoneScore struct {
	ZoneID        string   `json:"zone_id"`
	ZoneName      string   `json:"zone_name,omitempty"`
	Physical      float64  `json:"physical_index"`
	Socioeconomic float64  `json:"socioeconomic_index"`
	Overall       float64  `json:"overall_index"`
	Score         float64  `json:"score"`
	Flags         []string `json:"flags,omitempty"`
}

type vulnerabilityResponse struct {
	RunID      string      `json:"run_id"`
	ComputedAt time.Time   `json:"computed_at"`
	Category   string      `json:"category"`
	Scenario   string      `json:"scenario"`
	Multiplier float64     `json:"multiplier"`
	Count      int         `json:"count"`
	Zones      []zoneScore `json:"zones"`
}

// handleVulnerability lists per-zone scores. Query parameters: category
// selects which index the score field carries (overall by default), scenario
// applies a configured multiplier, min_score drops zones scoring below the
// cutoff after scaling.
func (s *Server) handleVulnerability(w http.ResponseWriter, r *http.Request) {
	res := s.lastRun(w)
	if res == nil {
		return
	}

	q := r.URL.Query()
	category := q.Get("category")
	if category == "" {
		category = "overall"
	}
	if category != "overall" && category != domain.CategoryPhysical && category != domain.CategorySocioeconomic {
		writeError(w, http.StatusBadRequest, "unknown category "+strconv.Quote(category))
		return
	}

	scenario := q.Get("scenario")
	if scenario == "" {
		scenario = "baseline"
	}
	multiplier, ok := s.scenarios[scenario]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown scenario "+strconv.Quote(scenario))
		return
	}
	s.metrics.ScenarioQueries.WithLabelValues(scenario).Inc()

	minScore := 0.0
	if raw := q.Get("min_score"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_score must be a number")
			return
		}
		minScore = v
	}

	zones := make([]zoneScore, 0, len(res.Rows))
	for _, row := range res.Rows {
		base := row.Overall
		switch category {
		case domain.CategoryPhysical:
			base = row.Physical
		case domain.CategorySocioeconomic:
			base = row.Socioeconomic
		}
		score := scaleScore(base, multiplier)
		if score < minScore {
			continue
		}
		zones = append(zones, zoneScore{
			ZoneID:        row.ZoneID,
			ZoneName:      row.ZoneName,
			Physical:      row.Physical,
			Socioeconomic: row.Socioeconomic,
			Overall:       row.Overall,
			Score:         score,
			Flags:         row.Flags,
		})
	}

	writeJSON(w, http.StatusOK, vulnerabilityResponse{
		RunID:      res.RunID,
		ComputedAt: res.FinishedAt,
		Category:   category,
		Scenario:   scenario,
		Multiplier: multiplier,
		Count:      len(zones),
		Zones:      zones,
	})
}

type zoneDetail struct {
	zoneScore
	PhysicalWeightUsed      float64                       `json:"physical_weight_used"`
	SocioeconomicWeightUsed float64                       `json:"socioeconomic_weight_used"`
	Factors                 map[string]map[string]float64 `json:"factors,omitempty"`
	Scenarios               map[string]float64            `json:"scenarios"`
}

// handleZone returns one zone with its raw factor values and the overall
// score under every configured scenario.
func (s *Server) handleZone(w http.ResponseWriter, r *http.Request) {
	res := s.lastRun(w)
	if res == nil {
		return
	}

	id := domain.CanonicalZoneID(chi.URLParam(r, "zoneID"))
	for _, row := range res.Rows {
		if row.ZoneID != id {
			continue
		}

		detail := zoneDetail{
			zoneScore: zoneScore{
				ZoneID:        row.ZoneID,
				ZoneName:      row.ZoneName,
				Physical:      row.Physical,
				Socioeconomic: row.Socioeconomic,
				Overall:       row.Overall,
				Score:         row.Overall,
				Flags:         row.Flags,
			},
			PhysicalWeightUsed:      row.PhysicalWeightUsed,
			SocioeconomicWeightUsed: row.SocioeconomicWeightUsed,
			Factors:                 make(map[string]map[string]float64, 2),
			Scenarios:               make(map[string]float64, len(s.scenarios)),
		}
		for _, table := range []*domain.FactorTable{res.PhysicalTable, res.SocioeconomicTable} {
			if table == nil {
				continue
			}
			values := make(map[string]float64)
			for _, factor := range table.Factors() {
				if v, ok := table.Get(id, factor); ok {
					values[factor] = v
				}
			}
			if len(values) > 0 {
				detail.Factors[table.Category] = values
			}
		}
		for name, multiplier := range s.scenarios {
			detail.Scenarios[name] = scaleScore(row.Overall, multiplier)
		}

		writeJSON(w, http.StatusOK, detail)
		return
	}
	writeError(w, http.StatusNotFound, "zone "+strconv.Quote(id)+" not found")
}

// handleGeoJSON serves the joined feature collection as written to disk.
func (s *Server) handleGeoJSON(w http.ResponseWriter, _ *http.Request) {
	res := s.lastRun(w)
	if res == nil {
		return
	}
	if res.Joined == nil {
		writeError(w, http.StatusNotFound, "no joined geometry in the last run")
		return
	}

	raw, err := json.Marshal(res.Joined)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "marshal feature collection")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw) //nolint:errcheck // best-effort response body
}

type runResponse struct {
	RunID          string    `json:"run_id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Zones          int       `json:"zones"`
	DegradedZones  []string  `json:"degraded_zones,omitempty"`
	Skipped        []string  `json:"skipped_categories,omitempty"`
	MissingColumns []string  `json:"missing_columns,omitempty"`
	Warnings       []string  `json:"warnings,omitempty"`
	Artifacts      []string  `json:"artifacts"`
}

func (s *Server) handleRun(w http.ResponseWriter, _ *http.Request) {
	res := s.lastRun(w)
	if res == nil {
		return
	}
	writeJSON(w, http.StatusOK, runResponse{
		RunID:          res.RunID,
		StartedAt:      res.StartedAt,
		FinishedAt:     res.FinishedAt,
		Zones:          res.Zones,
		DegradedZones:  res.DegradedZones,
		Skipped:        res.Skipped,
		MissingColumns: res.MissingColumns,
		Warnings:       res.Warnings,
		Artifacts:      res.Artifacts,
	})
}

// lastRun fetches the most recent result, answering 503 when none exists yet.
func (s *Server) lastRun(w http.ResponseWriter) *pipeline.RunResult {
	res := s.runs.LastRun()
	if res == nil {
		writeError(w, http.StatusServiceUnavailable, "no completed scoring run yet")
	}
	return res
}

// scaleScore applies a scenario multiplier, keeping the result on the 0-100
// scale.
func scaleScore(v, multiplier float64) float64 {
	scaled := v * multiplier
	if scaled > 100 {
		return 100
	}
	return scaled
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
