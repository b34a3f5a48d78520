package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paulmach/orb"
	orbjson "github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardscope/flood-vulnerability-etl/internal/adapter/httpapi"
	"github.com/wardscope/flood-vulnerability-etl/internal/domain"
	"github.com/wardscope/flood-vulnerability-etl/internal/observability"
	"github.com/wardscope/flood-vulnerability-etl/internal/pipeline"
)

// --- mocks ---

type mockRuns struct {
	res      *pipeline.RunResult
	readyErr error
}

func (m *mockRuns) LastRun() *pipeline.RunResult           { return m.res }
func (m *mockRuns) CheckReadiness(_ context.Context) error { return m.readyErr }

// --- fixtures ---

var testScenarios = map[string]float64{
	"baseline": 1.0,
	"monsoon":  1.25,
	"extreme":  1.5,
}

func completedRun() *pipeline.RunResult {
	physical := domain.NewFactorTable(domain.CategoryPhysical)
	physical.AddZone("W01", "West Ward")
	physical.Set("W01", "mean_elevation", 2.5)
	physical.Set("W01", "pct_below_5m", 90)
	physical.AddZone("W02", "East Ward")
	physical.Set("W02", "mean_elevation", 40)
	physical.Set("W02", "pct_below_5m", 0)
	physical.AddZone("7", "Harbour Ward")
	physical.Set("7", "mean_elevation", 12)
	physical.Set("7", "pct_below_5m", 20)

	socio := domain.NewFactorTable(domain.CategorySocioeconomic)
	socio.Set("W01", "poverty_rate_pct", 38)
	socio.Set("W02", "poverty_rate_pct", 12)
	socio.Set("7", "poverty_rate_pct", 20)

	fc := orbjson.NewFeatureCollection()
	f := orbjson.NewFeature(orb.Polygon{{{72, 19}, {72.1, 19}, {72.1, 19.1}, {72, 19.1}, {72, 19}}})
	f.Properties["zone_id"] = "W01"
	fc.Append(f)

	return &pipeline.RunResult{
		RunID:      "run-1234",
		StartedAt:  time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 6, 1, 6, 0, 42, 0, time.UTC),
		Zones:      3,
		Rows: []domain.OverallIndex{
			{ZoneID: "7", ZoneName: "Harbour Ward", Physical: 45, Socioeconomic: 35, Overall: 41, PhysicalWeightUsed: 1, SocioeconomicWeightUsed: 1},
			{ZoneID: "W01", ZoneName: "West Ward", Physical: 90, Socioeconomic: 70, Overall: 82, PhysicalWeightUsed: 1, SocioeconomicWeightUsed: 1},
			{ZoneID: "W02", ZoneName: "East Ward", Physical: 10, Socioeconomic: 30, Overall: 18, PhysicalWeightUsed: 1, SocioeconomicWeightUsed: 1, Flags: []string{domain.FlagDegradedExtraction}},
		},
		PhysicalTable:      physical,
		SocioeconomicTable: socio,
		Joined:             fc,
		Artifacts: []string{
			"outputs/physical_vulnerability.csv",
			"outputs/socioeconomic_vulnerability.csv",
			"outputs/overall_vulnerability.csv",
			"outputs/ward_vulnerability.geojson",
		},
	}
}

func newTestServer(t *testing.T, runs *mockRuns) *httpapi.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpapi.NewServer(":0", runs, testScenarios, logger, observability.NewMetricsForTesting())
}

func get(t *testing.T, srv *httpapi.Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// --- tests ---

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(t, &mockRuns{})

	rec := get(t, srv, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(t, &mockRuns{res: completedRun()})

	rec := get(t, srv, "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(t, &mockRuns{readyErr: errors.New("no scoring run has completed yet")})

	rec := get(t, srv, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not ready")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &mockRuns{})

	rec := get(t, srv, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAPIReturns503BeforeFirstRun(t *testing.T) {
	srv := newTestServer(t, &mockRuns{})

	for _, target := range []string{
		"/api/v1/vulnerability",
		"/api/v1/vulnerability/W01",
		"/api/v1/vulnerability.geojson",
		"/api/v1/run",
	} {
		rec := get(t, srv, target)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "no completed scoring run", target)
	}
}

func TestVulnerabilityListDefaults(t *testing.T) {
	srv := newTestServer(t, &mockRuns{res: completedRun()})

	rec := get(t, srv, "/api/v1/vulnerability")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "run-1234", body["run_id"])
	assert.Equal(t, "overall", body["category"])
	assert.Equal(t, "baseline", body["scenario"])
	assert.Equal(t, 1.0, body["multiplier"])
	assert.Equal(t, float64(3), body["count"])

	zones := body["zones"].([]any)
	require.Len(t, zones, 3)
	first := zones[0].(map[string]any)
	assert.Equal(t, "7", first["zone_id"])
	assert.Equal(t, first["overall_index"], first["score"])

	last := zones[2].(map[string]any)
	assert.Equal(t, []any{"degraded_extraction"}, last["flags"])
}

func TestVulnerabilityCategorySelectsScore(t *testing.T) {
	srv := newTestServer(t, &mockRuns{res: completedRun()})

	rec := get(t, srv, "/api/v1/vulnerability?category=physical")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "physical", body["category"])
	zones := body["zones"].([]any)
	for _, z := range zones {
		zone := z.(map[string]any)
		assert.Equal(t, zone["physical_index"], zone["score"], zone["zone_id"])
	}
}

func TestVulnerabilityMinScoreFilters(t *testing.T) {
	srv := newTestServer(t, &mockRuns{res: completedRun()})

	rec := get(t, srv, "/api/v1/vulnerability?min_score=50")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(1), body["count"])
	zones := body["zones"].([]any)
	require.Len(t, zones, 1)
	assert.Equal(t, "W01", zones[0].(map[string]any)["zone_id"])
}

func TestVulnerabilityScenarioScalesAndCaps(t *testing.T) {
	srv := newTestServer(t, &mockRuns{res: completedRun()})

	rec := get(t, srv, "/api/v1/vulnerability?scenario=extreme")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 1.5, body["multiplier"])

	scores := map[string]float64{}
	for _, z := range body["zones"].([]any) {
		zone := z.(map[string]any)
		scores[zone["zone_id"].(string)] = zone["score"].(float64)
	}
	assert.Equal(t, 100.0, scores["W01"]) // 82 * 1.5 capped at the scale top
	assert.InDelta(t, 27.0, scores["W02"], 1e-9)
	assert.InDelta(t, 61.5, scores["7"], 1e-9)
}

func TestVulnerabilityBadRequests(t *testing.T) {
	srv := newTestServer(t, &mockRuns{res: completedRun()})

	for name, target := range map[string]string{
		"unknown category": "/api/v1/vulnerability?category=hydrological",
		"unknown scenario": "/api/v1/vulnerability?scenario=apocalypse",
		"bad min_score":    "/api/v1/vulnerability?min_score=lots",
	} {
		rec := get(t, srv, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestZoneDetail(t *testing.T) {
	srv := newTestServer(t, &mockRuns{res: completedRun()})

	rec := get(t, srv, "/api/v1/vulnerability/W01")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "W01", body["zone_id"])
	assert.Equal(t, "West Ward", body["zone_name"])
	assert.Equal(t, 82.0, body["overall_index"])
	assert.Equal(t, 1.0, body["physical_weight_used"])

	factors := body["factors"].(map[string]any)
	physical := factors["physical"].(map[string]any)
	assert.Equal(t, 2.5, physical["mean_elevation"])
	socio := factors["socioeconomic"].(map[string]any)
	assert.Equal(t, 38.0, socio["poverty_rate_pct"])

	scenarios := body["scenarios"].(map[string]any)
	assert.Equal(t, 82.0, scenarios["baseline"])
	assert.Equal(t, 100.0, scenarios["extreme"])
	assert.InDelta(t, 100.0, scenarios["monsoon"].(float64), 1e-9) // 82 * 1.25 capped
}

func TestZoneDetailCoercesNumericID(t *testing.T) {
	srv := newTestServer(t, &mockRuns{res: completedRun()})

	// Identifier written as a float, as census round-trips produce.
	rec := get(t, srv, "/api/v1/vulnerability/7.0")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "7", body["zone_id"])
	assert.Equal(t, "Harbour Ward", body["zone_name"])
}

func TestZoneDetailNotFound(t *testing.T) {
	srv := newTestServer(t, &mockRuns{res: completedRun()})

	rec := get(t, srv, "/api/v1/vulnerability/W99")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "W99")
}

func TestGeoJSONEndpoint(t *testing.T) {
	srv := newTestServer(t, &mockRuns{res: completedRun()})

	rec := get(t, srv, "/api/v1/vulnerability.geojson")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "FeatureCollection")
	assert.Contains(t, rec.Body.String(), "W01")
}

func TestGeoJSONReturns404WithoutJoin(t *testing.T) {
	res := completedRun()
	res.Joined = nil
	srv := newTestServer(t, &mockRuns{res: res})

	rec := get(t, srv, "/api/v1/vulnerability.geojson")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunMetadata(t *testing.T) {
	res := completedRun()
	res.DegradedZones = []string{"W02"}
	res.Warnings = []string{"zone W02: no valid elevation samples"}
	srv := newTestServer(t, &mockRuns{res: res})

	rec := get(t, srv, "/api/v1/run")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "run-1234", body["run_id"])
	assert.Equal(t, float64(3), body["zones"])
	assert.Equal(t, []any{"W02"}, body["degraded_zones"])
	assert.Len(t, body["artifacts"], 4)
}
