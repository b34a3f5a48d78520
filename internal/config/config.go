package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Input datasets.
	DEMPath     string
	WardsPath   string
	CensusPath  string
	FactorsPath string // optional YAML override of the factor weight tables
	OutputDir   string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Scoring knobs.
	ElevationThresholds []float64
	Scenarios           map[string]float64
	RenderMap           bool

	// Kafka publishing configuration.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	thresholds, err := parseThresholds(envOrDefault("ELEVATION_THRESHOLDS", "5,10"))
	if err != nil {
		return nil, err
	}

	scenarios, err := parseScenarios(envOrDefault("SCENARIOS", "baseline=1.0,monsoon=1.25,extreme=1.5"))
	if err != nil {
		return nil, err
	}

	kafkaEnabled := os.Getenv("KAFKA_BROKERS") != ""
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		DEMPath:     envOrDefault("DEM_PATH", "data/raw/dem/mumbai_dem.asc"),
		WardsPath:   envOrDefault("WARDS_PATH", "data/raw/boundaries/mumbai_wards.geojson"),
		CensusPath:  envOrDefault("CENSUS_PATH", "data/raw/census/ward_demographics.csv"),
		FactorsPath: os.Getenv("FACTORS_PATH"),
		OutputDir:   envOrDefault("OUTPUT_DIR", "outputs"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ElevationThresholds: thresholds,
		Scenarios:           scenarios,
		RenderMap:           envOrDefault("RENDER_MAP", "true") == "true",

		KafkaBrokers: parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "ward-vulnerability-scores"),
		KafkaEnabled: kafkaEnabled,
	}

	if cfg.DEMPath == "" {
		return nil, errors.New("DEM_PATH is required")
	}
	if cfg.WardsPath == "" {
		return nil, errors.New("WARDS_PATH is required")
	}
	if cfg.CensusPath == "" {
		return nil, errors.New("CENSUS_PATH is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is not set")
	}

	return cfg, nil
}

// ScenarioNames returns the configured scenario names in sorted order.
func (c *Config) ScenarioNames() []string {
	names := make([]string, 0, len(c.Scenarios))
	for name := range c.Scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parseShutdownTimeout() (time.Duration, error) {
	s := envOrDefault("SHUTDOWN_TIMEOUT", "10s")
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, errors.New("invalid SHUTDOWN_TIMEOUT")
	}
	return d, nil
}

// parseThresholds reads a comma-separated list of elevation cutoffs in
// meters. They must be positive and strictly ascending so the derived
// pct_below_* factor names stay unambiguous.
func parseThresholds(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	thresholds := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ELEVATION_THRESHOLDS: %q is not a number", p)
		}
		thresholds = append(thresholds, v)
	}
	if len(thresholds) == 0 {
		return nil, errors.New("invalid ELEVATION_THRESHOLDS: empty list")
	}
	for i, v := range thresholds {
		if v <= 0 {
			return nil, fmt.Errorf("invalid ELEVATION_THRESHOLDS: %g is not positive", v)
		}
		if i > 0 && v <= thresholds[i-1] {
			return nil, errors.New("invalid ELEVATION_THRESHOLDS: values must be strictly ascending")
		}
	}
	return thresholds, nil
}

// parseScenarios reads "name=multiplier" pairs. A baseline scenario with
// multiplier 1.0 must be present; the query API treats it as the default.
func parseScenarios(s string) (map[string]float64, error) {
	scenarios := make(map[string]float64)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid SCENARIOS: %q is not name=multiplier", pair)
		}
		name = strings.TrimSpace(name)
		m, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || m <= 0 {
			return nil, fmt.Errorf("invalid SCENARIOS: bad multiplier for %q", name)
		}
		scenarios[name] = m
	}
	if _, ok := scenarios["baseline"]; !ok {
		return nil, errors.New("invalid SCENARIOS: baseline scenario is required")
	}
	return scenarios, nil
}
