package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wardscope/flood-vulnerability-etl/internal/domain"
)

// factorsFile is the on-disk layout of a factor weight override:
//
//	physical:
//	  - name: elevation_mean
//	    direction: descending
//	    weight: 0.3
//	socioeconomic:
//	  - name: population_density
//	    direction: ascending
//	    weight: 0.25
type factorsFile struct {
	Physical      []domain.FactorSpec `yaml:"physical"`
	Socioeconomic []domain.FactorSpec `yaml:"socioeconomic"`
}

// LoadFactors returns the factor weight tables for both categories. With an
// empty path the built-in defaults apply; otherwise the YAML file replaces
// whichever categories it declares. Either way the result is validated before
// any scoring happens.
func LoadFactors(path string) (physical, socioeconomic domain.CategorySpec, err error) {
	physical = domain.DefaultPhysicalSpec()
	socioeconomic = domain.DefaultSocioeconomicSpec()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return physical, socioeconomic, fmt.Errorf("read factors file: %w", err)
		}
		var f factorsFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return physical, socioeconomic, fmt.Errorf("parse factors file: %w", err)
		}
		if len(f.Physical) > 0 {
			physical.Factors = f.Physical
		}
		if len(f.Socioeconomic) > 0 {
			socioeconomic.Factors = f.Socioeconomic
		}
	}

	if err := physical.Validate(); err != nil {
		return physical, socioeconomic, fmt.Errorf("physical factors: %w", err)
	}
	if err := socioeconomic.Validate(); err != nil {
		return physical, socioeconomic, fmt.Errorf("socioeconomic factors: %w", err)
	}
	return physical, socioeconomic, nil
}
