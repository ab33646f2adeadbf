package config

import (
	"fmt"
	"maps"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/sponsor-compliance/internal/core/rules"
	"github.com/kirillkom/sponsor-compliance/internal/core/signals"
)

// Rules is the business configuration read from RULES_FILE.
type Rules struct {
	Thresholds rules.Thresholds `yaml:"thresholds"`
	Extraction signals.Settings `yaml:"extraction"`
}

func DefaultRules() Rules {
	extraction := signals.DefaultSettings()
	extraction.KnownReferences = maps.Clone(extraction.KnownReferences)
	return Rules{
		Thresholds: rules.DefaultThresholds(),
		Extraction: extraction,
	}
}

// LoadRules decodes the file over the defaults, so keys it omits keep their
// default values. An empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	out := DefaultRules()
	if path == "" {
		return out, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return Rules{}, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	out.Thresholds = out.Thresholds.Normalize()
	return out, nil
}

// Apply folds environment overrides into the extraction settings. The salary
// fallback always follows the thresholds so both stages agree on it.
func (r Rules) Apply(cfg Config) Rules {
	if cfg.SynthesizePayslips {
		r.Extraction.SynthesizePayslips = true
	}
	if cfg.SynthesisMinMultiplier > 0 {
		r.Extraction.SynthesisMinMultiplier = cfg.SynthesisMinMultiplier
	}
	if cfg.SynthesisMaxMultiplier > 0 {
		r.Extraction.SynthesisMaxMultiplier = cfg.SynthesisMaxMultiplier
	}
	r.Extraction.DefaultAnnualSalary = r.Thresholds.Salary.DefaultAnnualSalary
	return r
}
