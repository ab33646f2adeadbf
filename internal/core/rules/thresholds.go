package rules

import "strings"

// Thresholds are the business constants the decision rules run against. They are
// configuration, loaded from the rules file and merged over DefaultThresholds.
type Thresholds struct {
	Salary        SalaryThresholds        `yaml:"salary"`
	Skills        SkillsThresholds        `yaml:"skills"`
	Qualification QualificationThresholds `yaml:"qualification"`
}

type SalaryThresholds struct {
	// SeriousBreachMonths is the count of underpaid months at which a salary
	// assessment becomes a serious breach.
	SeriousBreachMonths int     `yaml:"serious_breach_months"`
	DefaultAnnualSalary float64 `yaml:"default_annual_salary"`
}

type SkillsThresholds struct {
	// MediumRiskMaxFailures is the highest failing-gate count still rated MEDIUM.
	MediumRiskMaxFailures int `yaml:"medium_risk_max_failures"`
}

type QualificationThresholds struct {
	DefaultRequiredLevel int            `yaml:"default_required_level"`
	ClassificationLevels map[string]int `yaml:"classification_levels"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Salary: SalaryThresholds{
			SeriousBreachMonths: 3,
			DefaultAnnualSalary: 26020.80,
		},
		Skills: SkillsThresholds{
			MediumRiskMaxFailures: 2,
		},
		Qualification: QualificationThresholds{
			DefaultRequiredLevel: 3,
			ClassificationLevels: map[string]int{
				"2136": 6,
				"2135": 6,
				"2139": 6,
				"2231": 6,
				"6145": 3,
				"6146": 3,
			},
		},
	}
}

// Normalize fills zero values from DefaultThresholds.
func (t Thresholds) Normalize() Thresholds {
	out := t
	def := DefaultThresholds()

	if out.Salary.SeriousBreachMonths <= 0 {
		out.Salary.SeriousBreachMonths = def.Salary.SeriousBreachMonths
	}
	if out.Salary.DefaultAnnualSalary <= 0 {
		out.Salary.DefaultAnnualSalary = def.Salary.DefaultAnnualSalary
	}
	if out.Skills.MediumRiskMaxFailures <= 0 {
		out.Skills.MediumRiskMaxFailures = def.Skills.MediumRiskMaxFailures
	}
	if out.Qualification.DefaultRequiredLevel <= 0 {
		out.Qualification.DefaultRequiredLevel = def.Qualification.DefaultRequiredLevel
	}
	if len(out.Qualification.ClassificationLevels) == 0 {
		out.Qualification.ClassificationLevels = def.Qualification.ClassificationLevels
	}
	return out
}

// RequiredLevel returns the minimum qualification level for a SOC code.
func (q QualificationThresholds) RequiredLevel(classificationCode string) int {
	if level, ok := q.ClassificationLevels[strings.TrimSpace(classificationCode)]; ok {
		return level
	}
	return q.DefaultRequiredLevel
}
