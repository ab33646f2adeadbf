// Package rules holds the compliance decision engine. Every DomainRules
// implementation is a pure function of the facts and derived checks it is given:
// no I/O, no clock, no randomness.
package rules

import (
	"fmt"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

// DomainRules decides one compliance domain.
type DomainRules interface {
	Domain() domain.AssessmentDomain
	RequiredEvidence() []domain.EvidenceCategory
	Decide(facts domain.ExtractedFacts, checks domain.DerivedChecks) domain.ComplianceVerdict
}

// ForDomain builds the rules for a domain.
func ForDomain(d domain.AssessmentDomain, t Thresholds) (DomainRules, error) {
	t = t.Normalize()
	switch d {
	case domain.DomainQualification:
		return NewQualificationRules(), nil
	case domain.DomainSalary:
		return NewSalaryRules(t.Salary), nil
	case domain.DomainSkills:
		return NewSkillsRules(t.Skills), nil
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "select domain rules", fmt.Errorf("unknown domain %q", d))
	}
}

// QualificationRules: any failed gate is a serious breach.
type QualificationRules struct{}

func NewQualificationRules() *QualificationRules {
	return &QualificationRules{}
}

func (r *QualificationRules) Domain() domain.AssessmentDomain {
	return domain.DomainQualification
}

func (r *QualificationRules) RequiredEvidence() []domain.EvidenceCategory {
	return []domain.EvidenceCategory{
		domain.EvidenceSponsorship,
		domain.EvidenceQualification,
		domain.EvidenceEnglishLanguage,
		domain.EvidenceCV,
	}
}

func (r *QualificationRules) Decide(_ domain.ExtractedFacts, checks domain.DerivedChecks) domain.ComplianceVerdict {
	var reasons []string
	if !checks.TimingValid {
		reasons = append(reasons, domain.ReasonQualificationTiming)
	}
	if !checks.QualificationRelevant {
		reasons = append(reasons, domain.ReasonQualificationRelevant)
	}
	if !checks.EnglishEvidence {
		reasons = append(reasons, domain.ReasonEnglishMissing)
	}
	if !checks.ExperienceEvidence {
		reasons = append(reasons, domain.ReasonExperienceMissing)
	}

	if len(reasons) > 0 {
		return domain.ComplianceVerdict{
			Status:    domain.StatusSeriousBreach,
			RiskLevel: domain.RiskHigh,
			RedFlag:   true,
			Reasons:   reasons,
		}
	}
	return domain.ComplianceVerdict{
		Status:    domain.StatusCompliant,
		RiskLevel: domain.RiskLow,
	}
}

// SalaryRules grades the number of months paid below the monthly requirement.
type SalaryRules struct {
	seriousBreachMonths int
}

func NewSalaryRules(t SalaryThresholds) *SalaryRules {
	months := t.SeriousBreachMonths
	if months <= 0 {
		months = DefaultThresholds().Salary.SeriousBreachMonths
	}
	return &SalaryRules{seriousBreachMonths: months}
}

func (r *SalaryRules) Domain() domain.AssessmentDomain {
	return domain.DomainSalary
}

func (r *SalaryRules) RequiredEvidence() []domain.EvidenceCategory {
	return []domain.EvidenceCategory{
		domain.EvidenceSponsorship,
		domain.EvidencePayslips,
		domain.EvidenceContracts,
	}
}

func (r *SalaryRules) Decide(_ domain.ExtractedFacts, checks domain.DerivedChecks) domain.ComplianceVerdict {
	months := checks.UnderThresholdMonths
	switch {
	case months >= r.seriousBreachMonths:
		return domain.ComplianceVerdict{
			Status:    domain.StatusSeriousBreach,
			RiskLevel: domain.RiskHigh,
			RedFlag:   true,
			Reasons:   []string{domain.ReasonUnderpaid},
		}
	case months > 0:
		return domain.ComplianceVerdict{
			Status:    domain.StatusBreach,
			RiskLevel: domain.RiskMedium,
			Reasons:   []string{domain.ReasonUnderpaid},
		}
	default:
		return domain.ComplianceVerdict{
			Status:    domain.StatusCompliant,
			RiskLevel: domain.RiskLow,
		}
	}
}

// SkillsRules evaluates five independent gates.
type SkillsRules struct {
	mediumRiskMaxFailures int
}

func NewSkillsRules(t SkillsThresholds) *SkillsRules {
	limit := t.MediumRiskMaxFailures
	if limit <= 0 {
		limit = DefaultThresholds().Skills.MediumRiskMaxFailures
	}
	return &SkillsRules{mediumRiskMaxFailures: limit}
}

func (r *SkillsRules) Domain() domain.AssessmentDomain {
	return domain.DomainSkills
}

func (r *SkillsRules) RequiredEvidence() []domain.EvidenceCategory {
	return []domain.EvidenceCategory{
		domain.EvidenceCV,
		domain.EvidenceReferences,
		domain.EvidenceContracts,
		domain.EvidenceJobDescription,
	}
}

func (r *SkillsRules) Decide(_ domain.ExtractedFacts, checks domain.DerivedChecks) domain.ComplianceVerdict {
	gates := []struct {
		passed bool
		reason string
	}{
		{len(checks.MissingEvidence) == 0, domain.ReasonDocumentsMissing},
		{checks.EmploymentHistoryConsistent, domain.ReasonHistoryInconsistent},
		{checks.ExperienceMatchesDuties, domain.ReasonDutiesMismatch},
		{checks.ReferencesCredible, domain.ReasonReferencesWeak},
		{checks.ExperienceRecentAndContinuous, domain.ReasonExperienceGap},
	}

	var reasons []string
	for _, gate := range gates {
		if !gate.passed {
			reasons = append(reasons, gate.reason)
		}
	}

	failures := len(reasons)
	switch {
	case failures == 0:
		return domain.ComplianceVerdict{
			Status:    domain.StatusCompliant,
			RiskLevel: domain.RiskLow,
		}
	case failures <= r.mediumRiskMaxFailures:
		return domain.ComplianceVerdict{
			Status:    domain.StatusBreach,
			RiskLevel: domain.RiskMedium,
			RedFlag:   true,
			Reasons:   reasons,
		}
	default:
		return domain.ComplianceVerdict{
			Status:    domain.StatusSeriousBreach,
			RiskLevel: domain.RiskHigh,
			RedFlag:   true,
			Reasons:   reasons,
		}
	}
}
