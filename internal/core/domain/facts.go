package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type AssessmentDomain string

const (
	DomainQualification AssessmentDomain = "qualification"
	DomainSalary        AssessmentDomain = "salary"
	DomainSkills        AssessmentDomain = "skills"
)

func ParseAssessmentDomain(raw string) (AssessmentDomain, error) {
	switch d := AssessmentDomain(strings.ToLower(strings.TrimSpace(raw))); d {
	case DomainQualification, DomainSalary, DomainSkills:
		return d, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse domain", fmt.Errorf("unknown assessment domain %q", raw))
	}
}

const (
	UnknownWorkerName     = "Unknown Worker"
	UnspecifiedJobTitle   = "Unspecified Role"
	UnknownClassification = "UNKNOWN"
)

// Markers recorded in ExtractedFacts.Incomplete when a fallback value was used.
const (
	MarkerWorkerName         = "worker_name"
	MarkerCaseReference      = "case_reference"
	MarkerJobTitle           = "job_title"
	MarkerClassificationCode = "classification_code"
	MarkerAssignmentDate     = "assignment_date"
	MarkerQualificationDate  = "qualification_obtained_date"
	MarkerQualificationLevel = "qualification_level"
	MarkerAnnualSalary       = "annual_salary"
	MarkerPayslipSeries      = "payslip_series"
	MarkerPayslipSynthesized = "payslip_series:synthesized"
)

var markerDomains = map[string][]AssessmentDomain{
	MarkerQualificationDate:  {DomainQualification},
	MarkerQualificationLevel: {DomainQualification},
	MarkerAnnualSalary:       {DomainSalary},
	MarkerPayslipSeries:      {DomainSalary},
	MarkerPayslipSynthesized: {DomainSalary},
}

type PayslipEntry struct {
	Period      string  `json:"period"`
	AmountPaid  float64 `json:"amount_paid"`
	Synthesized bool    `json:"synthesized,omitempty"`
}

// ExtractedFacts is the flat record produced by signal extraction. Every field
// carries a defined value; fallbacks are listed in Incomplete.
type ExtractedFacts struct {
	WorkerName         string      `json:"worker_name"`
	CaseReference      string      `json:"case_reference"`
	JobTitle           string      `json:"job_title"`
	ClassificationCode string      `json:"classification_code"`
	AssignmentDate     time.Time   `json:"assignment_date"`
	PresentEvidence    EvidenceSet `json:"present_evidence"`

	CoSDuties            string `json:"cos_duties,omitempty"`
	JobDescriptionDuties string `json:"job_description_duties,omitempty"`

	QualificationTitle        string    `json:"qualification_title,omitempty"`
	QualificationLevel        int       `json:"qualification_level,omitempty"`
	QualificationObtainedDate time.Time `json:"qualification_obtained_date,omitzero"`

	AnnualSalary             float64        `json:"annual_salary,omitempty"`
	MonthlySalaryRequirement float64        `json:"monthly_salary_requirement,omitempty"`
	PayslipSeries            []PayslipEntry `json:"payslip_series,omitempty"`

	Incomplete []string `json:"incomplete,omitempty"`
}

func (f ExtractedFacts) Has(c EvidenceCategory) bool {
	return f.PresentEvidence.Has(c)
}

func (f ExtractedFacts) IsIncomplete(marker string) bool {
	for _, m := range f.Incomplete {
		if m == marker {
			return true
		}
	}
	return false
}

// Project returns the copy of the facts a single domain decides on. Fields owned
// by other domains are cleared so domains never share state.
func (f ExtractedFacts) Project(d AssessmentDomain) ExtractedFacts {
	out := ExtractedFacts{
		WorkerName:         f.WorkerName,
		CaseReference:      f.CaseReference,
		JobTitle:           f.JobTitle,
		ClassificationCode: f.ClassificationCode,
		AssignmentDate:     f.AssignmentDate,
		PresentEvidence:    f.PresentEvidence.Clone(),
	}

	switch d {
	case DomainQualification:
		out.QualificationTitle = f.QualificationTitle
		out.QualificationLevel = f.QualificationLevel
		out.QualificationObtainedDate = f.QualificationObtainedDate
	case DomainSalary:
		out.AnnualSalary = f.AnnualSalary
		out.MonthlySalaryRequirement = f.MonthlySalaryRequirement
		out.PayslipSeries = append([]PayslipEntry(nil), f.PayslipSeries...)
	case DomainSkills:
		out.CoSDuties = f.CoSDuties
		out.JobDescriptionDuties = f.JobDescriptionDuties
	}

	for _, marker := range f.Incomplete {
		if markerBelongsTo(marker, d) {
			out.Incomplete = append(out.Incomplete, marker)
		}
	}
	return out
}

func markerBelongsTo(marker string, d AssessmentDomain) bool {
	owners, ok := markerDomains[marker]
	if !ok {
		return true
	}
	for _, owner := range owners {
		if owner == d {
			return true
		}
	}
	return false
}

// ValidateFacts rejects values the decision engine is not defined for.
func ValidateFacts(f ExtractedFacts) error {
	if f.AnnualSalary < 0 {
		return WrapError(ErrInvalidInput, "validate facts", errors.New("annual salary is negative"))
	}
	if f.MonthlySalaryRequirement < 0 {
		return WrapError(ErrInvalidInput, "validate facts", errors.New("monthly salary requirement is negative"))
	}
	for _, p := range f.PayslipSeries {
		if p.AmountPaid < 0 {
			return WrapError(ErrInvalidInput, "validate facts", fmt.Errorf("payslip %s has negative amount", p.Period))
		}
	}
	if f.QualificationLevel < 0 {
		return WrapError(ErrInvalidInput, "validate facts", errors.New("qualification level is negative"))
	}
	return nil
}
