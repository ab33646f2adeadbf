package narrative

import (
	"fmt"
	"strings"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

const reportDateLayout = "2 January 2006"

var statusWording = map[domain.ComplianceStatus]string{
	domain.StatusCompliant:     "COMPLIANT with the sponsor duties assessed",
	domain.StatusBreach:        "in BREACH of the sponsor duties assessed",
	domain.StatusSeriousBreach: "in SERIOUS_BREACH of the sponsor duties assessed",
}

var domainTitles = map[domain.AssessmentDomain]string{
	domain.DomainQualification: "qualification and eligibility",
	domain.DomainSalary:        "salary and payment",
	domain.DomainSkills:        "skills and experience",
}

// Template renders the local narrative. It always states the verdict status, the
// risk level and the missing evidence list.
func Template(d domain.AssessmentDomain, facts domain.ExtractedFacts, checks domain.DerivedChecks, verdict domain.ComplianceVerdict) string {
	var b strings.Builder

	title := domainTitles[d]
	if title == "" {
		title = string(d)
	}
	fmt.Fprintf(&b, "Compliance assessment (%s) for %s, Certificate of Sponsorship reference %s.\n\n", title, facts.WorkerName, facts.CaseReference)

	fmt.Fprintf(&b, "The sponsored worker is engaged as %s (SOC code %s)", facts.JobTitle, facts.ClassificationCode)
	if facts.IsIncomplete(domain.MarkerAssignmentDate) {
		b.WriteString("; the date of assignment could not be established from the documents provided.\n\n")
	} else {
		fmt.Fprintf(&b, ", with the certificate assigned on %s.\n\n", facts.AssignmentDate.Format(reportDateLayout))
	}

	status := statusWording[verdict.Status]
	if status == "" {
		status = string(verdict.Status)
	}
	fmt.Fprintf(&b, "Outcome: on the evidence provided the sponsor is assessed as %s. Status: %s. Risk level: %s.", status, verdict.Status, verdict.RiskLevel)
	if verdict.RedFlag {
		b.WriteString(" This case is RED FLAGGED for immediate review.")
	}
	b.WriteString("\n\n")

	writeFindings(&b, d, facts, checks)

	if len(checks.MissingEvidence) == 0 {
		b.WriteString("Missing evidence: none. All evidence required for this assessment was provided.\n")
	} else {
		labels := make([]string, 0, len(checks.MissingEvidence))
		for _, c := range checks.MissingEvidence {
			labels = append(labels, c.Label())
		}
		fmt.Fprintf(&b, "Missing evidence: %s. The sponsor should obtain and retain these documents.\n", strings.Join(labels, "; "))
	}

	if len(checks.Inconsistencies) > 0 {
		b.WriteString("\nInconsistencies noted:\n")
		for _, note := range checks.Inconsistencies {
			fmt.Fprintf(&b, "- %s\n", note)
		}
	}

	if len(verdict.Reasons) > 0 {
		fmt.Fprintf(&b, "\nGrounds: %s.\n", strings.Join(verdict.Reasons, ", "))
	}

	return strings.TrimRight(b.String(), "\n")
}

func writeFindings(b *strings.Builder, d domain.AssessmentDomain, facts domain.ExtractedFacts, checks domain.DerivedChecks) {
	b.WriteString("Findings:\n")
	switch d {
	case domain.DomainQualification:
		qualification := facts.QualificationTitle
		if qualification == "" {
			qualification = "no qualification document"
		}
		fmt.Fprintf(b, "- Qualification: %s (RQF level %d).\n", qualification, facts.QualificationLevel)
		finding(b, "Qualification obtained on or before the date of assignment", checks.TimingValid)
		finding(b, "Qualification relevant to the sponsored role", checks.QualificationRelevant)
		finding(b, "English language requirement evidenced", checks.EnglishEvidence)
		finding(b, "Relevant experience evidenced", checks.ExperienceEvidence)
	case domain.DomainSalary:
		fmt.Fprintf(b, "- Annual salary on the certificate: £%.2f; monthly requirement £%.2f.\n", facts.AnnualSalary, facts.MonthlySalaryRequirement)
		fmt.Fprintf(b, "- Payslips reviewed: %d; months paid below the requirement: %d.\n", len(facts.PayslipSeries), checks.UnderThresholdMonths)
		for _, p := range facts.PayslipSeries {
			if p.AmountPaid < facts.MonthlySalaryRequirement {
				fmt.Fprintf(b, "  - %s: £%.2f paid.\n", p.Period, p.AmountPaid)
			}
		}
	default:
		finding(b, "Employment history consistent", checks.EmploymentHistoryConsistent)
		finding(b, "Experience matches the sponsored duties", checks.ExperienceMatchesDuties)
		finding(b, "References credible", checks.ReferencesCredible)
		finding(b, "Experience recent and continuous", checks.ExperienceRecentAndContinuous)
	}
	b.WriteString("\n")
}

func finding(b *strings.Builder, label string, ok bool) {
	result := "satisfied"
	if !ok {
		result = "NOT satisfied"
	}
	fmt.Fprintf(b, "- %s: %s.\n", label, result)
}
