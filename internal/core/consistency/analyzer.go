// Package consistency derives the higher-order checks the decision rules use.
//
// The evidence rules here are coarse placeholders for genuine document
// comparison: they only look at which evidence categories are present. Text is
// consulted for inconsistency notes, which never change a check.
package consistency

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
	"github.com/kirillkom/sponsor-compliance/internal/core/rules"
)

const defaultMinDutyOverlap = 0.3

type Analyzer struct {
	required       []domain.EvidenceCategory
	qualification  rules.QualificationThresholds
	minDutyOverlap float64
}

func NewAnalyzer(required []domain.EvidenceCategory, qualification rules.QualificationThresholds) *Analyzer {
	return &Analyzer{
		required:       append([]domain.EvidenceCategory(nil), required...),
		qualification:  qualification,
		minDutyOverlap: defaultMinDutyOverlap,
	}
}

func (a *Analyzer) Analyze(facts domain.ExtractedFacts) domain.DerivedChecks {
	hasCV := facts.Has(domain.EvidenceCV)
	hasReferences := facts.Has(domain.EvidenceReferences)
	hasContracts := facts.Has(domain.EvidenceContracts)
	hasPayslips := facts.Has(domain.EvidencePayslips)
	hasJobDescription := facts.Has(domain.EvidenceJobDescription)

	checks := domain.DerivedChecks{
		EmploymentHistoryConsistent:   hasCV && hasReferences && hasContracts,
		ExperienceMatchesDuties:       hasCV && hasJobDescription,
		ReferencesCredible:            hasReferences,
		ExperienceRecentAndContinuous: hasContracts || hasPayslips,

		TimingValid:           timingValid(facts),
		QualificationRelevant: a.qualificationRelevant(facts),
		EnglishEvidence:       facts.Has(domain.EvidenceEnglishLanguage),
		ExperienceEvidence:    hasCV || hasReferences,

		UnderThresholdMonths: UnderThresholdMonths(facts.PayslipSeries, facts.MonthlySalaryRequirement),

		MissingEvidence: facts.PresentEvidence.Missing(a.required),
	}
	checks.Inconsistencies = a.inconsistencies(facts)
	return checks
}

// UnderThresholdMonths counts payslips paid below the monthly requirement.
func UnderThresholdMonths(series []domain.PayslipEntry, requirement float64) int {
	count := 0
	for _, p := range series {
		if p.AmountPaid < requirement {
			count++
		}
	}
	return count
}

func timingValid(facts domain.ExtractedFacts) bool {
	if facts.IsIncomplete(domain.MarkerQualificationDate) || facts.IsIncomplete(domain.MarkerAssignmentDate) {
		return false
	}
	if facts.QualificationObtainedDate.IsZero() || facts.AssignmentDate.IsZero() {
		return false
	}
	return !facts.QualificationObtainedDate.After(facts.AssignmentDate)
}

func (a *Analyzer) qualificationRelevant(facts domain.ExtractedFacts) bool {
	if !facts.Has(domain.EvidenceQualification) {
		return false
	}
	return facts.QualificationLevel >= a.qualification.RequiredLevel(facts.ClassificationCode)
}

func (a *Analyzer) inconsistencies(facts domain.ExtractedFacts) []string {
	var notes []string

	if facts.CoSDuties != "" && facts.JobDescriptionDuties != "" {
		overlap := DutyOverlap(facts.CoSDuties, facts.JobDescriptionDuties)
		if overlap < a.minDutyOverlap {
			notes = append(notes, fmt.Sprintf(
				"duties on the Certificate of Sponsorship share %d%% of their terms with the job description",
				int(math.Round(overlap*100)),
			))
		}
	}

	if !facts.QualificationObtainedDate.IsZero() && !facts.IsIncomplete(domain.MarkerAssignmentDate) &&
		facts.QualificationObtainedDate.After(facts.AssignmentDate) {
		notes = append(notes, fmt.Sprintf(
			"qualification obtained on %s, after the assignment date %s",
			facts.QualificationObtainedDate.Format("2 January 2006"),
			facts.AssignmentDate.Format("2 January 2006"),
		))
	}

	for _, p := range facts.PayslipSeries {
		if p.Synthesized {
			notes = append(notes, "payslip figures were estimated because no amounts could be read from the documents")
			break
		}
	}
	return notes
}

// DutyOverlap is the share of distinct CoS duty terms that also appear in the
// job description.
func DutyOverlap(cosDuties, jobDescription string) float64 {
	cosTerms := dutyTerms(cosDuties)
	if len(cosTerms) == 0 {
		return 0
	}
	jdTerms := dutyTerms(jobDescription)

	shared := 0
	for term := range cosTerms {
		if _, ok := jdTerms[term]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(cosTerms))
}

var stopWords = map[string]struct{}{
	"with": {}, "from": {}, "that": {}, "this": {}, "will": {}, "have": {}, "their": {},
	"they": {}, "into": {}, "other": {}, "including": {}, "where": {}, "when": {},
	"within": {}, "ensure": {}, "such": {}, "also": {}, "which": {},
}

func dutyTerms(text string) map[string]struct{} {
	out := make(map[string]struct{})
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, f := range fields {
		if len(f) < 4 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		out[f] = struct{}{}
	}
	return out
}
