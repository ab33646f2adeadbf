package signals

import (
	"log/slog"
	"time"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

// Settings tunes extraction fallbacks.
type Settings struct {
	DefaultAnnualSalary    float64           `yaml:"default_annual_salary"`
	SynthesizePayslips     bool              `yaml:"synthesize_payslips"`
	SynthesisMinMultiplier float64           `yaml:"synthesis_min_multiplier"`
	SynthesisMaxMultiplier float64           `yaml:"synthesis_max_multiplier"`
	DefaultPayslipMonths   int               `yaml:"default_payslip_months"`
	KnownReferences        map[string]string `yaml:"known_references"`
}

func DefaultSettings() Settings {
	return Settings{
		DefaultAnnualSalary:    26020.80,
		SynthesizePayslips:     false,
		SynthesisMinMultiplier: 0.85,
		SynthesisMaxMultiplier: 1.15,
		DefaultPayslipMonths:   6,
		KnownReferences:        DefaultKnownReferences,
	}
}

func (s Settings) normalized() Settings {
	d := DefaultSettings()
	if s.DefaultAnnualSalary <= 0 {
		s.DefaultAnnualSalary = d.DefaultAnnualSalary
	}
	if s.SynthesisMinMultiplier <= 0 {
		s.SynthesisMinMultiplier = d.SynthesisMinMultiplier
	}
	if s.SynthesisMaxMultiplier <= 0 {
		s.SynthesisMaxMultiplier = d.SynthesisMaxMultiplier
	}
	if s.DefaultPayslipMonths <= 0 {
		s.DefaultPayslipMonths = d.DefaultPayslipMonths
	}
	if s.KnownReferences == nil {
		s.KnownReferences = d.KnownReferences
	}
	return s
}

type Extractor struct {
	settings Settings
	random   RandomSource
	now      func() time.Time
	logger   *slog.Logger
}

// NewExtractor builds an extractor. A nil random source uses the process-wide
// generator and a nil clock uses time.Now.
func NewExtractor(settings Settings, random RandomSource, now func() time.Time) *Extractor {
	if random == nil {
		random = globalSource{}
	}
	if now == nil {
		now = time.Now
	}
	return &Extractor{
		settings: settings.normalized(),
		random:   random,
		now:      now,
		logger:   slog.Default(),
	}
}

func (e *Extractor) WithLogger(logger *slog.Logger) *Extractor {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// Extract never fails. A panic inside any heuristic yields the default facts
// with every fallback marker set.
func (e *Extractor) Extract(docs []domain.Document) (facts domain.ExtractedFacts) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extraction_recovered", "panic", r, "documents", len(docs))
			facts = e.defaults()
		}
	}()
	return e.extract(docs)
}

func (e *Extractor) defaults() domain.ExtractedFacts {
	annual := e.settings.DefaultAnnualSalary
	return domain.ExtractedFacts{
		WorkerName:               domain.UnknownWorkerName,
		CaseReference:            "COS-UNKNOWN",
		JobTitle:                 domain.UnspecifiedJobTitle,
		ClassificationCode:       domain.UnknownClassification,
		AssignmentDate:           e.now().UTC(),
		PresentEvidence:          domain.NewEvidenceSet(),
		AnnualSalary:             annual,
		MonthlySalaryRequirement: roundPence(annual / 12),
		PayslipSeries:            []domain.PayslipEntry{},
		Incomplete: []string{
			domain.MarkerWorkerName,
			domain.MarkerCaseReference,
			domain.MarkerJobTitle,
			domain.MarkerClassificationCode,
			domain.MarkerAssignmentDate,
			domain.MarkerQualificationDate,
			domain.MarkerQualificationLevel,
			domain.MarkerAnnualSalary,
			domain.MarkerPayslipSeries,
		},
	}
}

func (e *Extractor) extract(docs []domain.Document) domain.ExtractedFacts {
	byCategory := make(map[domain.EvidenceCategory][]domain.Document)
	present := domain.NewEvidenceSet()
	for _, doc := range docs {
		category, ok := ClassifyDocument(doc)
		if !ok {
			continue
		}
		present.Add(category)
		byCategory[category] = append(byCategory[category], doc)
	}

	facts := domain.ExtractedFacts{PresentEvidence: present}
	missing := func(marker string) {
		facts.Incomplete = append(facts.Incomplete, marker)
	}

	sponsorship := byCategory[domain.EvidenceSponsorship]

	name, ok := resolveWorkerName(sponsorship, byCategory[domain.EvidenceCV])
	facts.WorkerName = name
	if !ok {
		missing(domain.MarkerWorkerName)
	}

	reference, ok := resolveReference(sponsorship, facts.WorkerName, e.settings.KnownReferences, e.random)
	facts.CaseReference = reference
	if !ok {
		missing(domain.MarkerCaseReference)
	}

	// Sponsorship text is authoritative for role fields; other documents fill gaps.
	roleDocs := append(append([]domain.Document(nil), sponsorship...), byCategory[domain.EvidenceJobDescription]...)
	roleDocs = append(roleDocs, byCategory[domain.EvidenceContracts]...)

	if facts.JobTitle, ok = findJobTitle(roleDocs); !ok {
		missing(domain.MarkerJobTitle)
	}
	if facts.ClassificationCode, ok = findClassificationCode(append(roleDocs, docs...)); !ok {
		missing(domain.MarkerClassificationCode)
	}
	if facts.AssignmentDate, ok = findAssignmentDate(sponsorship); !ok {
		facts.AssignmentDate = e.now().UTC()
		missing(domain.MarkerAssignmentDate)
	}

	facts.CoSDuties = findDuties(sponsorship, false)
	facts.JobDescriptionDuties = findDuties(byCategory[domain.EvidenceJobDescription], true)

	qualification := findQualification(byCategory[domain.EvidenceQualification])
	facts.QualificationTitle = qualification.Title
	facts.QualificationLevel = qualification.Level
	if qualification.Level == 0 {
		missing(domain.MarkerQualificationLevel)
	}
	if qualification.HasDate {
		facts.QualificationObtainedDate = qualification.Obtained
	} else {
		missing(domain.MarkerQualificationDate)
	}

	salaryDocs := append(append([]domain.Document(nil), sponsorship...), byCategory[domain.EvidenceContracts]...)
	if facts.AnnualSalary, ok = findAnnualSalary(salaryDocs); !ok {
		facts.AnnualSalary = e.settings.DefaultAnnualSalary
		missing(domain.MarkerAnnualSalary)
	}
	facts.MonthlySalaryRequirement = roundPence(facts.AnnualSalary / 12)

	payslipDocs := byCategory[domain.EvidencePayslips]
	facts.PayslipSeries = parsePayslips(payslipDocs)
	if len(facts.PayslipSeries) == 0 {
		missing(domain.MarkerPayslipSeries)
		if len(payslipDocs) > 0 && e.settings.SynthesizePayslips {
			months := max(len(payslipDocs), e.settings.DefaultPayslipMonths)
			facts.PayslipSeries = synthesizePayslips(synthesisPlan{
				Months:        months,
				Baseline:      facts.MonthlySalaryRequirement,
				MinMultiplier: e.settings.SynthesisMinMultiplier,
				MaxMultiplier: e.settings.SynthesisMaxMultiplier,
				End:           facts.AssignmentDate,
			}, e.random)
			missing(domain.MarkerPayslipSynthesized)
		}
	}
	if facts.PayslipSeries == nil {
		facts.PayslipSeries = []domain.PayslipEntry{}
	}

	return facts
}
