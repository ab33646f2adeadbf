package signals

import (
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestExtractor(settings Settings, seed uint64) *Extractor {
	return NewExtractor(settings, NewRandomSource(seed), func() time.Time { return fixedNow })
}

func doc(name, text string) domain.Document {
	return domain.Document{Name: name, ExtractedText: text}
}

func TestExtractWorkerNameFromCertificateFileName(t *testing.T) {
	facts := newTestExtractor(DefaultSettings(), 1).Extract([]domain.Document{
		doc("Worker from Jane Doe - Certificate of Sponsorship.pdf", ""),
	})

	if facts.WorkerName != "Jane Doe" {
		t.Fatalf("expected worker name Jane Doe, got %q", facts.WorkerName)
	}
	if facts.CaseReference != "C2G7X81Q4P" {
		t.Fatalf("expected pinned reference for known worker, got %q", facts.CaseReference)
	}
	if facts.IsIncomplete(domain.MarkerWorkerName) || facts.IsIncomplete(domain.MarkerCaseReference) {
		t.Fatalf("unexpected identity markers: %v", facts.Incomplete)
	}
	if !facts.Has(domain.EvidenceSponsorship) {
		t.Fatalf("expected sponsorship evidence, got %v", facts.PresentEvidence.Sorted())
	}
}

func TestMatchIdentityFirstPatternWins(t *testing.T) {
	m, ok := matchIdentity(sponsorshipIdentityPatterns, "Worker from Rajesh Kumar - Certificate of Sponsorship.pdf")
	if !ok {
		t.Fatalf("expected a match")
	}
	if m.Pattern != "worker_from_certificate" || m.Name != "Rajesh Kumar" {
		t.Fatalf("unexpected match: %+v", m)
	}

	m, ok = matchIdentity(sponsorshipIdentityPatterns, "Amir Haddad - CoS.pdf")
	if !ok || m.Pattern != "name_cos" || m.Name != "Amir Haddad" {
		t.Fatalf("unexpected bare CoS match: %+v ok=%v", m, ok)
	}

	if _, ok := matchIdentity(sponsorshipIdentityPatterns, "scan0001.pdf"); ok {
		t.Fatalf("expected no match for an unrelated name")
	}
}

func TestFallbackWorkerNameStripsBoilerplate(t *testing.T) {
	got := fallbackWorkerName("Certificate of Sponsorship Maria Lopez - signed copy.pdf")
	if got != "Maria Lopez" {
		t.Fatalf("expected Maria Lopez, got %q", got)
	}
}

func TestClassifyDocument(t *testing.T) {
	cases := []struct {
		name string
		text string
		want domain.EvidenceCategory
		ok   bool
	}{
		{name: "Jane Doe CV.pdf", want: domain.EvidenceCV, ok: true},
		{name: "payslip_2024-05.pdf", want: domain.EvidencePayslips, ok: true},
		{name: "BSc Computer Science Degree.pdf", want: domain.EvidenceQualification, ok: true},
		{name: "IELTS result.pdf", want: domain.EvidenceEnglishLanguage, ok: true},
		{name: "Employment Contract.docx", want: domain.EvidenceContracts, ok: true},
		{name: "Tom Payne reference.pdf", want: domain.EvidenceReferences, ok: true},
		{name: "Job Description - Developer.pdf", want: domain.EvidenceJobDescription, ok: true},
		{name: "certificate.pdf", want: domain.EvidenceSponsorship, ok: true},
		{name: "Training certificate.pdf", want: domain.EvidenceTraining, ok: true},
		{name: "scan0001.pdf", text: "Curriculum Vitae\nExperience: ...", want: domain.EvidenceCV, ok: true},
		{name: "scan0002.pdf", ok: false},
	}

	for _, tc := range cases {
		got, ok := ClassifyDocument(doc(tc.name, tc.text))
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%s: expected (%q,%v), got (%q,%v)", tc.name, tc.want, tc.ok, got, ok)
		}
	}
}

func TestExtractEmptyInputIsTotal(t *testing.T) {
	facts := newTestExtractor(DefaultSettings(), 2).Extract(nil)

	if facts.WorkerName != domain.UnknownWorkerName {
		t.Fatalf("expected placeholder name, got %q", facts.WorkerName)
	}
	if facts.JobTitle != domain.UnspecifiedJobTitle || facts.ClassificationCode != domain.UnknownClassification {
		t.Fatalf("unexpected role fallbacks: %q %q", facts.JobTitle, facts.ClassificationCode)
	}
	if !facts.AssignmentDate.Equal(fixedNow) {
		t.Fatalf("expected assignment date fallback to clock, got %v", facts.AssignmentDate)
	}
	if facts.CaseReference == "" || !strings.HasPrefix(facts.CaseReference, "COS-") {
		t.Fatalf("expected generated reference, got %q", facts.CaseReference)
	}
	if facts.PresentEvidence == nil || len(facts.PresentEvidence) != 0 {
		t.Fatalf("expected empty evidence set, got %v", facts.PresentEvidence)
	}
	if facts.PayslipSeries == nil {
		t.Fatalf("expected empty payslip series, got nil")
	}
	if facts.MonthlySalaryRequirement != 2168.40 {
		t.Fatalf("expected default monthly requirement 2168.40, got %v", facts.MonthlySalaryRequirement)
	}
	for _, marker := range []string{domain.MarkerWorkerName, domain.MarkerCaseReference, domain.MarkerAssignmentDate, domain.MarkerAnnualSalary} {
		if !facts.IsIncomplete(marker) {
			t.Fatalf("expected marker %s in %v", marker, facts.Incomplete)
		}
	}
}

func TestExtractUnrecognizedDocumentsIsTotal(t *testing.T) {
	facts := newTestExtractor(DefaultSettings(), 3).Extract([]domain.Document{
		doc("scan0001.pdf", ""),
		doc("IMG_2231.jpeg", "\x00\x01"),
	})
	if facts.WorkerName != domain.UnknownWorkerName {
		t.Fatalf("expected placeholder name, got %q", facts.WorkerName)
	}
	if len(facts.PresentEvidence) != 0 {
		t.Fatalf("expected no evidence, got %v", facts.PresentEvidence.Sorted())
	}
}

func TestGeneratedReferenceIsReproducibleWithSeed(t *testing.T) {
	docs := []domain.Document{doc("Amir Haddad - CoS.pdf", "")}
	a := newTestExtractor(DefaultSettings(), 42).Extract(docs)
	b := newTestExtractor(DefaultSettings(), 42).Extract(docs)
	if a.CaseReference != b.CaseReference {
		t.Fatalf("expected identical references, got %q and %q", a.CaseReference, b.CaseReference)
	}
	if !a.IsIncomplete(domain.MarkerCaseReference) {
		t.Fatalf("expected generated reference marker")
	}
}

func TestExtractTextFields(t *testing.T) {
	sponsorship := doc("Rajesh Kumar - CoS.pdf", strings.Join([]string{
		"Job title: Software Developer",
		"SOC code: 2136",
		"Date assigned: 05/11/2024",
		"Gross annual salary: £45,000.00",
		"Job duties: design, build and maintain payment services",
	}, "\n"))
	jd := doc("Job Description.pdf", "Duties: design payment services and maintain internal tooling")
	degree := doc("Rajesh Kumar BSc Degree.pdf", "Qualification: BSc Computer Science\nDate awarded: 20 March 2023")

	facts := newTestExtractor(DefaultSettings(), 4).Extract([]domain.Document{sponsorship, jd, degree})

	if facts.CaseReference != "C4H2M93T7L" {
		t.Fatalf("expected known reference, got %q", facts.CaseReference)
	}
	if facts.JobTitle != "Software Developer" || facts.ClassificationCode != "2136" {
		t.Fatalf("unexpected role fields: %q %q", facts.JobTitle, facts.ClassificationCode)
	}
	if want := time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC); !facts.AssignmentDate.Equal(want) {
		t.Fatalf("expected assignment %v, got %v", want, facts.AssignmentDate)
	}
	if want := time.Date(2023, 3, 20, 0, 0, 0, 0, time.UTC); !facts.QualificationObtainedDate.Equal(want) {
		t.Fatalf("expected qualification date %v, got %v", want, facts.QualificationObtainedDate)
	}
	if facts.QualificationLevel != 6 {
		t.Fatalf("expected level 6, got %d", facts.QualificationLevel)
	}
	if facts.AnnualSalary != 45000 || facts.MonthlySalaryRequirement != 3750 {
		t.Fatalf("unexpected salary fields: %v %v", facts.AnnualSalary, facts.MonthlySalaryRequirement)
	}
	if !strings.Contains(facts.CoSDuties, "payment services") || !strings.Contains(facts.JobDescriptionDuties, "internal tooling") {
		t.Fatalf("unexpected duties: %q / %q", facts.CoSDuties, facts.JobDescriptionDuties)
	}
	if len(facts.Incomplete) != 1 || facts.Incomplete[0] != domain.MarkerPayslipSeries {
		t.Fatalf("expected only payslip marker, got %v", facts.Incomplete)
	}
}

func TestExtractParsesPayslipSchedule(t *testing.T) {
	schedule := doc("Payroll summary.pdf", strings.Join([]string{
		"2024-03: 2,100.00",
		"2024-01: 2,200.00",
		"2024-02: 2,168.40",
	}, "\n"))
	facts := newTestExtractor(DefaultSettings(), 5).Extract([]domain.Document{schedule})

	if len(facts.PayslipSeries) != 3 {
		t.Fatalf("expected 3 entries, got %+v", facts.PayslipSeries)
	}
	if facts.PayslipSeries[0].Period != "2024-01" || facts.PayslipSeries[2].AmountPaid != 2100 {
		t.Fatalf("unexpected ordering: %+v", facts.PayslipSeries)
	}
	if facts.IsIncomplete(domain.MarkerPayslipSeries) {
		t.Fatalf("unexpected payslip marker")
	}
}

func TestExtractSynthesizesPayslipsWhenEnabled(t *testing.T) {
	settings := DefaultSettings()
	settings.SynthesizePayslips = true
	docs := []domain.Document{doc("Worker from Jane Doe - Certificate of Sponsorship.pdf", ""), doc("payslip.pdf", "")}

	a := newTestExtractor(settings, 9).Extract(docs)
	b := newTestExtractor(settings, 9).Extract(docs)

	if len(a.PayslipSeries) != settings.DefaultPayslipMonths {
		t.Fatalf("expected %d synthesized months, got %d", settings.DefaultPayslipMonths, len(a.PayslipSeries))
	}
	low := roundPence(a.MonthlySalaryRequirement * settings.SynthesisMinMultiplier)
	high := roundPence(a.MonthlySalaryRequirement * settings.SynthesisMaxMultiplier)
	for i, entry := range a.PayslipSeries {
		if !entry.Synthesized {
			t.Fatalf("entry %d not marked synthesized", i)
		}
		if entry.AmountPaid < low || entry.AmountPaid > high {
			t.Fatalf("entry %d amount %v outside [%v,%v]", i, entry.AmountPaid, low, high)
		}
		if entry != b.PayslipSeries[i] {
			t.Fatalf("expected reproducible series, got %+v and %+v", entry, b.PayslipSeries[i])
		}
	}
	if a.PayslipSeries[len(a.PayslipSeries)-1].Period != fixedNow.Format(periodLayout) {
		t.Fatalf("expected series to end at clock month, got %s", a.PayslipSeries[len(a.PayslipSeries)-1].Period)
	}
	if !a.IsIncomplete(domain.MarkerPayslipSynthesized) {
		t.Fatalf("expected synthesized marker in %v", a.Incomplete)
	}
}

func TestExtractDoesNotSynthesizeByDefault(t *testing.T) {
	facts := newTestExtractor(DefaultSettings(), 10).Extract([]domain.Document{doc("payslip.pdf", "")})
	if len(facts.PayslipSeries) != 0 {
		t.Fatalf("expected no payslips, got %+v", facts.PayslipSeries)
	}
	if !facts.IsIncomplete(domain.MarkerPayslipSeries) {
		t.Fatalf("expected payslip marker")
	}
}
