package narrative

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

type narrativeServiceFake struct {
	text  string
	err   error
	calls int
	last  domain.NarrativeRequest
	block bool
}

func (f *narrativeServiceFake) Generate(ctx context.Context, req domain.NarrativeRequest) (string, error) {
	f.calls++
	f.last = req
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.text, f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func skillsInput() (domain.ExtractedFacts, domain.DerivedChecks, domain.ComplianceVerdict) {
	facts := domain.ExtractedFacts{
		WorkerName:         "Jane Doe",
		CaseReference:      "C2G7X81Q4P",
		JobTitle:           "Software Developer",
		ClassificationCode: "2136",
		AssignmentDate:     time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC),
		PresentEvidence:    domain.NewEvidenceSet(domain.EvidenceCV, domain.EvidenceContracts),
	}
	checks := domain.DerivedChecks{
		EmploymentHistoryConsistent:   false,
		ExperienceMatchesDuties:       false,
		ReferencesCredible:            false,
		ExperienceRecentAndContinuous: true,
		MissingEvidence:               []domain.EvidenceCategory{domain.EvidenceReferences, domain.EvidenceJobDescription},
		Inconsistencies:               []string{"duties overlap 10%"},
	}
	verdict := domain.ComplianceVerdict{
		Status:    domain.StatusSeriousBreach,
		RiskLevel: domain.RiskHigh,
		RedFlag:   true,
		Reasons:   []string{domain.ReasonDocumentsMissing},
	}
	return facts, checks, verdict
}

func TestRenderUsesServiceText(t *testing.T) {
	service := &narrativeServiceFake{text: "  Generated report.  "}
	renderer := NewRenderer(service, time.Second, quietLogger())
	facts, checks, verdict := skillsInput()

	got := renderer.Render(context.Background(), domain.DomainSkills, facts, checks, verdict)

	if got.Source != domain.NarrativeGenerated || got.Text != "Generated report." {
		t.Fatalf("unexpected narrative: %+v", got)
	}
	if service.last.WorkerName != "Jane Doe" || service.last.AssignmentDate != "2024-11-05" {
		t.Fatalf("unexpected request: %+v", service.last)
	}
	if len(service.last.MissingEvidence) != 2 || service.last.MissingEvidence[0] != "Employment references" {
		t.Fatalf("unexpected missing evidence: %v", service.last.MissingEvidence)
	}
	if service.last.InconsistenciesDescription != "duties overlap 10%" {
		t.Fatalf("unexpected inconsistencies: %q", service.last.InconsistenciesDescription)
	}
}

func TestRenderFallsBackOnServiceError(t *testing.T) {
	service := &narrativeServiceFake{err: errors.New("connection refused")}
	renderer := NewRenderer(service, time.Second, quietLogger())
	facts, checks, verdict := skillsInput()

	got := renderer.Render(context.Background(), domain.DomainSkills, facts, checks, verdict)

	if got.Source != domain.NarrativeTemplate {
		t.Fatalf("expected template source, got %s", got.Source)
	}
	for _, want := range []string{"SERIOUS_BREACH", "HIGH", "RED FLAGGED", "Employment references", "Job description", "duties overlap 10%"} {
		if !strings.Contains(got.Text, want) {
			t.Fatalf("expected %q in template narrative:\n%s", want, got.Text)
		}
	}
}

func TestRenderFallsBackOnEmptyText(t *testing.T) {
	renderer := NewRenderer(&narrativeServiceFake{text: "   "}, time.Second, quietLogger())
	facts, checks, verdict := skillsInput()

	got := renderer.Render(context.Background(), domain.DomainSkills, facts, checks, verdict)
	if got.Source != domain.NarrativeTemplate {
		t.Fatalf("expected template fallback for empty text, got %+v", got)
	}
}

func TestRenderBoundsServiceCall(t *testing.T) {
	service := &narrativeServiceFake{block: true}
	renderer := NewRenderer(service, 20*time.Millisecond, quietLogger())
	facts, checks, verdict := skillsInput()

	started := time.Now()
	got := renderer.Render(context.Background(), domain.DomainSkills, facts, checks, verdict)
	if time.Since(started) > 2*time.Second {
		t.Fatalf("render did not respect timeout")
	}
	if got.Source != domain.NarrativeTemplate {
		t.Fatalf("expected template fallback after timeout, got %s", got.Source)
	}
}

func TestRenderWithoutServiceUsesTemplate(t *testing.T) {
	renderer := NewRenderer(nil, 0, nil)
	facts, checks, verdict := skillsInput()
	verdict = domain.ComplianceVerdict{Status: domain.StatusCompliant, RiskLevel: domain.RiskLow}
	checks.MissingEvidence = []domain.EvidenceCategory{}
	checks.Inconsistencies = nil

	got := renderer.Render(context.Background(), domain.DomainSkills, facts, checks, verdict)

	if got.Source != domain.NarrativeTemplate {
		t.Fatalf("expected template source, got %s", got.Source)
	}
	if !strings.Contains(got.Text, "Status: COMPLIANT") || !strings.Contains(got.Text, "Missing evidence: none") {
		t.Fatalf("unexpected template narrative:\n%s", got.Text)
	}
	if strings.Contains(got.Text, "RED FLAGGED") {
		t.Fatalf("compliant narrative must not be red flagged:\n%s", got.Text)
	}
}

func TestTemplateSalaryFindingsListUnderpaidMonths(t *testing.T) {
	facts := domain.ExtractedFacts{
		WorkerName:               "Rajesh Kumar",
		CaseReference:            "C4H2M93T7L",
		JobTitle:                 domain.UnspecifiedJobTitle,
		ClassificationCode:       domain.UnknownClassification,
		AnnualSalary:             26020.80,
		MonthlySalaryRequirement: 2168.40,
		PayslipSeries: []domain.PayslipEntry{
			{Period: "2024-01", AmountPaid: 2000},
			{Period: "2024-02", AmountPaid: 2200},
		},
		Incomplete: []string{domain.MarkerAssignmentDate},
	}
	checks := domain.DerivedChecks{UnderThresholdMonths: 1, MissingEvidence: []domain.EvidenceCategory{}}
	verdict := domain.ComplianceVerdict{Status: domain.StatusBreach, RiskLevel: domain.RiskMedium, Reasons: []string{domain.ReasonUnderpaid}}

	text := Template(domain.DomainSalary, facts, checks, verdict)

	for _, want := range []string{"Status: BREACH", "£2168.40", "2024-01: £2000.00", "UNDERPAID", "could not be established"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in:\n%s", want, text)
		}
	}
	if strings.Contains(text, "2024-02") {
		t.Fatalf("paid month should not be listed:\n%s", text)
	}
}
