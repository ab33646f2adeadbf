package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/sponsor-compliance/internal/core/consistency"
	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
	"github.com/kirillkom/sponsor-compliance/internal/core/narrative"
	"github.com/kirillkom/sponsor-compliance/internal/core/ports"
	"github.com/kirillkom/sponsor-compliance/internal/core/rules"
	"github.com/kirillkom/sponsor-compliance/internal/core/signals"
)

// domainPipeline is built once per domain at construction.
type domainPipeline struct {
	rules    rules.DomainRules
	analyzer *consistency.Analyzer
}

type AssessUseCase struct {
	extractor   *signals.Extractor
	renderer    *narrative.Renderer
	assembler   *Assembler
	pipelines   map[domain.AssessmentDomain]domainPipeline
	assessments ports.AssessmentRepository
	summaries   ports.WorkerSummaryStore
	recorder    ports.AssessmentRecorder
	logger      *slog.Logger
}

// AssessOptions carries the optional collaborators. Nil repositories skip
// persistence; a nil recorder skips metrics.
type AssessOptions struct {
	Assessments ports.AssessmentRepository
	Summaries   ports.WorkerSummaryStore
	Recorder    ports.AssessmentRecorder
	Logger      *slog.Logger
}

func NewAssessUseCase(
	extractor *signals.Extractor,
	thresholds rules.Thresholds,
	renderer *narrative.Renderer,
	assembler *Assembler,
	opts AssessOptions,
) (*AssessUseCase, error) {
	thresholds = thresholds.Normalize()
	pipelines := make(map[domain.AssessmentDomain]domainPipeline, len(domainOrder))
	for _, d := range domainOrder {
		r, err := rules.ForDomain(d, thresholds)
		if err != nil {
			return nil, fmt.Errorf("build %s rules: %w", d, err)
		}
		pipelines[d] = domainPipeline{
			rules:    r,
			analyzer: consistency.NewAnalyzer(r.RequiredEvidence(), thresholds.Qualification),
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AssessUseCase{
		extractor:   extractor,
		renderer:    renderer,
		assembler:   assembler,
		pipelines:   pipelines,
		assessments: opts.Assessments,
		summaries:   opts.Summaries,
		recorder:    opts.Recorder,
		logger:      logger,
	}, nil
}

var domainOrder = []domain.AssessmentDomain{
	domain.DomainQualification,
	domain.DomainSalary,
	domain.DomainSkills,
}

// Assess validates the request, then produces one assessment per domain, each
// decided on its own projection of the extracted facts.
func (uc *AssessUseCase) Assess(ctx context.Context, req domain.AssessmentRequest) ([]domain.ComplianceAssessment, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	workerID := strings.TrimSpace(req.WorkerID)

	facts := uc.extractor.Extract(req.Documents)
	if err := domain.ValidateFacts(facts); err != nil {
		return nil, err
	}

	domains, err := uc.resolveDomains(req.Domains, facts)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ComplianceAssessment, 0, len(domains))
	for _, d := range domains {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, uc.assessDomain(ctx, workerID, req.BatchID, d, facts))
	}

	if err := uc.persist(ctx, workerID, facts, out); err != nil {
		return nil, err
	}

	for _, a := range out {
		if uc.recorder != nil {
			uc.recorder.RecordAssessment(a)
		}
		uc.logger.Info("assessment_completed",
			"assessment_id", a.ID,
			"worker_id", a.WorkerID,
			"batch_id", a.BatchID,
			"domain", a.Domain,
			"status", a.Verdict.Status,
			"risk_level", a.Verdict.RiskLevel,
			"red_flag", a.Verdict.RedFlag,
			"narrative_source", a.NarrativeSource,
		)
	}
	return out, nil
}

func (uc *AssessUseCase) assessDomain(
	ctx context.Context,
	workerID, batchID string,
	d domain.AssessmentDomain,
	facts domain.ExtractedFacts,
) domain.ComplianceAssessment {
	p := uc.pipelines[d]
	projected := facts.Project(d)
	checks := p.analyzer.Analyze(projected)
	verdict := p.rules.Decide(projected, checks)
	text := uc.renderer.Render(ctx, d, projected, checks, verdict)

	return uc.assembler.Assemble(AssemblyInput{
		WorkerID:  workerID,
		BatchID:   batchID,
		Domain:    d,
		Facts:     projected,
		Checks:    checks,
		Verdict:   verdict,
		Narrative: text,
	})
}

func (uc *AssessUseCase) resolveDomains(requested []domain.AssessmentDomain, facts domain.ExtractedFacts) ([]domain.AssessmentDomain, error) {
	if len(requested) == 0 {
		return SelectDomains(facts), nil
	}
	seen := make(map[domain.AssessmentDomain]struct{}, len(requested))
	for _, d := range requested {
		if _, ok := uc.pipelines[d]; !ok {
			return nil, domain.WrapError(domain.ErrInvalidInput, "resolve domains", fmt.Errorf("unknown assessment domain %q", d))
		}
		seen[d] = struct{}{}
	}
	// Without payslips the underpaid count is zero by construction, which would
	// read as compliant.
	if _, ok := seen[domain.DomainSalary]; ok && !facts.Has(domain.EvidencePayslips) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "resolve domains", errors.New("salary assessment requires payslip documents"))
	}
	out := make([]domain.AssessmentDomain, 0, len(seen))
	for _, d := range domainOrder {
		if _, ok := seen[d]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// SelectDomains picks the domains a batch touches when the caller named none.
func SelectDomains(facts domain.ExtractedFacts) []domain.AssessmentDomain {
	var out []domain.AssessmentDomain
	if facts.Has(domain.EvidenceQualification) {
		out = append(out, domain.DomainQualification)
	}
	if facts.Has(domain.EvidencePayslips) {
		out = append(out, domain.DomainSalary)
	}
	if facts.Has(domain.EvidenceCV) || facts.Has(domain.EvidenceReferences) ||
		facts.Has(domain.EvidenceContracts) || facts.Has(domain.EvidenceJobDescription) || len(out) == 0 {
		out = append(out, domain.DomainSkills)
	}
	return out
}

// persist saves the assessments, then folds the run into the worker summary.
// The two writes are not atomic: a summary failure leaves the assessments
// saved and the batch marked failed.
func (uc *AssessUseCase) persist(ctx context.Context, workerID string, facts domain.ExtractedFacts, assessments []domain.ComplianceAssessment) error {
	if uc.assessments != nil {
		for i := range assessments {
			if err := uc.assessments.Save(ctx, &assessments[i]); err != nil {
				return fmt.Errorf("save assessment: %w", err)
			}
		}
	}
	if uc.summaries == nil || len(assessments) == 0 {
		return nil
	}
	if err := uc.summaries.Upsert(ctx, summarize(workerID, facts, assessments)); err != nil {
		return fmt.Errorf("upsert worker summary: %w", err)
	}
	return nil
}

// summarize reports one run: the worst verdict, whether any assessment is red
// flagged, and how many assessments it produced. The store adds the count and
// ORs the flag into the existing row.
func summarize(workerID string, facts domain.ExtractedFacts, assessments []domain.ComplianceAssessment) domain.WorkerSummary {
	s := domain.WorkerSummary{
		WorkerID:        workerID,
		WorkerName:      facts.WorkerName,
		CaseReference:   facts.CaseReference,
		LatestStatus:    domain.StatusCompliant,
		LatestRiskLevel: domain.RiskLow,
		AssessmentCount: len(assessments),
	}
	for _, a := range assessments {
		if a.Verdict.Status.Worse(s.LatestStatus) {
			s.LatestStatus = a.Verdict.Status
		}
		if a.Verdict.RiskLevel.Worse(s.LatestRiskLevel) {
			s.LatestRiskLevel = a.Verdict.RiskLevel
		}
		s.RedFlag = s.RedFlag || a.Verdict.RedFlag
		if a.GeneratedAt.After(s.UpdatedAt) {
			s.UpdatedAt = a.GeneratedAt
		}
	}
	return s
}

func validateRequest(req domain.AssessmentRequest) error {
	if strings.TrimSpace(req.WorkerID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "validate batch", errors.New("worker id is required"))
	}
	if len(req.Documents) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "validate batch", errors.New("batch contains no documents"))
	}
	for i, doc := range req.Documents {
		if err := validateDocument(doc); err != nil {
			return domain.WrapError(domain.ErrInvalidInput, "validate batch", fmt.Errorf("document %d: %w", i+1, err))
		}
	}
	return nil
}

func validateDocument(doc domain.Document) error {
	switch {
	case strings.TrimSpace(doc.Name) == "":
		return errors.New("document name is required")
	case doc.ByteSize < 0:
		return fmt.Errorf("%s: negative size", doc.Name)
	case doc.ByteSize == 0:
		return fmt.Errorf("%s: empty file", doc.Name)
	}
	return nil
}
