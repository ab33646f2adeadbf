// Package narrative renders the report attached to each assessment.
package narrative

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
	"github.com/kirillkom/sponsor-compliance/internal/core/ports"
)

type Renderer struct {
	service ports.NarrativeService
	timeout time.Duration
	logger  *slog.Logger
}

// NewRenderer returns a renderer. A nil service always renders the template.
func NewRenderer(service ports.NarrativeService, timeout time.Duration, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		service: service,
		timeout: timeout,
		logger:  logger,
	}
}

// Render never fails: any service error yields the template narrative.
func (r *Renderer) Render(
	ctx context.Context,
	d domain.AssessmentDomain,
	facts domain.ExtractedFacts,
	checks domain.DerivedChecks,
	verdict domain.ComplianceVerdict,
) domain.Narrative {
	if r.service == nil {
		return templateNarrative(d, facts, checks, verdict)
	}

	text, err := r.generate(ctx, BuildRequest(d, facts, checks, verdict))
	if err != nil {
		r.logger.Warn("narrative_fallback",
			"domain", d,
			"worker_name", facts.WorkerName,
			"error", err.Error(),
		)
		return templateNarrative(d, facts, checks, verdict)
	}
	return domain.Narrative{Text: text, Source: domain.NarrativeGenerated}
}

func (r *Renderer) generate(ctx context.Context, req domain.NarrativeRequest) (text string, err error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			err = errors.New("narrative service panicked")
		}
	}()

	text, err = r.service.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("narrative service returned empty text")
	}
	return text, nil
}

func templateNarrative(d domain.AssessmentDomain, facts domain.ExtractedFacts, checks domain.DerivedChecks, verdict domain.ComplianceVerdict) domain.Narrative {
	return domain.Narrative{
		Text:   Template(d, facts, checks, verdict),
		Source: domain.NarrativeTemplate,
	}
}

// BuildRequest maps an assessment onto the narrative service payload.
func BuildRequest(d domain.AssessmentDomain, facts domain.ExtractedFacts, checks domain.DerivedChecks, verdict domain.ComplianceVerdict) domain.NarrativeRequest {
	missing := make([]string, 0, len(checks.MissingEvidence))
	for _, c := range checks.MissingEvidence {
		missing = append(missing, c.Label())
	}

	assignment := ""
	if !facts.IsIncomplete(domain.MarkerAssignmentDate) {
		assignment = facts.AssignmentDate.Format(time.DateOnly)
	}

	return domain.NarrativeRequest{
		Domain:                        d,
		WorkerName:                    facts.WorkerName,
		CaseReference:                 facts.CaseReference,
		AssignmentDate:                assignment,
		JobTitle:                      facts.JobTitle,
		ClassificationCode:            facts.ClassificationCode,
		CoSDuties:                     facts.CoSDuties,
		JobDescriptionDuties:          facts.JobDescriptionDuties,
		MissingEvidence:               missing,
		EmploymentHistoryConsistent:   checks.EmploymentHistoryConsistent,
		ExperienceMatchesDuties:       checks.ExperienceMatchesDuties,
		ReferencesCredible:            checks.ReferencesCredible,
		ExperienceRecentAndContinuous: checks.ExperienceRecentAndContinuous,
		InconsistenciesDescription:    strings.Join(checks.Inconsistencies, "; "),
		Verdict:                       verdict,
	}
}
