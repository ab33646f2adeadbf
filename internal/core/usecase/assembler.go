package usecase

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

// AssemblyInput is everything one domain run produced.
type AssemblyInput struct {
	WorkerID  string
	BatchID   string
	Domain    domain.AssessmentDomain
	Facts     domain.ExtractedFacts
	Checks    domain.DerivedChecks
	Verdict   domain.ComplianceVerdict
	Narrative domain.Narrative
}

// Assembler stamps assessment records. GeneratedAt strictly increases across
// calls on one assembler, at microsecond resolution to survive Postgres.
type Assembler struct {
	now   func() time.Time
	newID func() string

	mu   sync.Mutex
	last time.Time
}

func NewAssembler(now func() time.Time, newID func() string) *Assembler {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Assembler{now: now, newID: newID}
}

func (a *Assembler) Assemble(in AssemblyInput) domain.ComplianceAssessment {
	return domain.ComplianceAssessment{
		ID:              a.newID(),
		WorkerID:        in.WorkerID,
		BatchID:         in.BatchID,
		Domain:          in.Domain,
		Facts:           in.Facts,
		Checks:          in.Checks,
		Verdict:         in.Verdict,
		Narrative:       in.Narrative.Text,
		NarrativeSource: in.Narrative.Source,
		Notices:         notices(in),
		GeneratedAt:     a.stamp(),
	}
}

func (a *Assembler) stamp() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()

	t := a.now().UTC().Truncate(time.Microsecond)
	if !t.After(a.last) {
		t = a.last.Add(time.Microsecond)
	}
	a.last = t
	return t
}

func notices(in AssemblyInput) []string {
	var out []string
	if in.Narrative.Source == domain.NarrativeTemplate {
		out = append(out, domain.NoticeTemplateNarrative)
	}
	if len(in.Facts.Incomplete) > 0 {
		out = append(out, "extraction incomplete: "+strings.Join(in.Facts.Incomplete, ", "))
	}
	return out
}
