package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

type AssessmentRepository struct {
	db *sql.DB
}

func NewAssessmentRepository(db *sql.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

const assessmentColumns = `id, worker_id, batch_id, domain, status, risk_level, red_flag, reasons, facts, checks, narrative, narrative_source, notices, generated_at`

func (r *AssessmentRepository) Save(ctx context.Context, a *domain.ComplianceAssessment) error {
	reasons, err := json.Marshal(nonNilStrings(a.Verdict.Reasons))
	if err != nil {
		return fmt.Errorf("marshal reasons: %w", err)
	}
	facts, err := json.Marshal(a.Facts)
	if err != nil {
		return fmt.Errorf("marshal facts: %w", err)
	}
	checks, err := json.Marshal(a.Checks)
	if err != nil {
		return fmt.Errorf("marshal checks: %w", err)
	}
	notices, err := json.Marshal(nonNilStrings(a.Notices))
	if err != nil {
		return fmt.Errorf("marshal notices: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO assessments (`+assessmentColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`,
		a.ID, a.WorkerID, a.BatchID, string(a.Domain), string(a.Verdict.Status), string(a.Verdict.RiskLevel),
		a.Verdict.RedFlag, reasons, facts, checks, a.Narrative, string(a.NarrativeSource), notices, a.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

func (r *AssessmentRepository) GetByID(ctx context.Context, id string) (*domain.ComplianceAssessment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+assessmentColumns+` FROM assessments WHERE id = $1`, id)
	a, err := scanAssessment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get assessment", fmt.Errorf("assessment %s", id))
		}
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	return &a, nil
}

// ListByWorker returns a worker's assessments oldest first.
func (r *AssessmentRepository) ListByWorker(ctx context.Context, workerID string) ([]domain.ComplianceAssessment, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+assessmentColumns+`
FROM assessments
WHERE worker_id = $1
ORDER BY generated_at, id
`, workerID)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ComplianceAssessment, 0)
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessments: %w", err)
	}
	return out, nil
}

func (r *AssessmentRepository) DeleteByWorker(ctx context.Context, workerID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM assessments WHERE worker_id = $1`, workerID); err != nil {
		return fmt.Errorf("delete worker assessments: %w", err)
	}
	return nil
}

func scanAssessment(row rowScanner) (domain.ComplianceAssessment, error) {
	var a domain.ComplianceAssessment
	var assessmentDomain, status, risk, source string
	var reasons, facts, checks, notices []byte
	err := row.Scan(
		&a.ID, &a.WorkerID, &a.BatchID, &assessmentDomain, &status, &risk, &a.Verdict.RedFlag,
		&reasons, &facts, &checks, &a.Narrative, &source, &notices, &a.GeneratedAt,
	)
	if err != nil {
		return domain.ComplianceAssessment{}, err
	}
	a.Domain = domain.AssessmentDomain(assessmentDomain)
	a.Verdict.Status = domain.ComplianceStatus(status)
	a.Verdict.RiskLevel = domain.RiskLevel(risk)
	a.NarrativeSource = domain.NarrativeSource(source)

	if err := json.Unmarshal(reasons, &a.Verdict.Reasons); err != nil {
		return domain.ComplianceAssessment{}, fmt.Errorf("unmarshal reasons: %w", err)
	}
	if err := json.Unmarshal(facts, &a.Facts); err != nil {
		return domain.ComplianceAssessment{}, fmt.Errorf("unmarshal facts: %w", err)
	}
	if err := json.Unmarshal(checks, &a.Checks); err != nil {
		return domain.ComplianceAssessment{}, fmt.Errorf("unmarshal checks: %w", err)
	}
	if err := json.Unmarshal(notices, &a.Notices); err != nil {
		return domain.ComplianceAssessment{}, fmt.Errorf("unmarshal notices: %w", err)
	}
	return a, nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
