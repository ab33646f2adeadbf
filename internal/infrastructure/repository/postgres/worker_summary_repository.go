package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

type WorkerSummaryRepository struct {
	db *sql.DB
}

func NewWorkerSummaryRepository(db *sql.DB) *WorkerSummaryRepository {
	return &WorkerSummaryRepository{db: db}
}

const summaryColumns = `worker_id, worker_name, case_reference, latest_status, latest_risk_level, red_flag, assessment_count, updated_at`

// Upsert merges in one statement so concurrent runs for the same worker do not
// lose counts.
func (r *WorkerSummaryRepository) Upsert(ctx context.Context, s domain.WorkerSummary) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO worker_summaries (`+summaryColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (worker_id) DO UPDATE SET
	worker_name = EXCLUDED.worker_name,
	case_reference = EXCLUDED.case_reference,
	latest_status = EXCLUDED.latest_status,
	latest_risk_level = EXCLUDED.latest_risk_level,
	red_flag = worker_summaries.red_flag OR EXCLUDED.red_flag,
	assessment_count = worker_summaries.assessment_count + EXCLUDED.assessment_count,
	updated_at = GREATEST(worker_summaries.updated_at, EXCLUDED.updated_at)
`, s.WorkerID, s.WorkerName, s.CaseReference, string(s.LatestStatus), string(s.LatestRiskLevel), s.RedFlag, s.AssessmentCount, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert worker summary: %w", err)
	}
	return nil
}

func (r *WorkerSummaryRepository) Get(ctx context.Context, workerID string) (*domain.WorkerSummary, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM worker_summaries WHERE worker_id = $1`, workerID)
	s, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get worker summary", fmt.Errorf("worker %s", workerID))
		}
		return nil, fmt.Errorf("get worker summary: %w", err)
	}
	return &s, nil
}

// List returns summaries most recently updated first.
func (r *WorkerSummaryRepository) List(ctx context.Context) ([]domain.WorkerSummary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+summaryColumns+` FROM worker_summaries ORDER BY updated_at DESC, worker_id`)
	if err != nil {
		return nil, fmt.Errorf("list worker summaries: %w", err)
	}
	defer rows.Close()

	out := make([]domain.WorkerSummary, 0)
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan worker summary: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate worker summaries: %w", err)
	}
	return out, nil
}

func (r *WorkerSummaryRepository) Delete(ctx context.Context, workerID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM worker_summaries WHERE worker_id = $1`, workerID)
	if err != nil {
		return fmt.Errorf("delete worker summary: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete worker summary rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "delete worker summary", fmt.Errorf("worker %s", workerID))
	}
	return nil
}

func scanSummary(row rowScanner) (domain.WorkerSummary, error) {
	var s domain.WorkerSummary
	var status, risk string
	if err := row.Scan(&s.WorkerID, &s.WorkerName, &s.CaseReference, &status, &risk, &s.RedFlag, &s.AssessmentCount, &s.UpdatedAt); err != nil {
		return domain.WorkerSummary{}, err
	}
	s.LatestStatus = domain.ComplianceStatus(status)
	s.LatestRiskLevel = domain.RiskLevel(risk)
	return s, nil
}
