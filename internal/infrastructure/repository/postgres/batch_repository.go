package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

type BatchRepository struct {
	db *sql.DB
}

func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create writes the batch and its documents in one transaction.
func (r *BatchRepository) Create(ctx context.Context, batch *domain.Batch) error {
	domainsJSON, err := json.Marshal(batchDomains(batch.Domains))
	if err != nil {
		return fmt.Errorf("marshal domains: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO batches (id, worker_id, domains, status, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, batch.ID, batch.WorkerID, domainsJSON, string(batch.Status), batch.Error, batch.CreatedAt, batch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	for i, doc := range batch.Documents {
		_, err := tx.ExecContext(ctx, `
INSERT INTO batch_documents (id, batch_id, name, mime_type, byte_size, storage_path, position, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, doc.ID, batch.ID, doc.Name, doc.MimeType, doc.ByteSize, doc.StoragePath, i, doc.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert batch document: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch tx: %w", err)
	}
	return nil
}

func (r *BatchRepository) GetByID(ctx context.Context, id string) (*domain.Batch, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, worker_id, domains, status, error_message, created_at, updated_at
FROM batches
WHERE id = $1
`, id)

	var batch domain.Batch
	var domainsRaw []byte
	var status string
	err := row.Scan(&batch.ID, &batch.WorkerID, &domainsRaw, &status, &batch.Error, &batch.CreatedAt, &batch.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get batch", fmt.Errorf("batch %s", id))
		}
		return nil, fmt.Errorf("scan batch: %w", err)
	}
	if err := json.Unmarshal(domainsRaw, &batch.Domains); err != nil {
		return nil, fmt.Errorf("unmarshal domains: %w", err)
	}
	batch.Status = domain.BatchStatus(status)

	docs, err := r.listDocuments(ctx, id)
	if err != nil {
		return nil, err
	}
	batch.Documents = docs
	return &batch, nil
}

func (r *BatchRepository) listDocuments(ctx context.Context, batchID string) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, batch_id, name, mime_type, byte_size, storage_path, created_at
FROM batch_documents
WHERE batch_id = $1
ORDER BY position
`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0)
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.BatchID, &doc.Name, &doc.MimeType, &doc.ByteSize, &doc.StoragePath, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan batch document: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch documents: %w", err)
	}
	return out, nil
}

func (r *BatchRepository) UpdateStatus(ctx context.Context, id string, status domain.BatchStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE batches
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update batch status rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update batch status", fmt.Errorf("batch %s", id))
	}
	return nil
}

func (r *BatchRepository) StoragePathsByWorker(ctx context.Context, workerID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT d.storage_path
FROM batch_documents d
JOIN batches b ON b.id = d.batch_id
WHERE b.worker_id = $1
ORDER BY d.batch_id, d.position
`, workerID)
	if err != nil {
		return nil, fmt.Errorf("list worker storage paths: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan storage path: %w", err)
		}
		out = append(out, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate storage paths: %w", err)
	}
	return out, nil
}

// DeleteByWorker removes every batch of a worker; documents cascade.
func (r *BatchRepository) DeleteByWorker(ctx context.Context, workerID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM batches WHERE worker_id = $1`, workerID); err != nil {
		return fmt.Errorf("delete worker batches: %w", err)
	}
	return nil
}

func batchDomains(domains []domain.AssessmentDomain) []domain.AssessmentDomain {
	if domains == nil {
		return []domain.AssessmentDomain{}
	}
	return domains
}
