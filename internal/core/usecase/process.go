package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
	"github.com/kirillkom/sponsor-compliance/internal/core/ports"
)

type ProcessBatchUseCase struct {
	repo      ports.BatchRepository
	extractor ports.TextExtractor
	assessor  ports.Assessor
	logger    *slog.Logger
}

func NewProcessBatchUseCase(
	repo ports.BatchRepository,
	extractor ports.TextExtractor,
	assessor ports.Assessor,
	logger *slog.Logger,
) *ProcessBatchUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessBatchUseCase{
		repo:      repo,
		extractor: extractor,
		assessor:  assessor,
		logger:    logger,
	}
}

// ProcessByID extracts text from every document of the batch and assesses it.
// A batch the pipeline refuses is marked rejected and nil is returned. Any
// other failure marks it failed and is returned for the caller to log; the
// batch is not redelivered and stays failed until it is resubmitted.
func (uc *ProcessBatchUseCase) ProcessByID(ctx context.Context, batchID string) error {
	if err := uc.markStatus(ctx, batchID, domain.BatchStatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	batch, err := uc.loadBatch(ctx, batchID)
	if err != nil {
		return uc.fail(ctx, batchID, err)
	}

	docs := uc.enrich(ctx, batch)

	_, err = uc.assessor.Assess(ctx, domain.AssessmentRequest{
		WorkerID:  batch.WorkerID,
		BatchID:   batch.ID,
		Domains:   batch.Domains,
		Documents: docs,
	})
	if err != nil {
		if domain.IsKind(err, domain.ErrInvalidInput) {
			uc.logger.Warn("batch_rejected", "batch_id", batchID, "error", err)
			if markErr := uc.markStatus(ctx, batchID, domain.BatchStatusRejected, err.Error()); markErr != nil {
				return fmt.Errorf("set status=rejected: %w", markErr)
			}
			return nil
		}
		return uc.fail(ctx, batchID, fmt.Errorf("assess batch: %w", err))
	}

	if err := uc.markStatus(ctx, batchID, domain.BatchStatusAssessed, ""); err != nil {
		return fmt.Errorf("set status=assessed: %w", err)
	}
	return nil
}

func (uc *ProcessBatchUseCase) loadBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	batch, err := uc.repo.GetByID(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("fetch batch by id: %w", err)
	}
	return batch, nil
}

// enrich attaches extracted text. A document whose text cannot be read still
// counts as present evidence; its content just contributes nothing.
func (uc *ProcessBatchUseCase) enrich(ctx context.Context, batch *domain.Batch) []domain.Document {
	docs := make([]domain.Document, 0, len(batch.Documents))
	for i := range batch.Documents {
		doc := batch.Documents[i]
		if strings.TrimSpace(doc.ExtractedText) != "" {
			docs = append(docs, doc)
			continue
		}
		text, err := uc.extractor.Extract(ctx, &doc)
		if err != nil {
			uc.logger.Warn("document_text_unavailable",
				"batch_id", batch.ID,
				"document_id", doc.ID,
				"name", doc.Name,
				"error", err,
			)
			docs = append(docs, doc)
			continue
		}
		docs = append(docs, doc.WithText(text))
	}
	return docs
}

func (uc *ProcessBatchUseCase) fail(ctx context.Context, batchID string, processErr error) error {
	if failErr := uc.markFailed(ctx, batchID, processErr); failErr != nil {
		return fmt.Errorf("%w; mark failed status: %v", processErr, failErr)
	}
	return processErr
}

func (uc *ProcessBatchUseCase) markStatus(ctx context.Context, batchID string, status domain.BatchStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, batchID, status, errMessage)
}

func (uc *ProcessBatchUseCase) markFailed(ctx context.Context, batchID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, batchID, domain.BatchStatusFailed, processErr.Error())
}
