package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
	"github.com/kirillkom/sponsor-compliance/internal/core/ports"
)

type AssessmentQueryUseCase struct {
	batches     ports.BatchRepository
	assessments ports.AssessmentRepository
	summaries   ports.WorkerSummaryStore
	storage     ports.ObjectStorage
	exporter    ports.AssessmentExporter
	logger      *slog.Logger
}

func NewAssessmentQueryUseCase(
	batches ports.BatchRepository,
	assessments ports.AssessmentRepository,
	summaries ports.WorkerSummaryStore,
	storage ports.ObjectStorage,
	exporter ports.AssessmentExporter,
	logger *slog.Logger,
) *AssessmentQueryUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssessmentQueryUseCase{
		batches:     batches,
		assessments: assessments,
		summaries:   summaries,
		storage:     storage,
		exporter:    exporter,
		logger:      logger,
	}
}

func (uc *AssessmentQueryUseCase) GetBatch(ctx context.Context, id string) (*domain.Batch, error) {
	batch, err := uc.batches.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch batch by id: %w", err)
	}
	return batch, nil
}

func (uc *AssessmentQueryUseCase) GetAssessment(ctx context.Context, id string) (*domain.ComplianceAssessment, error) {
	assessment, err := uc.assessments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch assessment by id: %w", err)
	}
	return assessment, nil
}

func (uc *AssessmentQueryUseCase) ListWorkerAssessments(ctx context.Context, workerID string) ([]domain.ComplianceAssessment, error) {
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list worker assessments", errors.New("worker id is required"))
	}
	out, err := uc.assessments.ListByWorker(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("list worker assessments: %w", err)
	}
	return out, nil
}

func (uc *AssessmentQueryUseCase) ListWorkers(ctx context.Context) ([]domain.WorkerSummary, error) {
	out, err := uc.summaries.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	return out, nil
}

// ExportWorker renders the worker's full assessment history. Nothing is
// written to w unless the report was built completely.
func (uc *AssessmentQueryUseCase) ExportWorker(ctx context.Context, workerID string, w io.Writer) (string, error) {
	if uc.exporter == nil {
		return "", domain.WrapError(domain.ErrTemporary, "export worker", errors.New("export is not configured"))
	}
	summary, err := uc.summaries.Get(ctx, workerID)
	if err != nil {
		return "", fmt.Errorf("fetch worker summary: %w", err)
	}
	assessments, err := uc.assessments.ListByWorker(ctx, workerID)
	if err != nil {
		return "", fmt.Errorf("list worker assessments: %w", err)
	}

	var buf bytes.Buffer
	if err := uc.exporter.Export(&buf, summary, assessments); err != nil {
		return "", fmt.Errorf("render export: %w", err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return uc.exporter.ContentType(), nil
}

// DeleteWorker removes every record held for the worker, stored bodies first.
func (uc *AssessmentQueryUseCase) DeleteWorker(ctx context.Context, workerID string) error {
	if _, err := uc.summaries.Get(ctx, workerID); err != nil {
		return fmt.Errorf("fetch worker summary: %w", err)
	}

	paths, err := uc.batches.StoragePathsByWorker(ctx, workerID)
	if err != nil {
		return fmt.Errorf("list worker documents: %w", err)
	}
	for _, path := range paths {
		if err := uc.storage.Delete(ctx, path); err != nil {
			return fmt.Errorf("delete stored document: %w", err)
		}
	}

	if err := uc.assessments.DeleteByWorker(ctx, workerID); err != nil {
		return fmt.Errorf("delete worker assessments: %w", err)
	}
	if err := uc.batches.DeleteByWorker(ctx, workerID); err != nil {
		return fmt.Errorf("delete worker batches: %w", err)
	}
	if err := uc.summaries.Delete(ctx, workerID); err != nil {
		return fmt.Errorf("delete worker summary: %w", err)
	}

	uc.logger.Info("worker_deleted", "worker_id", workerID, "documents", len(paths))
	return nil
}
