package ports

import (
	"context"
	"io"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

// BatchRepository persists upload batches together with their document metadata.
type BatchRepository interface {
	Create(ctx context.Context, batch *domain.Batch) error
	GetByID(ctx context.Context, id string) (*domain.Batch, error)
	UpdateStatus(ctx context.Context, id string, status domain.BatchStatus, errMessage string) error
	StoragePathsByWorker(ctx context.Context, workerID string) ([]string, error)
	DeleteByWorker(ctx context.Context, workerID string) error
}

// AssessmentRepository stores immutable assessment records.
type AssessmentRepository interface {
	Save(ctx context.Context, assessment *domain.ComplianceAssessment) error
	GetByID(ctx context.Context, id string) (*domain.ComplianceAssessment, error)
	ListByWorker(ctx context.Context, workerID string) ([]domain.ComplianceAssessment, error)
	DeleteByWorker(ctx context.Context, workerID string) error
}

// WorkerSummaryStore keeps one summary row per worker.
type WorkerSummaryStore interface {
	// Upsert folds one run into the stored row: AssessmentCount is added, RedFlag
	// stays set once true, and the latest status and risk are replaced.
	Upsert(ctx context.Context, summary domain.WorkerSummary) error
	Get(ctx context.Context, workerID string) (*domain.WorkerSummary, error)
	List(ctx context.Context) ([]domain.WorkerSummary, error)
	Delete(ctx context.Context, workerID string) error
}

// ObjectStorage stores uploaded document bodies.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes batch submission events.
type MessageQueue interface {
	PublishBatchSubmitted(ctx context.Context, batchID string) error
	SubscribeBatchSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// NarrativeService generates the assessment narrative remotely.
type NarrativeService interface {
	Generate(ctx context.Context, req domain.NarrativeRequest) (string, error)
}

// AssessmentExporter writes assessments into a downloadable report.
type AssessmentExporter interface {
	ContentType() string
	Export(w io.Writer, summary *domain.WorkerSummary, assessments []domain.ComplianceAssessment) error
}

// AssessmentRecorder observes completed assessments.
type AssessmentRecorder interface {
	RecordAssessment(assessment domain.ComplianceAssessment)
}
