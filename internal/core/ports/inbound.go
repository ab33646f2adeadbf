package ports

import (
	"context"
	"io"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

// Upload is one file of a submitted batch.
type Upload struct {
	Filename string
	MimeType string
	Size     int64
	Body     io.Reader
}

// BatchIngestor is the inbound contract for batch upload orchestration.
type BatchIngestor interface {
	Submit(ctx context.Context, workerID string, domains []domain.AssessmentDomain, uploads []Upload) (*domain.Batch, error)
}

// BatchReader is the inbound read model for batch state.
type BatchReader interface {
	GetBatch(ctx context.Context, id string) (*domain.Batch, error)
}

// BatchProcessor is the inbound contract for asynchronous batch processing.
type BatchProcessor interface {
	ProcessByID(ctx context.Context, batchID string) error
}

// Assessor runs the assessment pipeline over documents already in memory.
type Assessor interface {
	Assess(ctx context.Context, req domain.AssessmentRequest) ([]domain.ComplianceAssessment, error)
}

// AssessmentReader serves stored assessments to list, detail and export views.
type AssessmentReader interface {
	GetAssessment(ctx context.Context, id string) (*domain.ComplianceAssessment, error)
	ListWorkerAssessments(ctx context.Context, workerID string) ([]domain.ComplianceAssessment, error)
	ListWorkers(ctx context.Context) ([]domain.WorkerSummary, error)
	ExportWorker(ctx context.Context, workerID string, w io.Writer) (contentType string, err error)
	DeleteWorker(ctx context.Context, workerID string) error
}
