package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
	"github.com/kirillkom/sponsor-compliance/internal/core/ports"
)

const defaultMaxBatchFiles = 50

type IngestBatchUseCase struct {
	repo     ports.BatchRepository
	storage  ports.ObjectStorage
	queue    ports.MessageQueue
	maxFiles int
	logger   *slog.Logger
}

func NewIngestBatchUseCase(
	repo ports.BatchRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	maxFiles int,
	logger *slog.Logger,
) *IngestBatchUseCase {
	if maxFiles <= 0 {
		maxFiles = defaultMaxBatchFiles
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestBatchUseCase{
		repo:     repo,
		storage:  storage,
		queue:    queue,
		maxFiles: maxFiles,
		logger:   logger,
	}
}

// Submit stores every upload, records the batch and queues it for assessment.
// Bodies already written are removed again when a later step fails.
func (uc *IngestBatchUseCase) Submit(
	ctx context.Context,
	workerID string,
	domains []domain.AssessmentDomain,
	uploads []ports.Upload,
) (*domain.Batch, error) {
	workerID = strings.TrimSpace(workerID)
	if err := uc.validate(workerID, domains, uploads); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	batch := &domain.Batch{
		ID:        uuid.NewString(),
		WorkerID:  workerID,
		Domains:   domains,
		Status:    domain.BatchStatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var stored []string
	cleanup := func() {
		for _, key := range stored {
			if err := uc.storage.Delete(context.WithoutCancel(ctx), key); err != nil {
				uc.logger.Warn("batch_cleanup_failed", "batch_id", batch.ID, "storage_path", key, "error", err)
			}
		}
	}

	for _, upload := range uploads {
		docID := uuid.NewString()
		key := fmt.Sprintf("%s/%s_%s", batch.ID, docID, sanitizeFilename(upload.Filename))
		counter := &countingReader{r: upload.Body}
		if err := uc.storage.Save(ctx, key, counter); err != nil {
			cleanup()
			return nil, fmt.Errorf("save to object storage: %w", err)
		}
		stored = append(stored, key)
		if counter.n == 0 {
			cleanup()
			return nil, domain.WrapError(domain.ErrInvalidInput, "submit batch", fmt.Errorf("%s: empty file", upload.Filename))
		}

		batch.Documents = append(batch.Documents, domain.Document{
			ID:          docID,
			BatchID:     batch.ID,
			Name:        upload.Filename,
			MimeType:    upload.MimeType,
			ByteSize:    counter.n,
			StoragePath: key,
			CreatedAt:   now,
		})
	}

	if err := uc.repo.Create(ctx, batch); err != nil {
		cleanup()
		return nil, fmt.Errorf("create batch metadata: %w", err)
	}

	if err := uc.queue.PublishBatchSubmitted(ctx, batch.ID); err != nil {
		if markErr := uc.repo.UpdateStatus(ctx, batch.ID, domain.BatchStatusFailed, err.Error()); markErr != nil {
			uc.logger.Warn("batch_mark_failed_error", "batch_id", batch.ID, "error", markErr)
		}
		return nil, fmt.Errorf("publish batch event: %w", err)
	}

	return batch, nil
}

func (uc *IngestBatchUseCase) validate(workerID string, domains []domain.AssessmentDomain, uploads []ports.Upload) error {
	if workerID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "submit batch", errors.New("worker id is required"))
	}
	if len(uploads) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "submit batch", errors.New("batch contains no documents"))
	}
	if len(uploads) > uc.maxFiles {
		return domain.WrapError(domain.ErrInvalidInput, "submit batch", fmt.Errorf("batch exceeds %d files", uc.maxFiles))
	}
	for _, d := range domains {
		if _, err := domain.ParseAssessmentDomain(string(d)); err != nil {
			return err
		}
	}
	for i, upload := range uploads {
		switch {
		case strings.TrimSpace(upload.Filename) == "":
			return domain.WrapError(domain.ErrInvalidInput, "submit batch", fmt.Errorf("document %d: name is required", i+1))
		case upload.Body == nil || upload.Size == 0:
			return domain.WrapError(domain.ErrInvalidInput, "submit batch", fmt.Errorf("%s: empty file", upload.Filename))
		}
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "document.bin"
	}
	return base
}
