package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type statusCall struct {
	status domain.BatchStatus
	errMsg string
}

type batchRepoFake struct {
	mu          sync.Mutex
	batches     map[string]*domain.Batch
	createErr   error
	getErr      error
	statusCalls []statusCall
	deleted     []string
}

func newBatchRepoFake() *batchRepoFake {
	return &batchRepoFake{batches: map[string]*domain.Batch{}}
}

func (f *batchRepoFake) Create(_ context.Context, batch *domain.Batch) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copyBatch := *batch
	copyBatch.Documents = append([]domain.Document(nil), batch.Documents...)
	f.batches[batch.ID] = &copyBatch
	return nil
}

func (f *batchRepoFake) GetByID(_ context.Context, id string) (*domain.Batch, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	batch, ok := f.batches[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get batch", fmt.Errorf("batch %s", id))
	}
	copyBatch := *batch
	copyBatch.Documents = append([]domain.Document(nil), batch.Documents...)
	return &copyBatch, nil
}

func (f *batchRepoFake) UpdateStatus(_ context.Context, id string, status domain.BatchStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if batch, ok := f.batches[id]; ok {
		batch.Status = status
		batch.Error = errMessage
	}
	return nil
}

func (f *batchRepoFake) StoragePathsByWorker(_ context.Context, workerID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, batch := range f.batches {
		if batch.WorkerID != workerID {
			continue
		}
		for _, doc := range batch.Documents {
			out = append(out, doc.StoragePath)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *batchRepoFake) DeleteByWorker(_ context.Context, workerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, batch := range f.batches {
		if batch.WorkerID == workerID {
			delete(f.batches, id)
		}
	}
	f.deleted = append(f.deleted, workerID)
	return nil
}

func (f *batchRepoFake) lastStatus() domain.BatchStatus {
	if len(f.statusCalls) == 0 {
		return ""
	}
	return f.statusCalls[len(f.statusCalls)-1].status
}

type assessmentRepoFake struct {
	mu      sync.Mutex
	saved   []domain.ComplianceAssessment
	saveErr error
}

func (f *assessmentRepoFake) Save(_ context.Context, a *domain.ComplianceAssessment) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, *a)
	return nil
}

func (f *assessmentRepoFake) GetByID(_ context.Context, id string) (*domain.ComplianceAssessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.saved {
		if f.saved[i].ID == id {
			a := f.saved[i]
			return &a, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get assessment", fmt.Errorf("assessment %s", id))
}

func (f *assessmentRepoFake) ListByWorker(_ context.Context, workerID string) ([]domain.ComplianceAssessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ComplianceAssessment
	for _, a := range f.saved {
		if a.WorkerID == workerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *assessmentRepoFake) DeleteByWorker(_ context.Context, workerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.saved[:0]
	for _, a := range f.saved {
		if a.WorkerID != workerID {
			kept = append(kept, a)
		}
	}
	f.saved = kept
	return nil
}

type summaryStoreFake struct {
	mu        sync.Mutex
	summaries map[string]domain.WorkerSummary
	upsertErr error
}

func newSummaryStoreFake() *summaryStoreFake {
	return &summaryStoreFake{summaries: map[string]domain.WorkerSummary{}}
}

func (f *summaryStoreFake) Upsert(_ context.Context, s domain.WorkerSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if existing, ok := f.summaries[s.WorkerID]; ok {
		s.AssessmentCount += existing.AssessmentCount
		s.RedFlag = s.RedFlag || existing.RedFlag
		if existing.UpdatedAt.After(s.UpdatedAt) {
			s.UpdatedAt = existing.UpdatedAt
		}
	}
	f.summaries[s.WorkerID] = s
	return nil
}

func (f *summaryStoreFake) Get(_ context.Context, workerID string) (*domain.WorkerSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.summaries[workerID]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get worker summary", fmt.Errorf("worker %s", workerID))
	}
	return &s, nil
}

func (f *summaryStoreFake) List(context.Context) ([]domain.WorkerSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.WorkerSummary, 0, len(f.summaries))
	for _, s := range f.summaries {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkerID < out[j].WorkerID })
	return out, nil
}

func (f *summaryStoreFake) Delete(_ context.Context, workerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.summaries[workerID]; !ok {
		return domain.WrapError(domain.ErrNotFound, "delete worker summary", fmt.Errorf("worker %s", workerID))
	}
	delete(f.summaries, workerID)
	return nil
}

type storageFake struct {
	mu      sync.Mutex
	objects map[string]string
	saveErr error
	failAt  int
	saves   int
	deleted []string
}

func newStorageFake() *storageFake {
	return &storageFake{objects: map[string]string{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil && (f.failAt == 0 || f.saves == f.failAt) {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[key] = string(raw)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishBatchSubmitted(_ context.Context, batchID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, batchID)
	return nil
}

func (f *queueFake) SubscribeBatchSubmitted(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

// storageTextExtractor returns the stored body as text, failing for keys listed in broken.
type storageTextExtractor struct {
	storage *storageFake
	broken  map[string]bool
}

func (e *storageTextExtractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	if e.broken[doc.Name] {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("unreadable"))
	}
	rc, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	return string(raw), err
}

type narrativeServiceFake struct {
	text string
	err  error
}

func (f *narrativeServiceFake) Generate(context.Context, domain.NarrativeRequest) (string, error) {
	return f.text, f.err
}

type recorderFake struct {
	mu       sync.Mutex
	recorded []domain.ComplianceAssessment
}

func (f *recorderFake) RecordAssessment(a domain.ComplianceAssessment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, a)
}

type exporterFake struct {
	err     error
	summary *domain.WorkerSummary
	count   int
}

func (f *exporterFake) ContentType() string { return "text/csv" }

func (f *exporterFake) Export(w io.Writer, summary *domain.WorkerSummary, assessments []domain.ComplianceAssessment) error {
	f.summary = summary
	f.count = len(assessments)
	if f.err != nil {
		_, _ = io.WriteString(w, "partial")
		return f.err
	}
	_, err := fmt.Fprintf(w, "%s,%d\n", summary.WorkerID, len(assessments))
	return err
}
