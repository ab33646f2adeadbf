package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/sponsor-compliance/internal/config"
	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
	"github.com/kirillkom/sponsor-compliance/internal/core/ports"
	"github.com/kirillkom/sponsor-compliance/internal/observability/metrics"
)

const multipartMemory = 32 << 20

type Router struct {
	ingestUC    ports.BatchIngestor
	batches     ports.BatchReader
	assessor    ports.Assessor
	reader      ports.AssessmentReader
	httpMetrics *metrics.HTTPServerMetrics

	apiKey                  string
	rateLimitRPS            float64
	rateLimitBurst          int
	backpressureMaxInFlight int
	backpressureWait        time.Duration
	maxUploadBytes          int64
}

func NewRouter(
	cfg config.Config,
	ingestUC ports.BatchIngestor,
	batches ports.BatchReader,
	assessor ports.Assessor,
	reader ports.AssessmentReader,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	if httpMetrics == nil {
		httpMetrics = metrics.NewHTTPServerMetrics("api")
	}
	maxUpload := cfg.APIMaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 64 << 20
	}
	return &Router{
		ingestUC:                ingestUC,
		batches:                 batches,
		assessor:                assessor,
		reader:                  reader,
		httpMetrics:             httpMetrics,
		apiKey:                  cfg.APIKey,
		rateLimitRPS:            cfg.APIRateLimitRPS,
		rateLimitBurst:          cfg.APIRateLimitBurst,
		backpressureMaxInFlight: cfg.APIBackpressureMaxInFlight,
		backpressureWait:        time.Duration(cfg.APIBackpressureWaitMillis) * time.Millisecond,
		maxUploadBytes:          maxUpload,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.Handle("GET /metrics", rt.httpMetrics.Handler())

	mux.HandleFunc("POST /v1/workers/{worker_id}/batches", rt.submitBatch)
	mux.HandleFunc("GET /v1/batches/{batch_id}", rt.getBatch)
	mux.HandleFunc("POST /v1/assessments/evaluate", rt.evaluate)
	mux.HandleFunc("GET /v1/assessments/{assessment_id}", rt.getAssessment)
	mux.HandleFunc("GET /v1/workers", rt.listWorkers)
	mux.HandleFunc("GET /v1/workers/{worker_id}/assessments", rt.listWorkerAssessments)
	mux.HandleFunc("GET /v1/workers/{worker_id}/assessments/export", rt.exportWorker)
	mux.HandleFunc("DELETE /v1/workers/{worker_id}", rt.deleteWorker)

	var handler http.Handler = mux
	handler = bearerAuthMiddleware(handler, rt.apiKey)
	handler = backpressureMiddleware(handler, rt.backpressureMaxInFlight, rt.backpressureWait)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	handler = rt.httpMetrics.Middleware("api", handler)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) submitBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload exceeds " + strconv.FormatInt(rt.maxUploadBytes, 10) + " bytes"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	var headers []*multipart.FileHeader
	for _, field := range []string{"files", "files[]", "file"} {
		headers = append(headers, r.MultipartForm.File[field]...)
	}
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'files' is required"})
		return
	}

	domains, err := parseDomains(r.MultipartForm.Value["domain"])
	if err != nil {
		writeError(w, err)
		return
	}

	uploads := make([]ports.Upload, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot read uploaded file " + header.Filename})
			return
		}
		defer file.Close()
		uploads = append(uploads, uploadFromHeader(header, file))
	}

	batch, err := rt.ingestUC.Submit(r.Context(), r.PathValue("worker_id"), domains, uploads)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.httpMetrics.RecordBatchSubmitted("api", len(batch.Documents))
	writeJSON(w, http.StatusAccepted, batch)
}

func uploadFromHeader(header *multipart.FileHeader, file multipart.File) ports.Upload {
	return ports.Upload{
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Body:     file,
	}
}

func parseDomains(raw []string) ([]domain.AssessmentDomain, error) {
	var out []domain.AssessmentDomain
	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			d, err := domain.ParseAssessmentDomain(part)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
	}
	return out, nil
}

func (rt *Router) getBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := rt.batches.GetBatch(r.Context(), r.PathValue("batch_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

type evaluateDocument struct {
	Name          string `json:"name"`
	MimeType      string `json:"mime_type"`
	ByteSize      *int64 `json:"byte_size"`
	ExtractedText string `json:"extracted_text"`
}

type evaluateRequest struct {
	WorkerID  string             `json:"worker_id"`
	Domains   []string           `json:"domains"`
	Documents []evaluateDocument `json:"documents"`
}

func (rt *Router) evaluate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body exceeds " + strconv.FormatInt(rt.maxUploadBytes, 10) + " bytes"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	domains, err := parseDomains(req.Domains)
	if err != nil {
		writeError(w, err)
		return
	}

	docs := make([]domain.Document, 0, len(req.Documents))
	for i, d := range req.Documents {
		if d.ByteSize == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "documents[" + strconv.Itoa(i) + "].byte_size is required"})
			return
		}
		docs = append(docs, domain.Document{
			Name:          d.Name,
			MimeType:      d.MimeType,
			ByteSize:      *d.ByteSize,
			ExtractedText: d.ExtractedText,
		})
	}

	assessments, err := rt.assessor.Assess(r.Context(), domain.AssessmentRequest{
		WorkerID:  req.WorkerID,
		Domains:   domains,
		Documents: docs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assessments": assessments})
}

func (rt *Router) getAssessment(w http.ResponseWriter, r *http.Request) {
	assessment, err := rt.reader.GetAssessment(r.Context(), r.PathValue("assessment_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

func (rt *Router) listWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := rt.reader.ListWorkers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if workers == nil {
		workers = []domain.WorkerSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"workers": workers})
}

func (rt *Router) listWorkerAssessments(w http.ResponseWriter, r *http.Request) {
	assessments, err := rt.reader.ListWorkerAssessments(r.Context(), r.PathValue("worker_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if assessments == nil {
		assessments = []domain.ComplianceAssessment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"assessments": assessments})
}

func (rt *Router) exportWorker(w http.ResponseWriter, r *http.Request) {
	workerID := r.PathValue("worker_id")
	var buf bytes.Buffer
	contentType, err := rt.reader.ExportWorker(r.Context(), workerID, &buf)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+sanitizeHeaderValue(workerID)+`-assessments.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func sanitizeHeaderValue(v string) string {
	return strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r < 0x20 || r > 0x7e {
			return '_'
		}
		return r
	}, v)
}

func (rt *Router) deleteWorker(w http.ResponseWriter, r *http.Request) {
	if err := rt.reader.DeleteWorker(r.Context(), r.PathValue("worker_id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
