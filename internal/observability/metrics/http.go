package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	*assessmentCollectors

	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	batchesSubmitted *prometheus.CounterVec
	batchDocuments   *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "compliance",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "compliance",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "compliance",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	batchesSubmitted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "compliance",
			Subsystem: "batch",
			Name:      "submitted_total",
			Help:      "Total accepted upload batches.",
		},
		[]string{"service"},
	)
	batchDocuments := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "compliance",
			Subsystem: "batch",
			Name:      "documents",
			Help:      "Distribution of documents per accepted batch.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 50},
		},
		[]string{"service"},
	)
	assessments := newAssessmentCollectors(service)

	registry.MustRegister(requestTotal, requestDuration, requestInFlight, batchesSubmitted, batchDocuments)
	registry.MustRegister(assessments.collectors()...)

	return &HTTPServerMetrics{
		assessmentCollectors: assessments,
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		batchesSubmitted:     batchesSubmitted,
		batchDocuments:       batchDocuments,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses ids so label cardinality stays bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/batches/"):
		return "/v1/batches/{batch_id}"
	case path == "/v1/assessments/evaluate":
		return path
	case strings.HasPrefix(path, "/v1/assessments/"):
		return "/v1/assessments/{assessment_id}"
	case strings.HasPrefix(path, "/v1/workers/"):
		switch {
		case strings.HasSuffix(path, "/assessments/export"):
			return "/v1/workers/{worker_id}/assessments/export"
		case strings.HasSuffix(path, "/assessments"):
			return "/v1/workers/{worker_id}/assessments"
		case strings.HasSuffix(path, "/batches"):
			return "/v1/workers/{worker_id}/batches"
		default:
			return "/v1/workers/{worker_id}"
		}
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordBatchSubmitted(service string, documents int) {
	m.batchesSubmitted.WithLabelValues(service).Inc()
	m.batchDocuments.WithLabelValues(service).Observe(float64(documents))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
