package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/sponsor-compliance/internal/bootstrap"
	"github.com/kirillkom/sponsor-compliance/internal/config"
	"github.com/kirillkom/sponsor-compliance/internal/observability/logging"
	"github.com/kirillkom/sponsor-compliance/internal/observability/metrics"
)

const service = "worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(service)
	app, err := bootstrap.New(ctx, cfg, logger, workerMetrics)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", workerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "queue_group", cfg.NATSQueueGroup)
	err = app.Queue.SubscribeBatchSubmitted(ctx, func(handlerCtx context.Context, batchID string) error {
		if batch, err := app.Batches.GetByID(handlerCtx, batchID); err == nil {
			workerMetrics.ObserveQueueLag(service, time.Since(batch.CreatedAt))
		}

		started := time.Now()
		workerMetrics.StartBatch()
		err := app.ProcessUC.ProcessByID(handlerCtx, batchID)
		workerMetrics.FinishBatch(service, time.Since(started), err)
		if err == nil {
			logger.Info("batch_processed", "batch_id", batchID, "duration_ms", time.Since(started).Milliseconds())
		}
		return err
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
