package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/sponsor-compliance/internal/config"
	"github.com/kirillkom/sponsor-compliance/internal/core/narrative"
	"github.com/kirillkom/sponsor-compliance/internal/core/ports"
	"github.com/kirillkom/sponsor-compliance/internal/core/signals"
	"github.com/kirillkom/sponsor-compliance/internal/core/usecase"
	"github.com/kirillkom/sponsor-compliance/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/sponsor-compliance/internal/infrastructure/extractor"
	"github.com/kirillkom/sponsor-compliance/internal/infrastructure/extractor/docparse"
	"github.com/kirillkom/sponsor-compliance/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/sponsor-compliance/internal/infrastructure/extractor/plaintext"
	llmnarrative "github.com/kirillkom/sponsor-compliance/internal/infrastructure/llm/narrative"
	"github.com/kirillkom/sponsor-compliance/internal/infrastructure/queue/nats"
	"github.com/kirillkom/sponsor-compliance/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/sponsor-compliance/internal/infrastructure/resilience"
	"github.com/kirillkom/sponsor-compliance/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Batches   ports.BatchRepository
	IngestUC  ports.BatchIngestor
	ProcessUC ports.BatchProcessor
	AssessUC  ports.Assessor
	QueryUC   *usecase.AssessmentQueryUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, recorder ports.AssessmentRecorder) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	businessRules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	businessRules = businessRules.Apply(cfg)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	batchRepo := postgres.NewBatchRepository(db)
	assessmentRepo := postgres.NewAssessmentRepository(db)
	summaryRepo := postgres.NewWorkerSummaryRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	resilienceCfg := resilience.DefaultConfig()
	resilienceCfg.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	resilienceCfg.BreakerEnabled = cfg.ResilienceBreakerEnabled
	resilienceCfg.BreakerOpenTimeout = time.Duration(cfg.ResilienceBreakerOpenSeconds) * time.Second

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		QueueGroup:         cfg.NATSQueueGroup,
		HandlerTimeout:     time.Duration(cfg.BatchTimeoutSeconds) * time.Second,
		ResilienceExecutor: resilience.NewExecutor(resilienceCfg, logger.With("component", "nats")),
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	var remoteParser ports.TextExtractor
	if cfg.DocParseURL != "" {
		remoteParser = docparse.New(cfg.DocParseURL, storage, time.Duration(cfg.DocParseTimeoutSeconds)*time.Second, resilienceCfg, logger)
	}
	textExtractor := extractor.NewChain(remoteParser, logger,
		extractor.Route{Name: "pdf", Supports: pdf.Supports, Extractor: pdf.NewExtractor(storage, cfg.PDFMaxPages)},
		extractor.Route{Name: "plaintext", Supports: plaintext.Supports, Extractor: plaintext.NewExtractor(storage)},
	)

	var narrativeService ports.NarrativeService
	if cfg.NarrativeURL != "" {
		narrativeService = llmnarrative.New(cfg.NarrativeURL, cfg.NarrativeAPIKey, time.Duration(cfg.NarrativeTimeoutSeconds)*time.Second, resilienceCfg, logger)
	}
	renderer := narrative.NewRenderer(narrativeService, time.Duration(cfg.NarrativeTimeoutSeconds)*time.Second, logger)

	var random signals.RandomSource
	if cfg.RandomSeed != 0 {
		random = signals.NewRandomSource(uint64(cfg.RandomSeed))
	}
	signalExtractor := signals.NewExtractor(businessRules.Extraction, random, nil).WithLogger(logger)

	assessUC, err := usecase.NewAssessUseCase(signalExtractor, businessRules.Thresholds, renderer, usecase.NewAssembler(nil, nil), usecase.AssessOptions{
		Assessments: assessmentRepo,
		Summaries:   summaryRepo,
		Recorder:    recorder,
		Logger:      logger,
	})
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init assessment pipeline: %w", err)
	}

	ingestUC := usecase.NewIngestBatchUseCase(batchRepo, storage, queue, cfg.MaxBatchFiles, logger)
	processUC := usecase.NewProcessBatchUseCase(batchRepo, textExtractor, assessUC, logger)
	queryUC := usecase.NewAssessmentQueryUseCase(batchRepo, assessmentRepo, summaryRepo, storage, xlsx.NewExporter(), logger)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:   queue,
		Batches: batchRepo,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		AssessUC:  assessUC,
		QueryUC:   queryUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
