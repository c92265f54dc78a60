package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/doc-annotator/internal/config"
	"github.com/kirillkom/doc-annotator/internal/core/domain"
	"github.com/kirillkom/doc-annotator/internal/core/ports"
	"github.com/kirillkom/doc-annotator/internal/core/usecase"
	"github.com/kirillkom/doc-annotator/internal/infrastructure/export"
	"github.com/kirillkom/doc-annotator/internal/infrastructure/extractor"
	"github.com/kirillkom/doc-annotator/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/doc-annotator/internal/infrastructure/llm/tokenizer"
	"github.com/kirillkom/doc-annotator/internal/infrastructure/queue/nats"
	"github.com/kirillkom/doc-annotator/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/doc-annotator/internal/infrastructure/resilience"
	"github.com/kirillkom/doc-annotator/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/doc-annotator/internal/observability/metrics"
)

// Options select the optional infrastructure a command needs.
type Options struct {
	Service string
	Logger  *slog.Logger
	// Storage opens the upload directory (API only).
	Storage bool
	// Queue connects to NATS (worker and producers).
	Queue bool
}

type App struct {
	Config       config.Config
	Logger       *slog.Logger
	Metrics      *metrics.Registry
	Capabilities domain.Capabilities

	Extractor *extractor.Extractor
	Session   *ollama.Session
	Repo      ports.AnnotationRepository
	Storage   *localfs.Storage
	Queue     *nats.Queue
	Writer    *export.Writer

	AnnotateUC *usecase.AnnotateUseCase
	PipelineUC *usecase.PipelineUseCase
	BatchUC    *usecase.BatchUseCase

	closers []func()
}

// New detects capabilities, loads the model session once and wires the use
// cases. Everything opened here is released by Close.
func New(ctx context.Context, cfg config.Config, opts Options) (_ *App, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewRegistry(opts.Service),
		Writer:  export.NewWriter(),
	}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	app.Capabilities = extractor.DetectCapabilities(extractor.CapabilityOptions{
		DisablePDF:     cfg.DisablePDF,
		DisableDOCX:    cfg.DisableDOCX,
		AntiwordBin:    cfg.AntiwordBin,
		LibreOfficeBin: cfg.LibreOfficeBin,
	})
	logger.Info("capabilities_detected",
		"pdf", app.Capabilities.PDF,
		"docx", app.Capabilities.DOCX,
		"antiword", app.Capabilities.Antiword,
		"libreoffice", app.Capabilities.LibreOffice,
	)
	app.Extractor = extractor.New(app.Capabilities, extractor.Options{
		ConverterTimeout: cfg.ConverterTimeout,
		Logger:           logger,
	})

	pipelineMetrics := metrics.NewPipelineMetrics(app.Metrics)
	executor := resilience.NewExecutor(resilienceConfig(cfg),
		resilience.WithLogger(logger),
		resilience.WithStateObserver(pipelineMetrics.ObserveBreakerState),
	)

	app.Session = ollama.New(ollama.Config{
		BaseURL:   cfg.OllamaURL,
		Model:     cfg.OllamaModel,
		KeepAlive: cfg.OllamaKeepAlive,
		Timeout:   cfg.OllamaTimeout,
		Seed:      cfg.OllamaSeed,
	}, executor, logger)
	if err := app.Session.Load(ctx); err != nil {
		return nil, fmt.Errorf("load model %s: %w", cfg.OllamaModel, err)
	}
	app.closers = append(app.closers, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.Session.Close(closeCtx); err != nil {
			logger.Warn("model_unload_failed", "error", err)
		}
	})

	annotateOpts := []usecase.AnnotateOption{
		usecase.WithPromptPrefix(cfg.PromptPrefix),
		usecase.WithAnnotateLogger(logger),
	}
	if tk, err := tokenizer.FromModelDir(cfg.ModelDir); err != nil {
		logger.Warn("tokenizer_unavailable", "model_dir", cfg.ModelDir, "error", err)
	} else {
		annotateOpts = append(annotateOpts, usecase.WithTokenizer(tk))
		app.closers = append(app.closers, func() { _ = tk.Close() })
	}

	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		app.closers = append(app.closers, func() { _ = db.Close() })
		repo := postgres.NewAnnotationRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		app.Repo = repo
	}

	if opts.Storage {
		storage, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("init upload storage: %w", err)
		}
		app.Storage = storage
	}

	if opts.Queue {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig(), resilience.WithLogger(logger)),
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init job queue: %w", err)
		}
		app.Queue = queue
		app.closers = append(app.closers, queue.Close)
	}

	app.AnnotateUC = usecase.NewAnnotateUseCase(app.Session, annotateOpts...)
	app.PipelineUC = usecase.NewPipelineUseCase(app.Extractor, app.AnnotateUC, pipelineMetrics, logger)
	app.BatchUC = usecase.NewBatchUseCase(app.PipelineUC, app.Repo, app.Writer, logger)
	return app, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = cfg.RetryMaxAttempts
	out.BreakerEnabled = cfg.BreakerEnabled
	if cfg.BreakerMinRequests > 0 {
		out.BreakerMinRequests = uint32(cfg.BreakerMinRequests)
	}
	if cfg.BreakerFailureRatio > 0 {
		out.BreakerFailureRatio = cfg.BreakerFailureRatio
	}
	if cfg.BreakerOpenTimeout > 0 {
		out.BreakerOpenTimeout = cfg.BreakerOpenTimeout
	}
	return out
}

// IsStartupModelError reports whether New failed because the model could not be loaded.
func IsStartupModelError(err error) bool {
	return errors.Is(err, domain.ErrModelNotLoaded)
}
