package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kirillkom/doc-annotator/internal/bootstrap"
	"github.com/kirillkom/doc-annotator/internal/config"
	"github.com/kirillkom/doc-annotator/internal/core/domain"
	"github.com/kirillkom/doc-annotator/internal/observability/logging"
	"github.com/kirillkom/doc-annotator/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.New(os.Stdout, "annotator-worker", cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: "annotator-worker", Logger: logger, Queue: true})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(app.Metrics)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           app.Metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeAnnotationJobs(ctx, func(handlerCtx context.Context, job domain.AnnotationJob) error {
		jobCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		maxWords := job.MaxWords
		if maxWords <= 0 {
			maxWords = cfg.DefaultMaxWords
		}
		profile := job.Profile
		if profile == "" {
			profile = domain.ProfileAnnotation
		}

		workerMetrics.StartJob()
		started := time.Now()
		result, err := app.PipelineUC.AnnotateFile(jobCtx, job.Path, maxWords, profile)
		workerMetrics.FinishJob(time.Since(started), err)
		if err != nil {
			return err
		}

		logger.Info("worker_job_done",
			"file", filepath.Base(job.Path),
			"words", result.Annotation.Words,
			"duration_ms", time.Since(started).Milliseconds(),
		)
		if app.Repo == nil {
			return nil
		}
		return app.Repo.Save(jobCtx, domain.BatchRecord{
			Filename:    result.Document.Filename,
			Title:       result.Annotation.Text,
			Path:        result.Document.Path,
			ProcessedAt: time.Now().UTC(),
			WordCount:   result.Annotation.Words,
		})
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
