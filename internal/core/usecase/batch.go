package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
	"github.com/kirillkom/doc-annotator/internal/core/ports"
)

type BatchUseCase struct {
	files  ports.FileAnnotator
	repo   ports.AnnotationRepository
	writer ports.BatchResultWriter
	logger *slog.Logger
	now    func() time.Time
}

// NewBatchUseCase wires a folder processor. repo and writer are optional.
func NewBatchUseCase(
	files ports.FileAnnotator,
	repo ports.AnnotationRepository,
	writer ports.BatchResultWriter,
	logger *slog.Logger,
) *BatchUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchUseCase{
		files:  files,
		repo:   repo,
		writer: writer,
		logger: logger,
		now:    time.Now,
	}
}

// ProcessFolder annotates every supported file directly inside dir, one at a
// time. Files that fail are logged and left out of the result.
func (uc *BatchUseCase) ProcessFolder(ctx context.Context, dir string, opts domain.BatchOptions) ([]domain.BatchRecord, error) {
	if opts.MaxWords == 0 {
		opts.MaxWords = domain.DefaultMaxWords
	}
	if opts.Profile == "" {
		opts.Profile = domain.ProfileAnnotation
	}

	paths, err := ScanFolder(dir)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("batch_started", "dir", dir, "files", len(paths))

	records := make([]domain.BatchRecord, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		result, err := uc.files.AnnotateFile(ctx, path, opts.MaxWords, opts.Profile)
		if err != nil {
			uc.logger.Warn("batch_file_failed", "file", filepath.Base(path), "error", err)
			continue
		}

		record := domain.BatchRecord{
			Filename:    result.Document.Filename,
			Title:       result.Annotation.Text,
			Path:        result.Document.Path,
			ProcessedAt: uc.now(),
			WordCount:   result.Annotation.Words,
		}
		records = append(records, record)
		uc.logger.Info("batch_file_done", "file", record.Filename, "title", record.Title, "words", record.WordCount)

		if uc.repo != nil {
			if err := uc.repo.Save(ctx, record); err != nil {
				uc.logger.Warn("batch_record_persist_failed", "file", record.Filename, "error", err)
			}
		}
	}

	if opts.Output != "" && len(records) > 0 && uc.writer != nil {
		if err := uc.writer.WriteBatch(ctx, opts.Output, records); err != nil {
			return records, fmt.Errorf("write batch results: %w", err)
		}
		uc.logger.Info("batch_results_saved", "output", opts.Output, "records", len(records))
	}

	return records, nil
}

// ScanFolder lists supported files directly inside dir, sorted by name.
func ScanFolder(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "scan folder", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !slices.Contains(domain.SupportedExtensions, ext) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	slices.Sort(paths)
	return paths, nil
}
