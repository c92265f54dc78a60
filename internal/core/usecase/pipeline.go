package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
	"github.com/kirillkom/doc-annotator/internal/core/ports"
)

// PipelineObserver receives per-file outcomes, e.g. for metrics.
type PipelineObserver interface {
	ObserveFile(format domain.Format, err error)
}

type PipelineUseCase struct {
	extractor ports.TextExtractor
	annotator ports.Annotator
	observer  PipelineObserver
	logger    *slog.Logger
}

func NewPipelineUseCase(
	extractor ports.TextExtractor,
	annotator ports.Annotator,
	observer PipelineObserver,
	logger *slog.Logger,
) *PipelineUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelineUseCase{
		extractor: extractor,
		annotator: annotator,
		observer:  observer,
		logger:    logger,
	}
}

func (uc *PipelineUseCase) AnnotateFile(
	ctx context.Context,
	path string,
	maxWords int,
	profile domain.Profile,
) (*domain.FileAnnotation, error) {
	doc := domain.NewDocument(path)
	result, err := uc.annotate(ctx, doc, maxWords, profile)
	if uc.observer != nil {
		uc.observer.ObserveFile(doc.Format, err)
	}
	return result, err
}

func (uc *PipelineUseCase) annotate(
	ctx context.Context,
	doc domain.Document,
	maxWords int,
	profile domain.Profile,
) (*domain.FileAnnotation, error) {
	uc.logger.Info("file_processing_started", "file", doc.Filename, "format", string(doc.Format))

	if profile != domain.ProfileTitle && maxWords < 1 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "annotate file", fmt.Errorf("max_words must be >= 1, got %d", maxWords))
	}

	if _, err := os.Stat(doc.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrFileNotFound, "annotate file", fmt.Errorf("%s", doc.Path))
		}
		return nil, fmt.Errorf("stat %s: %w", doc.Path, err)
	}

	extraction, err := uc.extractor.Extract(ctx, doc.Path)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	if extraction.Empty() {
		return nil, domain.WrapError(domain.ErrNoTextLayer, "extract text", errors.New("empty extracted text"))
	}

	uc.logger.Info("annotation_requested", "file", doc.Filename, "max_words", maxWords, "profile", string(profile))
	annotation, err := uc.annotator.GenerateWithProfile(ctx, profile, extraction.Text, maxWords)
	if err != nil {
		return nil, fmt.Errorf("generate annotation: %w", err)
	}

	return &domain.FileAnnotation{
		Document:   doc,
		Extraction: extraction,
		Annotation: annotation,
	}, nil
}
