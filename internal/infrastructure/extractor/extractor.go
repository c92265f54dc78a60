// Package extractor turns PDF, DOCX, legacy DOC and TXT files into plain text.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
)

const segmentSeparator = "\n\n"

type Options struct {
	// ConverterTimeout bounds a single antiword or libreoffice run.
	ConverterTimeout time.Duration
	Logger           *slog.Logger
}

// Extractor dispatches on the file extension. It never panics: parser panics
// are converted into ErrCorruptDocument.
type Extractor struct {
	caps             domain.Capabilities
	converterTimeout time.Duration
	logger           *slog.Logger
	runner           commandRunner
}

func New(caps domain.Capabilities, options Options) *Extractor {
	timeout := options.ConverterTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		caps:             caps,
		converterTimeout: timeout,
		logger:           logger,
		runner:           execRunner{},
	}
}

func (e *Extractor) Capabilities() domain.Capabilities {
	return e.caps
}

func (e *Extractor) Extract(ctx context.Context, path string) (extraction domain.Extraction, err error) {
	format := domain.DetectFormat(path)
	operation := "extract " + string(format)

	defer func() {
		if r := recover(); r != nil {
			extraction = domain.Extraction{}
			err = domain.WrapError(domain.ErrCorruptDocument, operation, fmt.Errorf("parser panic: %v", r))
		}
		switch {
		case err == nil:
			e.logger.Info("extract_done",
				"path", path,
				"format", string(format),
				"method", extraction.Method,
				"chars", len([]rune(extraction.Text)),
			)
		case errors.Is(err, domain.ErrNoTextLayer):
			e.logger.Warn("extract_no_text_layer", "path", path, "format", string(format), "error", err)
		default:
			e.logger.Error("extract_failed", "path", path, "format", string(format), "error", err)
		}
	}()

	if format == domain.FormatUnsupported {
		return domain.Extraction{}, domain.WrapError(domain.ErrUnsupportedFormat, operation, fmt.Errorf("%q", path))
	}
	if !e.caps.Supports(format) {
		return domain.Extraction{}, domain.WrapError(domain.ErrToolUnavailable, operation, fmt.Errorf("no reader enabled for %s", format))
	}

	switch format {
	case domain.FormatPDF:
		return e.extractPDF(path)
	case domain.FormatDOCX:
		return e.extractDOCX(path)
	case domain.FormatDOC:
		return e.extractDOC(ctx, path)
	default:
		return e.extractTXT(path)
	}
}
