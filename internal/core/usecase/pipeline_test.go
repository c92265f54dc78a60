package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
)

type extractorFake struct {
	byFormat map[domain.Format]domain.Extraction
	errs     map[domain.Format]error
	calls    []string
}

func (f *extractorFake) Extract(_ context.Context, path string) (domain.Extraction, error) {
	f.calls = append(f.calls, path)
	format := domain.DetectFormat(path)
	if err := f.errs[format]; err != nil {
		return domain.Extraction{}, err
	}
	return f.byFormat[format], nil
}

type observerFake struct {
	formats []domain.Format
	errs    []error
}

func (f *observerFake) ObserveFile(format domain.Format, err error) {
	f.formats = append(f.formats, format)
	f.errs = append(f.errs, err)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", name, err)
	}
	return path
}

func TestAnnotateFileSuccess(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "report.txt", "Годовой отчёт компании")

	extractor := &extractorFake{byFormat: map[domain.Format]domain.Extraction{
		domain.FormatTXT: {Text: "Годовой отчёт компании", Format: domain.FormatTXT, Method: "txt"},
	}}
	observer := &observerFake{}
	uc := NewPipelineUseCase(
		extractor,
		NewAnnotateUseCase(&sessionFake{output: "Годовой отчёт компании за прошлый год"}),
		observer,
		nil,
	)

	result, err := uc.AnnotateFile(context.Background(), path, 35, domain.ProfileAnnotation)
	if err != nil {
		t.Fatalf("AnnotateFile() error = %v", err)
	}
	if result.Document.Filename != "report.txt" || result.Document.Format != domain.FormatTXT {
		t.Fatalf("unexpected document %+v", result.Document)
	}
	if result.Annotation.Text != "Годовой отчёт компании за прошлый год" || result.Annotation.Words != 6 {
		t.Fatalf("unexpected annotation %+v", result.Annotation)
	}
	if len(observer.errs) != 1 || observer.errs[0] != nil || observer.formats[0] != domain.FormatTXT {
		t.Fatalf("unexpected observations %+v %+v", observer.formats, observer.errs)
	}
}

func TestAnnotateFileMissingFile(t *testing.T) {
	extractor := &extractorFake{}
	uc := NewPipelineUseCase(extractor, NewAnnotateUseCase(&sessionFake{}), nil, nil)

	_, err := uc.AnnotateFile(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), 35, domain.ProfileAnnotation)
	if !domain.IsKind(err, domain.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if domain.Sentinel(err) != domain.SentinelFileNotFound {
		t.Fatalf("unexpected sentinel %q", domain.Sentinel(err))
	}
	if len(extractor.calls) != 0 {
		t.Fatalf("extractor must not run for a missing file")
	}
}

func TestAnnotateFileEmptyExtractionSkipsModel(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scan.pdf", "%PDF-1.4")
	session := &sessionFake{output: "x"}
	uc := NewPipelineUseCase(
		&extractorFake{errs: map[domain.Format]error{
			domain.FormatPDF: domain.WrapError(domain.ErrNoTextLayer, "extract pdf", errors.New("0 of 3 pages")),
		}},
		NewAnnotateUseCase(session),
		nil,
		nil,
	)

	_, err := uc.AnnotateFile(context.Background(), path, 35, domain.ProfileAnnotation)
	if !domain.IsKind(err, domain.ErrNoTextLayer) {
		t.Fatalf("expected ErrNoTextLayer, got %v", err)
	}
	if domain.Sentinel(err) != domain.SentinelExtractionFailed {
		t.Fatalf("unexpected sentinel %q", domain.Sentinel(err))
	}
	if session.calls != 0 {
		t.Fatalf("model must not be invoked")
	}
}

func TestAnnotateFileWhitespaceExtractionIsRejected(t *testing.T) {
	path := writeFile(t, t.TempDir(), "blank.txt", "   ")
	session := &sessionFake{output: "x"}
	uc := NewPipelineUseCase(
		&extractorFake{byFormat: map[domain.Format]domain.Extraction{domain.FormatTXT: {Text: "  \n "}}},
		NewAnnotateUseCase(session),
		nil,
		nil,
	)

	_, err := uc.AnnotateFile(context.Background(), path, 35, domain.ProfileAnnotation)
	if !domain.IsKind(err, domain.ErrNoTextLayer) {
		t.Fatalf("expected ErrNoTextLayer, got %v", err)
	}
	if domain.Sentinel(err) != domain.SentinelExtractionFailed {
		t.Fatalf("unexpected sentinel %q", domain.Sentinel(err))
	}
	if session.calls != 0 {
		t.Fatalf("model must not be invoked")
	}
}

func TestAnnotateFileRejectsMaxWordsBeforeExtraction(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.txt", "text")
	extractor := &extractorFake{byFormat: map[domain.Format]domain.Extraction{domain.FormatTXT: {Text: "text"}}}
	session := &sessionFake{output: "x"}
	uc := NewPipelineUseCase(extractor, NewAnnotateUseCase(session), nil, nil)

	_, err := uc.AnnotateFile(context.Background(), path, 0, domain.ProfileAnnotation)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if domain.Sentinel(err) != domain.SentinelInvalidInput {
		t.Fatalf("unexpected sentinel %q", domain.Sentinel(err))
	}
	if len(extractor.calls) != 0 || session.calls != 0 {
		t.Fatalf("extraction and generation must be skipped, got %d/%d calls", len(extractor.calls), session.calls)
	}
}

func TestAnnotateFilePropagatesGenerationError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.txt", "text")
	uc := NewPipelineUseCase(
		&extractorFake{byFormat: map[domain.Format]domain.Extraction{domain.FormatTXT: {Text: "text"}}},
		NewAnnotateUseCase(&sessionFake{err: errors.New("model crashed")}),
		nil,
		nil,
	)

	_, err := uc.AnnotateFile(context.Background(), path, 35, domain.ProfileAnnotation)
	if domain.Sentinel(err) != domain.SentinelGenerationError {
		t.Fatalf("expected generation sentinel, got %v", err)
	}
}
