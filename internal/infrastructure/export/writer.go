// Package export writes batch results and single annotations to disk.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
)

// Writer picks the output format from the file extension: .xlsx produces a
// spreadsheet, anything else a JSON array.
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) WriteBatch(ctx context.Context, path string, records []domain.BatchRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return writeXLSX(path, records)
	}
	return writeJSON(path, records)
}

// writeJSON keeps non-ASCII text readable: no HTML escaping, two-space indent.
func writeJSON(path string, records []domain.BatchRecord) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

const separatorWidth = 50

// AnnotationFileName is "<stem>_annotation.txt" in dir.
func AnnotationFileName(dir string, doc domain.Document) string {
	return filepath.Join(dir, doc.Stem()+"_annotation.txt")
}

// WriteAnnotationFile saves one annotation in the plain-text layout used by
// the interactive mode.
func WriteAnnotationFile(path, sourceFilename, annotation string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Файл: %s\n", sourceFilename)
	fmt.Fprintf(&b, "Аннотация (%d слов):\n", domain.WordCount(annotation))
	b.WriteString(strings.Repeat("=", separatorWidth))
	b.WriteByte('\n')
	b.WriteString(annotation)
	b.WriteByte('\n')

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write annotation file: %w", err)
	}
	return nil
}
