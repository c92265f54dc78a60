package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/richardlehane/mscfb"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
)

type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", filepath.Base(name), err, msg)
		}
		return nil, fmt.Errorf("%s: %w", filepath.Base(name), err)
	}
	return stdout.Bytes(), nil
}

// extractDOC tries antiword, then libreoffice. Antiword only reads Word 97+
// binaries, so files that are not OLE compound documents with a WordDocument
// stream (RTF or renamed DOCX saved as .doc) go straight to libreoffice.
func (e *Extractor) extractDOC(ctx context.Context, path string) (domain.Extraction, error) {
	wordBinary := true
	if err := checkWordBinary(path); err != nil {
		wordBinary = false
		e.logger.Info("extract_doc_not_word_binary", "path", path, "error", err)
	}

	var attempts []error
	if e.caps.Antiword && wordBinary {
		text, err := e.runAntiword(ctx, path)
		if err == nil {
			return docExtraction(text, "antiword")
		}
		e.logger.Warn("extract_doc_antiword_failed", "path", path, "error", err)
		attempts = append(attempts, err)
	}
	if e.caps.LibreOffice {
		text, err := e.runLibreOffice(ctx, path)
		if err == nil {
			return docExtraction(text, "libreoffice")
		}
		e.logger.Warn("extract_doc_libreoffice_failed", "path", path, "error", err)
		attempts = append(attempts, err)
	}

	if len(attempts) == 0 {
		if e.caps.Antiword {
			return domain.Extraction{}, domain.WrapError(domain.ErrToolUnavailable, "extract doc",
				errors.New("not a Word binary and libreoffice is not installed"))
		}
		return domain.Extraction{}, domain.WrapError(domain.ErrToolUnavailable, "extract doc", errors.New("neither antiword nor libreoffice is installed"))
	}
	return domain.Extraction{}, domain.WrapError(domain.ErrCorruptDocument, "extract doc", errors.Join(attempts...))
}

func docExtraction(text, method string) (domain.Extraction, error) {
	extraction := domain.Extraction{
		Text:   strings.TrimSpace(text),
		Format: domain.FormatDOC,
		Method: method,
	}
	if extraction.Text == "" {
		return extraction, domain.WrapError(domain.ErrNoTextLayer, "extract doc", fmt.Errorf("%s produced no text", method))
	}
	return extraction, nil
}

// checkWordBinary reports whether path is an OLE compound document with a
// WordDocument stream.
func checkWordBinary(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader, err := mscfb.New(f)
	if err != nil {
		return fmt.Errorf("not a compound document: %w", err)
	}
	for entry, err := reader.Next(); ; entry, err = reader.Next() {
		if err == io.EOF {
			return errors.New("no WordDocument stream")
		}
		if err != nil {
			return fmt.Errorf("read compound document: %w", err)
		}
		if entry.Name == "WordDocument" {
			return nil
		}
	}
}

func (e *Extractor) runAntiword(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.converterTimeout)
	defer cancel()

	out, err := e.runner.Run(ctx, e.caps.AntiwordPath, path)
	if err != nil {
		return "", err
	}
	text, _ := decodeText(out, legacyEncodings)
	return text, nil
}

func (e *Extractor) runLibreOffice(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.converterTimeout)
	defer cancel()

	outDir, err := os.MkdirTemp("", "annotator-doc-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	// A private profile keeps headless runs from colliding with a desktop session.
	profile := "-env:UserInstallation=file://" + filepath.ToSlash(filepath.Join(outDir, "profile"))
	if _, err := e.runner.Run(ctx, e.caps.LibreOfficePath,
		profile,
		"--headless",
		"--convert-to", "txt:Text",
		"--outdir", outDir,
		path,
	); err != nil {
		return "", err
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	raw, err := os.ReadFile(filepath.Join(outDir, stem+".txt"))
	if err != nil {
		return "", fmt.Errorf("read converted text: %w", err)
	}
	return strings.ToValidUTF8(string(bytes.TrimPrefix(raw, utf8BOM)), ""), nil
}
