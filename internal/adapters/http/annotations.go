package httpadapter

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
)

type annotationResponse struct {
	Filename   string `json:"filename"`
	Format     string `json:"format"`
	Method     string `json:"method"`
	Profile    string `json:"profile"`
	MaxWords   int    `json:"max_words"`
	Annotation string `json:"annotation"`
	WordCount  int    `json:"word_count"`
}

func (rt *Router) createAnnotation(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(max(rt.cfg.APIMaxUploadMB, 1)) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d MB", rt.cfg.APIMaxUploadMB))
			return
		}
		writeError(w, r, http.StatusBadRequest, errors.New("multipart field 'file' is required"))
		return
	}
	defer file.Close()

	maxWords, err := parseMaxWords(r.FormValue("max_words"), rt.defaultMaxWords())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	profile, ok := domain.ParseProfile(r.FormValue("mode"))
	if !ok {
		writeDomainError(w, r, domain.WrapError(domain.ErrInvalidInput, "parse mode", fmt.Errorf("unknown mode %q", r.FormValue("mode"))))
		return
	}

	filename := filepath.Base(header.Filename)
	if domain.DetectFormat(filename) == domain.FormatUnsupported {
		writeDomainError(w, r, domain.WrapError(domain.ErrUnsupportedFormat, "upload", fmt.Errorf("%q", filename)))
		return
	}
	if rt.httpMetrics != nil {
		rt.httpMetrics.ObserveUpload(header.Size)
	}

	key := uuid.NewString() + "_" + sanitizeFilename(filename)
	if err := rt.storage.Save(r.Context(), key, file); err != nil {
		writeDomainError(w, r, fmt.Errorf("store upload: %w", err))
		return
	}
	defer func() {
		if err := rt.storage.Remove(r.Context(), key); err != nil {
			rt.logger.Warn("upload_cleanup_failed", "key", key, "error", err)
		}
	}()

	result, err := rt.files.AnnotateFile(r.Context(), rt.storage.Path(key), maxWords, profile)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if rt.repo != nil {
		record := domain.BatchRecord{
			Filename:    filename,
			Title:       result.Annotation.Text,
			Path:        filename,
			ProcessedAt: time.Now().UTC(),
			WordCount:   result.Annotation.Words,
		}
		if err := rt.repo.Save(r.Context(), record); err != nil {
			rt.logger.Warn("annotation_persist_failed",
				"request_id", requestIDFromContext(r.Context()),
				"file", filename,
				"error", err,
			)
		}
	}

	writeJSON(w, http.StatusOK, annotationResponse{
		Filename:   filename,
		Format:     string(result.Extraction.Format),
		Method:     result.Extraction.Method,
		Profile:    string(result.Annotation.Profile),
		MaxWords:   result.Annotation.MaxWords,
		Annotation: result.Annotation.Text,
		WordCount:  result.Annotation.Words,
	})
}

func (rt *Router) listAnnotations(w http.ResponseWriter, r *http.Request) {
	if rt.repo == nil {
		writeError(w, r, http.StatusNotImplemented, errors.New("annotation storage is not configured"))
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, r, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	records, err := rt.repo.ListRecent(r.Context(), limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (rt *Router) getLatestAnnotation(w http.ResponseWriter, r *http.Request) {
	if rt.repo == nil {
		writeError(w, r, http.StatusNotImplemented, errors.New("annotation storage is not configured"))
		return
	}

	record, err := rt.repo.LatestByFilename(r.Context(), r.PathValue("filename"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (rt *Router) defaultMaxWords() int {
	if rt.cfg.DefaultMaxWords > 0 {
		return rt.cfg.DefaultMaxWords
	}
	return domain.DefaultMaxWords
}

// parseMaxWords accepts an empty value (default) or a positive integer.
func parseMaxWords(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "parse max_words", fmt.Errorf("%q is not a positive integer", raw))
	}
	return n, nil
}

// sanitizeFilename keeps the extension intact so the extractor can dispatch on it.
func sanitizeFilename(name string) string {
	base := strings.ReplaceAll(filepath.Base(name), " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r == '/', r == '\\', r == 0:
			return '_'
		case r < 0x20:
			return -1
		default:
			return r
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "document.bin"
	}
	return base
}
