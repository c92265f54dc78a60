package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
	"github.com/kirillkom/doc-annotator/internal/core/ports"
	"github.com/kirillkom/doc-annotator/internal/core/usecase"
)

// Enqueue publishes one annotation job per file instead of annotating locally.
// A directory expands to its supported files. Paths are made absolute so a
// worker on the same filesystem can open them.
func Enqueue(ctx context.Context, queue ports.JobQueue, path string, maxWords int, profile domain.Profile) (int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return 0, domain.WrapError(domain.ErrFileNotFound, "enqueue", err)
	}

	paths := []string{abs}
	if info.IsDir() {
		paths, err = usecase.ScanFolder(abs)
		if err != nil {
			return 0, err
		}
	}

	for i, p := range paths {
		job := domain.AnnotationJob{Path: p, MaxWords: maxWords, Profile: profile}
		if err := queue.PublishAnnotationJob(ctx, job); err != nil {
			return i, fmt.Errorf("publish %s: %w", filepath.Base(p), err)
		}
	}
	return len(paths), nil
}
