package ports

import (
	"context"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
)

// Annotator is the inbound contract for text-to-annotation generation.
type Annotator interface {
	Generate(ctx context.Context, text string, maxWords int) (string, error)
	GenerateWithProfile(ctx context.Context, profile domain.Profile, text string, maxWords int) (domain.Annotation, error)
}

// FileAnnotator runs a single file through extraction and generation.
type FileAnnotator interface {
	AnnotateFile(ctx context.Context, path string, maxWords int, profile domain.Profile) (*domain.FileAnnotation, error)
}

// FolderProcessor annotates every supported file of a directory.
type FolderProcessor interface {
	ProcessFolder(ctx context.Context, dir string, opts domain.BatchOptions) ([]domain.BatchRecord, error)
}
