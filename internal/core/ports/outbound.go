package ports

import (
	"context"
	"io"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
)

// TextExtractor extracts plain text from a document on disk.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (domain.Extraction, error)
}

// ModelSession is a loaded sequence-to-sequence model. It is created once and
// shared by reference between generation calls.
type ModelSession interface {
	Generate(ctx context.Context, prompt string, params domain.GenerationParams) (string, error)
	Name() string
}

// Tokenizer is the tokenizer shipped with the model.
type Tokenizer interface {
	Encode(text string) []uint32
	Decode(ids []uint32) string
}

// AnnotationRepository persists batch records.
type AnnotationRepository interface {
	Save(ctx context.Context, record domain.BatchRecord) error
	ListRecent(ctx context.Context, limit int) ([]domain.BatchRecord, error)
	LatestByFilename(ctx context.Context, filename string) (domain.BatchRecord, error)
}

// BatchResultWriter writes the results of a folder run.
type BatchResultWriter interface {
	WriteBatch(ctx context.Context, path string, records []domain.BatchRecord) error
}

// ObjectStorage stores uploaded source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Remove(ctx context.Context, key string) error
	Path(key string) string
}

// JobQueue publishes and consumes annotation jobs.
type JobQueue interface {
	PublishAnnotationJob(ctx context.Context, job domain.AnnotationJob) error
	SubscribeAnnotationJobs(ctx context.Context, handler func(context.Context, domain.AnnotationJob) error) error
}
