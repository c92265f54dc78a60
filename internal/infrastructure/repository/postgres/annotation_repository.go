package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
)

const (
	schemaLockID     = int64(2026101901)
	defaultListLimit = 50
	maxListLimit     = 500
)

type AnnotationRepository struct {
	db *sql.DB
}

func NewAnnotationRepository(db *sql.DB) *AnnotationRepository {
	return &AnnotationRepository{db: db}
}

func (r *AnnotationRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// api, worker and cli may start together against one database.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS annotations (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	path TEXT NOT NULL,
	title TEXT NOT NULL,
	word_count INTEGER NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_annotations_processed_at ON annotations(processed_at DESC);
CREATE INDEX IF NOT EXISTS idx_annotations_filename ON annotations(filename);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *AnnotationRepository) Save(ctx context.Context, record domain.BatchRecord) error {
	if strings.TrimSpace(record.Filename) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "save annotation", errors.New("filename is required"))
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO annotations (id, filename, path, title, word_count, processed_at)
VALUES ($1,$2,$3,$4,$5,$6)
`,
		uuid.NewString(), record.Filename, record.Path, record.Title, record.WordCount, record.ProcessedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert annotation: %w", err)
	}
	return nil
}

func (r *AnnotationRepository) ListRecent(ctx context.Context, limit int) ([]domain.BatchRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	rows, err := r.db.QueryContext(ctx, `
SELECT filename, path, title, word_count, processed_at
FROM annotations
ORDER BY processed_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query annotations: %w", err)
	}
	defer rows.Close()

	records := make([]domain.BatchRecord, 0, limit)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annotations: %w", err)
	}
	return records, nil
}

func (r *AnnotationRepository) LatestByFilename(ctx context.Context, filename string) (domain.BatchRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT filename, path, title, word_count, processed_at
FROM annotations
WHERE filename = $1
ORDER BY processed_at DESC
LIMIT 1
`, filename)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.BatchRecord{}, domain.WrapError(domain.ErrAnnotationNotFound, "latest annotation", fmt.Errorf("%s", filename))
		}
		return domain.BatchRecord{}, err
	}
	return record, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.BatchRecord, error) {
	var record domain.BatchRecord
	if err := row.Scan(&record.Filename, &record.Path, &record.Title, &record.WordCount, &record.ProcessedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.BatchRecord{}, err
		}
		return domain.BatchRecord{}, fmt.Errorf("scan annotation: %w", err)
	}
	return record, nil
}
