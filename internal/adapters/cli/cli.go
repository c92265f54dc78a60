// Package cli is the terminal front end: argument mode for scripts and an
// interactive menu for manual runs.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
	"github.com/kirillkom/doc-annotator/internal/core/ports"
)

const (
	DefaultOutput = "results.json"

	minInteractiveWords = 5
	maxInteractiveWords = 50
)

// Options are the flag values shared by both modes.
type Options struct {
	Profile         domain.Profile
	Output          string
	DefaultMaxWords int
	// SaveDir receives interactive "<stem>_annotation.txt" files; default is the working directory.
	SaveDir string
}

type App struct {
	files   ports.FileAnnotator
	folders ports.FolderProcessor
	caps    domain.Capabilities
	opts    Options
	in      *bufio.Reader
	out     io.Writer
	logger  *slog.Logger
}

func New(
	files ports.FileAnnotator,
	folders ports.FolderProcessor,
	caps domain.Capabilities,
	opts Options,
	in io.Reader,
	out io.Writer,
	logger *slog.Logger,
) *App {
	if opts.Profile == "" {
		opts.Profile = domain.ProfileAnnotation
	}
	if opts.DefaultMaxWords <= 0 {
		opts.DefaultMaxWords = domain.DefaultMaxWords
	}
	if opts.SaveDir == "" {
		opts.SaveDir = "."
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		files:   files,
		folders: folders,
		caps:    caps,
		opts:    opts,
		in:      bufio.NewReader(in),
		out:     out,
		logger:  logger,
	}
}

// Run dispatches on the positional arguments and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	a.printBanner()
	if len(args) == 0 {
		return a.interactive(ctx)
	}

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		a.printf("Путь не найден: %s\n", path)
		return 1
	}

	if info.IsDir() {
		output := a.opts.Output
		if output == "" && len(args) > 1 {
			output = args[1]
		}
		if output == "" {
			output = DefaultOutput
		}
		return a.processFolder(ctx, path, output, a.opts.DefaultMaxWords)
	}

	maxWords := a.opts.DefaultMaxWords
	if len(args) > 1 {
		n, err := strconv.Atoi(strings.TrimSpace(args[1]))
		if err != nil {
			a.printf("Некорректное число слов, использую %d\n", maxWords)
		} else {
			maxWords = n
		}
	}
	if _, ok := a.annotateFile(ctx, path, maxWords); !ok {
		return 1
	}
	return 0
}

func (a *App) printBanner() {
	a.printf("СИСТЕМА ГЕНЕРАЦИИ АННОТАЦИЙ ДЛЯ ДОКУМЕНТОВ\n")
	a.printf("%s\n", strings.Repeat("=", 60))
	if !a.caps.PDF {
		a.printf("Чтение PDF недоступно в этой сборке\n")
	}
	if !a.caps.DOCX {
		a.printf("Чтение DOCX недоступно в этой сборке\n")
	}
	if !a.caps.Antiword && !a.caps.LibreOffice {
		a.printf("Для файлов DOC установите antiword или LibreOffice\n")
	}
}

// annotateFile prints the annotation or its sentinel. The bool reports success.
func (a *App) annotateFile(ctx context.Context, path string, maxWords int) (*domain.FileAnnotation, bool) {
	a.printf("\n%s\n", strings.Repeat("=", 60))
	a.printf("Обработка файла: %s\n", filepath.Base(path))
	a.printf("%s\n", strings.Repeat("=", 60))

	result, err := a.files.AnnotateFile(ctx, path, maxWords, a.opts.Profile)
	if err != nil {
		a.logger.Error("cli_annotate_failed", "file", path, "error", err)
		sentinel := domain.Sentinel(err)
		a.printf("\nАннотация (%d слов):\n   %s\n", domain.WordCount(sentinel), sentinel)
		return nil, false
	}

	a.printf("Прочитано %d символов (%s)\n", len([]rune(result.Extraction.Text)), result.Extraction.Method)
	a.printf("\nАннотация (%d слов):\n   %s\n", result.Annotation.Words, result.Annotation.Text)
	return result, true
}

func (a *App) processFolder(ctx context.Context, dir, output string, maxWords int) int {
	a.printf("Обрабатываю папку: %s\n", dir)
	records, err := a.folders.ProcessFolder(ctx, dir, domain.BatchOptions{
		MaxWords: maxWords,
		Profile:  a.opts.Profile,
		Output:   output,
	})
	for _, rec := range records {
		a.printf("%s: %s (%d слов)\n", rec.Filename, rec.Title, rec.WordCount)
	}
	if err != nil {
		a.logger.Error("cli_batch_failed", "dir", dir, "error", err)
		a.printf("Ошибка обработки папки: %v\n", err)
		return 1
	}
	a.printf("\nОбработано файлов: %d\n", len(records))
	if len(records) > 0 {
		a.printf("Результаты сохранены в: %s\n", output)
	}
	return 0
}

func (a *App) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}
