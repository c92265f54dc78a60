package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kirillkom/doc-annotator/internal/infrastructure/export"
)

func (a *App) interactive(ctx context.Context) int {
	a.printf("\nВыберите режим:\n")
	a.printf("1. Обработать один файл\n")
	a.printf("2. Обработать папку с файлами\n")
	a.printf("3. Выход\n")

	switch a.prompt("\nВведите номер (1-3): ") {
	case "1":
		return a.interactiveFile(ctx)
	case "2":
		return a.interactiveFolder(ctx)
	default:
		a.printf("Выход\n")
		return 0
	}
}

func (a *App) interactiveFile(ctx context.Context) int {
	path := a.prompt("Введите путь к файлу (PDF, DOCX, DOC, TXT): ")
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		a.printf("Файл не найден: %s\n", path)
		return 1
	}

	maxWords := a.promptMaxWords()
	result, ok := a.annotateFile(ctx, path, maxWords)
	if !ok {
		return 1
	}

	if strings.ToLower(a.prompt("\nСохранить результат в файл? (y/n): ")) != "y" {
		return 0
	}
	output := export.AnnotationFileName(a.opts.SaveDir, result.Document)
	if err := export.WriteAnnotationFile(output, result.Document.Filename, result.Annotation.Text); err != nil {
		a.logger.Error("cli_save_failed", "output", output, "error", err)
		a.printf("Не удалось сохранить результат: %v\n", err)
		return 1
	}
	a.printf("Результат сохранён в: %s\n", output)
	return 0
}

func (a *App) interactiveFolder(ctx context.Context) int {
	dir := a.prompt("Введите путь к папке: ")
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		a.printf("Папка не найдена: %s\n", dir)
		return 1
	}

	maxWords := a.promptMaxWords()
	output := a.prompt("Имя файла для результатов (по умолчанию " + DefaultOutput + "): ")
	if output == "" {
		output = DefaultOutput
	}
	return a.processFolder(ctx, dir, filepath.Clean(output), maxWords)
}

// promptMaxWords reads the word ceiling, clamped to [5, 50].
func (a *App) promptMaxWords() int {
	fallback := min(max(a.opts.DefaultMaxWords, minInteractiveWords), maxInteractiveWords)
	raw := a.prompt("Максимальное количество слов [" + strconv.Itoa(fallback) + "]: ")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		a.printf("Некорректное число, использую %d\n", fallback)
		return fallback
	case n < minInteractiveWords:
		a.printf("Минимум %d слов, использую %d\n", minInteractiveWords, minInteractiveWords)
		return minInteractiveWords
	case n > maxInteractiveWords:
		a.printf("Максимум %d слов, использую %d\n", maxInteractiveWords, maxInteractiveWords)
		return maxInteractiveWords
	default:
		return n
	}
}

// prompt returns the trimmed answer; EOF reads as an empty answer.
func (a *App) prompt(question string) string {
	a.printf("%s", question)
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		a.logger.Warn("cli_read_failed", "error", err)
	}
	return strings.TrimSpace(line)
}
