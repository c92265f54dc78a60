package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
	"github.com/kirillkom/doc-annotator/internal/core/ports"
)

// DefaultPromptPrefix is the instruction the summarization model was tuned with.
const DefaultPromptPrefix = "Заголовок документа:"

var promptPrefixVariants = []string{
	"Заголовок документа:",
	"Заголовок:",
	"Title of document:",
	"Title:",
}

type AnnotateUseCase struct {
	session   ports.ModelSession
	tokenizer ports.Tokenizer
	prefix    string
	logger    *slog.Logger
}

type AnnotateOption func(*AnnotateUseCase)

// WithTokenizer enables token-accurate prompt truncation.
func WithTokenizer(tokenizer ports.Tokenizer) AnnotateOption {
	return func(uc *AnnotateUseCase) {
		uc.tokenizer = tokenizer
	}
}

func WithPromptPrefix(prefix string) AnnotateOption {
	return func(uc *AnnotateUseCase) {
		if strings.TrimSpace(prefix) != "" {
			uc.prefix = strings.TrimSpace(prefix)
		}
	}
}

func WithAnnotateLogger(logger *slog.Logger) AnnotateOption {
	return func(uc *AnnotateUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

func NewAnnotateUseCase(session ports.ModelSession, opts ...AnnotateOption) *AnnotateUseCase {
	uc := &AnnotateUseCase{
		session: session,
		prefix:  DefaultPromptPrefix,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Generate returns an annotation of at most maxWords words. On failure the
// returned string is the user-facing sentinel and err carries the cause.
func (uc *AnnotateUseCase) Generate(ctx context.Context, text string, maxWords int) (string, error) {
	annotation, err := uc.GenerateWithProfile(ctx, domain.ProfileAnnotation, text, maxWords)
	if err != nil {
		if domain.IsKind(err, domain.ErrNoText) {
			return domain.SentinelNoText, err
		}
		return domain.SentinelGenerationError, err
	}
	return annotation.Text, nil
}

func (uc *AnnotateUseCase) GenerateWithProfile(
	ctx context.Context,
	profile domain.Profile,
	text string,
	maxWords int,
) (domain.Annotation, error) {
	if profile == domain.ProfileTitle {
		maxWords = domain.TitleMaxWords
	}
	if maxWords < 1 {
		return domain.Annotation{}, domain.WrapError(domain.ErrInvalidInput, "generate annotation", fmt.Errorf("max_words must be >= 1, got %d", maxWords))
	}
	if strings.TrimSpace(text) == "" {
		return domain.Annotation{Text: domain.SentinelNoText, Profile: profile, MaxWords: maxWords},
			domain.WrapError(domain.ErrNoText, "generate annotation", errors.New("empty input text"))
	}
	if uc.session == nil {
		return domain.Annotation{Text: domain.SentinelGenerationError, Profile: profile, MaxWords: maxWords},
			domain.WrapError(domain.ErrGeneration, "generate annotation", domain.ErrModelNotLoaded)
	}

	params := domain.ParamsFor(profile, maxWords)
	prompt := uc.buildPrompt(text, params)

	raw, err := uc.session.Generate(ctx, prompt, params)
	if err != nil {
		uc.logger.Error("annotation_generation_failed",
			"model", uc.session.Name(),
			"profile", string(profile),
			"max_words", maxWords,
			"error", err,
		)
		return domain.Annotation{Text: domain.SentinelGenerationError, Profile: profile, MaxWords: maxWords},
			domain.WrapError(domain.ErrGeneration, "generate annotation", err)
	}

	var cleaned string
	if profile == domain.ProfileTitle {
		cleaned = CleanTitle(raw, maxWords)
	} else {
		cleaned = CleanAnnotation(raw, maxWords)
	}

	uc.logger.Debug("annotation_generated",
		"model", uc.session.Name(),
		"profile", string(profile),
		"max_words", maxWords,
		"min_length", params.MinLength,
		"max_length", params.MaxLength,
		"length_penalty", params.LengthPenalty,
		"words", domain.WordCount(cleaned),
	)

	return domain.Annotation{
		Text:     cleaned,
		Words:    domain.WordCount(cleaned),
		Profile:  profile,
		MaxWords: maxWords,
	}, nil
}

func (uc *AnnotateUseCase) buildPrompt(text string, params domain.GenerationParams) string {
	prompt := uc.prefix + " " + ContextWindow(text, params.ContextChars)
	if uc.tokenizer == nil || params.MaxInputTokens <= 0 {
		return prompt
	}
	ids := uc.tokenizer.Encode(prompt)
	if len(ids) <= params.MaxInputTokens {
		return prompt
	}
	return uc.tokenizer.Decode(ids[:params.MaxInputTokens])
}

// ContextWindow returns the first limit characters of text.
func ContextWindow(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// CleanAnnotation post-processes raw model output: prefix removal, sentence
// truncation, trailing punctuation, hard word cap.
func CleanAnnotation(raw string, maxWords int) string {
	title := StripPromptPrefix(raw)
	title = truncateSentences(title, maxWords)
	title = strings.TrimRight(title, ". ")
	return strings.TrimSpace(truncateWords(title, maxWords))
}

// CleanTitle keeps only the first sentence of the raw output.
func CleanTitle(raw string, maxWords int) string {
	title := StripPromptPrefix(raw)
	if idx := strings.Index(title, "."); idx >= 0 {
		title = strings.TrimSpace(title[:idx])
	}
	return strings.TrimSpace(truncateWords(title, maxWords))
}

func StripPromptPrefix(raw string) string {
	out := raw
	for _, variant := range promptPrefixVariants {
		out = strings.ReplaceAll(out, variant, "")
	}
	return strings.TrimSpace(out)
}

// truncateSentences keeps the first fragment when it has at least five words,
// otherwise the first two fragments if they fit into maxWords. Text without a
// period, or whose first two fragments exceed maxWords, is returned unchanged.
func truncateSentences(title string, maxWords int) string {
	fragments := strings.Split(title, ".")
	if len(fragments) < 2 {
		return title
	}
	first := strings.TrimSpace(fragments[0])
	if domain.WordCount(first) >= 5 {
		return first
	}
	pair := first + ". " + strings.TrimSpace(fragments[1])
	if domain.WordCount(pair) <= maxWords {
		return pair
	}
	return title
}

func truncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ")
}
