package domain

import (
	"math"
	"strings"
	"time"
)

const (
	SentinelNoText           = "no text found"
	SentinelGenerationError  = "generation error"
	SentinelExtractionFailed = "could not extract text from file"
	SentinelFileNotFound     = "file not found"
	SentinelInvalidInput     = "invalid max_words"
)

const (
	DefaultMaxWords     = 35
	InteractiveMinWords = 5
	InteractiveMaxWords = 50
	TitleMaxWords       = 25
)

type Profile string

const (
	// ProfileAnnotation derives generation parameters from the word ceiling.
	ProfileAnnotation Profile = "annotation"
	// ProfileTitle is the fixed title-only pipeline: short context, first sentence only.
	ProfileTitle Profile = "title"
)

func ParseProfile(raw string) (Profile, bool) {
	switch Profile(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ProfileAnnotation:
		return ProfileAnnotation, true
	case ProfileTitle:
		return ProfileTitle, true
	default:
		return "", false
	}
}

type GenerationParams struct {
	MaxLength         int     `json:"max_length"`
	MinLength         int     `json:"min_length"`
	LengthPenalty     float64 `json:"length_penalty"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	NumBeams          int     `json:"num_beams"`
	NoRepeatNgramSize int     `json:"no_repeat_ngram_size"`
	EarlyStopping     bool    `json:"early_stopping"`

	// ContextChars is how many leading characters of the extracted text feed the prompt.
	ContextChars int `json:"context_chars"`
	// MaxInputTokens caps the tokenized prompt.
	MaxInputTokens int `json:"max_input_tokens"`
}

// ParamsForMaxWords selects the tier for an annotation of at most maxWords words.
func ParamsForMaxWords(maxWords int) GenerationParams {
	params := GenerationParams{
		MinLength:         max(15, int(math.Round(0.3*float64(maxWords)))),
		RepetitionPenalty: 1.2,
		NumBeams:          3,
		NoRepeatNgramSize: 2,
		EarlyStopping:     true,
		ContextChars:      min(500+10*maxWords, 1000),
		MaxInputTokens:    512,
	}

	switch {
	case maxWords <= 15:
		params.MaxLength, params.LengthPenalty = 40, 1.2
	case maxWords <= 25:
		params.MaxLength, params.LengthPenalty = 55, 1.0
	case maxWords <= 35:
		params.MaxLength, params.LengthPenalty = 70, 0.9
	default:
		params.MaxLength, params.LengthPenalty = 85, 0.8
	}
	return params
}

// TitleParams are the fixed parameters of the title-only pipeline.
func TitleParams() GenerationParams {
	return GenerationParams{
		MaxLength:         50,
		MinLength:         15,
		LengthPenalty:     1.0,
		RepetitionPenalty: 1.3,
		NumBeams:          3,
		NoRepeatNgramSize: 2,
		EarlyStopping:     true,
		ContextChars:      600,
		MaxInputTokens:    400,
	}
}

func ParamsFor(profile Profile, maxWords int) GenerationParams {
	if profile == ProfileTitle {
		return TitleParams()
	}
	return ParamsForMaxWords(maxWords)
}

type Annotation struct {
	Text     string  `json:"text"`
	Words    int     `json:"words"`
	Profile  Profile `json:"profile"`
	MaxWords int     `json:"max_words"`
}

// FileAnnotation is the outcome of running one file through extraction and generation.
type FileAnnotation struct {
	Document   Document   `json:"document"`
	Extraction Extraction `json:"extraction"`
	Annotation Annotation `json:"annotation"`
}

// BatchRecord is one successfully processed file of a folder run.
type BatchRecord struct {
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	Path        string    `json:"path"`
	ProcessedAt time.Time `json:"processed_at"`
	WordCount   int       `json:"word_count"`
}

// WordCount counts whitespace-delimited tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// BatchOptions configures a folder run. Output is the JSON results path; empty
// disables the file.
type BatchOptions struct {
	MaxWords int
	Profile  Profile
	Output   string
}

// AnnotationJob is the queue payload asking a worker to annotate a file.
type AnnotationJob struct {
	Path     string  `json:"path"`
	MaxWords int     `json:"max_words,omitempty"`
	Profile  Profile `json:"profile,omitempty"`
}
