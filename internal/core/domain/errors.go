package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrTemporary          = errors.New("temporary failure")
	ErrFileNotFound       = errors.New("file not found")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrToolUnavailable    = errors.New("extraction tool unavailable")
	ErrCorruptDocument    = errors.New("corrupt document")
	ErrNoTextLayer        = errors.New("no text layer, likely a scanned document")
	ErrNoText             = errors.New("no text found")
	ErrGeneration         = errors.New("generation failed")
	ErrModelNotLoaded     = errors.New("model session not loaded")
	ErrAnnotationNotFound = errors.New("annotation not found")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Sentinel returns the user-facing placeholder for a pipeline error.
func Sentinel(err error) string {
	switch {
	case err == nil:
		return ""
	case IsKind(err, ErrNoText):
		return SentinelNoText
	case IsKind(err, ErrFileNotFound):
		return SentinelFileNotFound
	case IsKind(err, ErrInvalidInput):
		return SentinelInvalidInput
	case IsKind(err, ErrGeneration), IsKind(err, ErrModelNotLoaded):
		return SentinelGenerationError
	default:
		return SentinelExtractionFailed
	}
}
