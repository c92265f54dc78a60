package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileDefaults(t *testing.T) {
	t.Setenv("ANNOTATOR_RETRY_MAX_ATTEMPTS", "")
	t.Setenv("ANNOTATOR_NATS_SUBJECT", "")
	t.Setenv("ANNOTATOR_CONVERTER_TIMEOUT", "")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.RetryMaxAttempts != 1 {
		t.Fatalf("expected no retries by default, got %d", cfg.RetryMaxAttempts)
	}
	if cfg.NATSSubject != "documents.annotate" {
		t.Fatalf("unexpected subject %q", cfg.NATSSubject)
	}
	if cfg.ConverterTimeout != 2*time.Minute {
		t.Fatalf("unexpected converter timeout %v", cfg.ConverterTimeout)
	}
	if cfg.DefaultMaxWords != 35 || cfg.PromptPrefix != "Заголовок документа:" {
		t.Fatalf("unexpected generation defaults %+v", cfg)
	}
	if cfg.PostgresDSN != "" {
		t.Fatalf("postgres must be disabled by default")
	}
}

func TestLoadFileOverlayAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotator.yaml")
	body := "ollama_model: rut5-small\n" +
		"converter_timeout: 45s\n" +
		"api_rate_limit_rps: 20\n" +
		"disable_docx: true\n" +
		"nats_subject: from.file\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("ANNOTATOR_NATS_SUBJECT", "from.env")
	t.Setenv("ANNOTATOR_OLLAMA_MODEL", "")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.OllamaModel != "rut5-small" {
		t.Fatalf("expected file value, got %q", cfg.OllamaModel)
	}
	if cfg.ConverterTimeout != 45*time.Second {
		t.Fatalf("expected 45s, got %v", cfg.ConverterTimeout)
	}
	if cfg.APIRateLimitRPS != 20 || !cfg.DisableDOCX {
		t.Fatalf("unexpected overlay result %+v", cfg)
	}
	if cfg.NATSSubject != "from.env" {
		t.Fatalf("env must win over file, got %q", cfg.NATSSubject)
	}
	if cfg.APIPort != "8080" {
		t.Fatalf("unset keys keep defaults, got %q", cfg.APIPort)
	}
}

func TestLoadFileInvalidValuesFallBack(t *testing.T) {
	t.Setenv("ANNOTATOR_DEFAULT_MAX_WORDS", "many")
	t.Setenv("ANNOTATOR_BREAKER_FAILURE_RATIO", "0.9")
	t.Setenv("ANNOTATOR_OLLAMA_TIMEOUT", "soon")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.DefaultMaxWords != 35 {
		t.Fatalf("invalid int must fall back, got %d", cfg.DefaultMaxWords)
	}
	if cfg.BreakerFailureRatio != 0.9 {
		t.Fatalf("expected ratio override, got %v", cfg.BreakerFailureRatio)
	}
	if cfg.OllamaTimeout != 120*time.Second {
		t.Fatalf("invalid duration must fall back, got %v", cfg.OllamaTimeout)
	}
}

func TestLoadFileMissingOrBroken(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("api_port: [1, 2"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
