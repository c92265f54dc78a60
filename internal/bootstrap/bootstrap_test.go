package bootstrap

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/doc-annotator/internal/config"
	"github.com/kirillkom/doc-annotator/internal/core/domain"
)

func TestNewLoadsModelOnceAndAnnotates(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"response":"Протокол собрания акционеров","done":true}`))
	}))
	defer server.Close()

	cfg := config.Defaults()
	cfg.OllamaURL = server.URL
	cfg.ModelDir = t.TempDir()
	cfg.StoragePath = filepath.Join(t.TempDir(), "uploads")

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	app, err := New(context.Background(), cfg, Options{Service: "annotator-test", Logger: logger, Storage: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if calls.Load() != 1 {
		t.Fatalf("expected a single load request, got %d", calls.Load())
	}
	if n := strings.Count(logs.String(), "msg=model_loaded"); n != 1 {
		t.Fatalf("expected model_loaded to be logged once, got %d", n)
	}
	if app.Repo != nil {
		t.Fatalf("repository must stay disabled without a DSN")
	}
	if app.Storage == nil {
		t.Fatalf("expected upload storage")
	}

	path := filepath.Join(t.TempDir(), "minutes.txt")
	if err := os.WriteFile(path, []byte("Протокол общего собрания акционеров"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	result, err := app.PipelineUC.AnnotateFile(context.Background(), path, 10, domain.ProfileAnnotation)
	if err != nil {
		t.Fatalf("AnnotateFile() error = %v", err)
	}
	if result.Annotation.Text == "" || calls.Load() != 2 {
		t.Fatalf("unexpected result %+v after %d calls", result.Annotation, calls.Load())
	}
}

func TestNewFailsWhenModelMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	cfg := config.Defaults()
	cfg.OllamaURL = server.URL
	cfg.ModelDir = t.TempDir()

	_, err := New(context.Background(), cfg, Options{Service: "annotator-test"})
	if err == nil {
		t.Fatalf("expected startup error")
	}
	if !IsStartupModelError(err) {
		t.Fatalf("expected model load error, got %v", err)
	}
}

func TestResilienceConfigFromSettings(t *testing.T) {
	cfg := config.Defaults()
	cfg.RetryMaxAttempts = 3
	cfg.BreakerMinRequests = 10
	cfg.BreakerOpenTimeout = time.Minute

	got := resilienceConfig(cfg)
	if got.RetryMaxAttempts != 3 || got.BreakerMinRequests != 10 || got.BreakerOpenTimeout != time.Minute {
		t.Fatalf("unexpected config %+v", got)
	}
	if got.RetryInitialBackoff != 200*time.Millisecond {
		t.Fatalf("backoff defaults must be kept, got %v", got.RetryInitialBackoff)
	}
}
