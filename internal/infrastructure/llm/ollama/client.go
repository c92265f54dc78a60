// Package ollama runs the summarization model behind a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
	"github.com/kirillkom/doc-annotator/internal/infrastructure/resilience"
)

type Config struct {
	BaseURL string
	Model   string
	// KeepAlive is how long the server keeps the model resident between calls.
	KeepAlive string
	Timeout   time.Duration
	Seed      int
}

// Session is a handle on one model loaded in Ollama. It is created once per
// process and shared by every generation call.
type Session struct {
	baseURL    string
	model      string
	keepAlive  string
	seed       int
	httpClient *http.Client
	executor   *resilience.Executor
	logger     *slog.Logger
}

func New(cfg Config, executor *resilience.Executor, logger *slog.Logger) *Session {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	keepAlive := strings.TrimSpace(cfg.KeepAlive)
	if keepAlive == "" {
		keepAlive = "30m"
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		keepAlive:  keepAlive,
		seed:       cfg.Seed,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
		logger:     logger,
	}
}

func (s *Session) Name() string {
	return s.model
}

type generateRequest struct {
	Model     string         `json:"model"`
	Prompt    string         `json:"prompt"`
	Stream    bool           `json:"stream"`
	Raw       bool           `json:"raw,omitempty"`
	KeepAlive any            `json:"keep_alive,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Load asks the server to bring the model into memory. An empty prompt loads
// the model without generating.
func (s *Session) Load(ctx context.Context) error {
	req := generateRequest{
		Model:     s.model,
		KeepAlive: s.keepAlive,
	}
	var resp generateResponse
	if err := s.postJSON(ctx, "/api/generate", req, &resp, "load"); err != nil {
		return domain.WrapError(domain.ErrModelNotLoaded, "load model "+s.model, wrapTemporaryIfNeeded("load", err))
	}
	s.logger.Info("model_loaded", "model", s.model, "url", s.baseURL, "keep_alive", s.keepAlive)
	return nil
}

// Close unloads the model. keep_alive=0 tells the server to evict it now.
func (s *Session) Close(ctx context.Context) error {
	req := generateRequest{
		Model:     s.model,
		KeepAlive: 0,
	}
	var resp generateResponse
	if err := s.postJSON(ctx, "/api/generate", req, &resp, "unload"); err != nil {
		return fmt.Errorf("unload model %s: %w", s.model, err)
	}
	s.logger.Info("model_unloaded", "model", s.model)
	return nil
}

func (s *Session) Generate(ctx context.Context, prompt string, params domain.GenerationParams) (string, error) {
	req := generateRequest{
		Model:     s.model,
		Prompt:    prompt,
		Raw:       true,
		KeepAlive: s.keepAlive,
		Options:   s.options(params),
	}

	started := time.Now()
	out, err := resilience.Call(ctx, s.executor, "ollama.generate", func(ctx context.Context) (string, error) {
		var resp generateResponse
		if err := s.postJSON(ctx, "/api/generate", req, &resp, "generate"); err != nil {
			return "", err
		}
		return strings.TrimSpace(resp.Response), nil
	}, classifyOllamaError)
	if err != nil {
		return "", wrapTemporaryIfNeeded("ollama generate", err)
	}

	s.logger.Debug("model_generate_done",
		"model", s.model,
		"duration_ms", time.Since(started).Milliseconds(),
		"chars", len([]rune(out)),
	)
	return out, nil
}

// options maps generation params onto Ollama runtime options. Beam search,
// length penalty and min length have no Ollama equivalent; decoding is greedy
// and seeded.
func (s *Session) options(params domain.GenerationParams) map[string]any {
	opts := map[string]any{
		"temperature": 0,
		"seed":        s.seed,
	}
	if params.MaxLength > 0 {
		opts["num_predict"] = params.MaxLength
	}
	if params.RepetitionPenalty > 0 {
		opts["repeat_penalty"] = params.RepetitionPenalty
	}
	if params.NoRepeatNgramSize > 0 {
		opts["repeat_last_n"] = params.NoRepeatNgramSize * 32
	}
	if params.MaxInputTokens > 0 {
		opts["num_ctx"] = params.MaxInputTokens + params.MaxLength
	}
	return opts
}
