package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const configFileEnv = "ANNOTATOR_CONFIG"

type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ModelDir        string        `yaml:"model_dir"`
	OllamaURL       string        `yaml:"ollama_url"`
	OllamaModel     string        `yaml:"ollama_model"`
	OllamaKeepAlive string        `yaml:"ollama_keep_alive"`
	OllamaTimeout   time.Duration `yaml:"ollama_timeout"`
	OllamaSeed      int           `yaml:"ollama_seed"`
	PromptPrefix    string        `yaml:"prompt_prefix"`
	DefaultMaxWords int           `yaml:"default_max_words"`

	ConverterTimeout time.Duration `yaml:"converter_timeout"`
	AntiwordBin      string        `yaml:"antiword_bin"`
	LibreOfficeBin   string        `yaml:"libreoffice_bin"`
	DisablePDF       bool          `yaml:"disable_pdf"`
	DisableDOCX      bool          `yaml:"disable_docx"`

	RetryMaxAttempts    int           `yaml:"retry_max_attempts"`
	BreakerEnabled      bool          `yaml:"breaker_enabled"`
	BreakerMinRequests  int           `yaml:"breaker_min_requests"`
	BreakerFailureRatio float64       `yaml:"breaker_failure_ratio"`
	BreakerOpenTimeout  time.Duration `yaml:"breaker_open_timeout"`

	APIPort           string `yaml:"api_port"`
	APIMaxUploadMB    int    `yaml:"api_max_upload_mb"`
	APIRateLimitRPS   int    `yaml:"api_rate_limit_rps"`
	APIRateLimitBurst int    `yaml:"api_rate_limit_burst"`
	APIMaxInFlight    int    `yaml:"api_max_in_flight"`
	APIMaxConnections int    `yaml:"api_max_connections"`

	PostgresDSN string `yaml:"postgres_dsn"`

	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`

	StoragePath       string `yaml:"storage_path"`
	WorkerMetricsPort string `yaml:"worker_metrics_port"`
}

func Defaults() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "json",

		ModelDir:        "./models/rut5_base_sum_gazeta",
		OllamaURL:       "http://localhost:11434",
		OllamaModel:     "rut5-base-sum-gazeta",
		OllamaKeepAlive: "30m",
		OllamaTimeout:   120 * time.Second,
		OllamaSeed:      42,
		PromptPrefix:    "Заголовок документа:",
		DefaultMaxWords: 35,

		ConverterTimeout: 2 * time.Minute,

		RetryMaxAttempts:    1,
		BreakerEnabled:      true,
		BreakerMinRequests:  5,
		BreakerFailureRatio: 0.6,
		BreakerOpenTimeout:  30 * time.Second,

		APIPort:           "8080",
		APIMaxUploadMB:    50,
		APIRateLimitRPS:   5,
		APIRateLimitBurst: 10,
		APIMaxInFlight:    4,
		APIMaxConnections: 64,

		NATSURL:     "nats://localhost:4222",
		NATSSubject: "documents.annotate",

		StoragePath:       "./data/uploads",
		WorkerMetricsPort: "9090",
	}
}

// Load reads the optional YAML file named by ANNOTATOR_CONFIG and then applies
// environment overrides.
func Load() (Config, error) {
	return LoadFile(os.Getenv(configFileEnv))
}

// LoadFile starts from Defaults, overlays the YAML file at path (if any) and
// lets ANNOTATOR_* environment variables win over both.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	return Config{
		LogLevel:  mustEnv("ANNOTATOR_LOG_LEVEL", cfg.LogLevel),
		LogFormat: mustEnv("ANNOTATOR_LOG_FORMAT", cfg.LogFormat),

		ModelDir:        mustEnv("ANNOTATOR_MODEL_DIR", cfg.ModelDir),
		OllamaURL:       mustEnv("ANNOTATOR_OLLAMA_URL", cfg.OllamaURL),
		OllamaModel:     mustEnv("ANNOTATOR_OLLAMA_MODEL", cfg.OllamaModel),
		OllamaKeepAlive: mustEnv("ANNOTATOR_OLLAMA_KEEP_ALIVE", cfg.OllamaKeepAlive),
		OllamaTimeout:   mustEnvDuration("ANNOTATOR_OLLAMA_TIMEOUT", cfg.OllamaTimeout),
		OllamaSeed:      mustEnvInt("ANNOTATOR_OLLAMA_SEED", cfg.OllamaSeed),
		PromptPrefix:    mustEnv("ANNOTATOR_PROMPT_PREFIX", cfg.PromptPrefix),
		DefaultMaxWords: mustEnvInt("ANNOTATOR_DEFAULT_MAX_WORDS", cfg.DefaultMaxWords),

		ConverterTimeout: mustEnvDuration("ANNOTATOR_CONVERTER_TIMEOUT", cfg.ConverterTimeout),
		AntiwordBin:      mustEnv("ANNOTATOR_ANTIWORD_BIN", cfg.AntiwordBin),
		LibreOfficeBin:   mustEnv("ANNOTATOR_LIBREOFFICE_BIN", cfg.LibreOfficeBin),
		DisablePDF:       mustEnvBool("ANNOTATOR_DISABLE_PDF", cfg.DisablePDF),
		DisableDOCX:      mustEnvBool("ANNOTATOR_DISABLE_DOCX", cfg.DisableDOCX),

		RetryMaxAttempts:    mustEnvInt("ANNOTATOR_RETRY_MAX_ATTEMPTS", cfg.RetryMaxAttempts),
		BreakerEnabled:      mustEnvBool("ANNOTATOR_BREAKER_ENABLED", cfg.BreakerEnabled),
		BreakerMinRequests:  mustEnvInt("ANNOTATOR_BREAKER_MIN_REQUESTS", cfg.BreakerMinRequests),
		BreakerFailureRatio: mustEnvFloat("ANNOTATOR_BREAKER_FAILURE_RATIO", cfg.BreakerFailureRatio),
		BreakerOpenTimeout:  mustEnvDuration("ANNOTATOR_BREAKER_OPEN_TIMEOUT", cfg.BreakerOpenTimeout),

		APIPort:           mustEnv("ANNOTATOR_API_PORT", cfg.APIPort),
		APIMaxUploadMB:    mustEnvInt("ANNOTATOR_API_MAX_UPLOAD_MB", cfg.APIMaxUploadMB),
		APIRateLimitRPS:   mustEnvInt("ANNOTATOR_API_RATE_LIMIT_RPS", cfg.APIRateLimitRPS),
		APIRateLimitBurst: mustEnvInt("ANNOTATOR_API_RATE_LIMIT_BURST", cfg.APIRateLimitBurst),
		APIMaxInFlight:    mustEnvInt("ANNOTATOR_API_MAX_IN_FLIGHT", cfg.APIMaxInFlight),
		APIMaxConnections: mustEnvInt("ANNOTATOR_API_MAX_CONNECTIONS", cfg.APIMaxConnections),

		PostgresDSN: mustEnv("ANNOTATOR_POSTGRES_DSN", cfg.PostgresDSN),

		NATSURL:     mustEnv("ANNOTATOR_NATS_URL", cfg.NATSURL),
		NATSSubject: mustEnv("ANNOTATOR_NATS_SUBJECT", cfg.NATSSubject),

		StoragePath:       mustEnv("ANNOTATOR_STORAGE_PATH", cfg.StoragePath),
		WorkerMetricsPort: mustEnv("ANNOTATOR_WORKER_METRICS_PORT", cfg.WorkerMetricsPort),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
