package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/doc-annotator/internal/config"
	"github.com/kirillkom/doc-annotator/internal/core/domain"
	"github.com/kirillkom/doc-annotator/internal/core/ports"
	"github.com/kirillkom/doc-annotator/internal/observability/metrics"
)

type Router struct {
	cfg     config.Config
	files   ports.FileAnnotator
	storage ports.ObjectStorage
	repo    ports.AnnotationRepository
	caps    domain.Capabilities
	logger  *slog.Logger

	httpMetrics    *metrics.HTTPServerMetrics
	metricsHandler http.Handler
	openAPI        *openAPIDocument

	limiter *rate.Limiter
}

type RouterOption func(*Router)

func WithLogger(logger *slog.Logger) RouterOption {
	return func(rt *Router) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

func WithCapabilities(caps domain.Capabilities) RouterOption {
	return func(rt *Router) {
		rt.caps = caps
	}
}

// WithMetrics instruments requests and serves the registry on /metrics.
func WithMetrics(registry *metrics.Registry) RouterOption {
	return func(rt *Router) {
		if registry == nil {
			return
		}
		rt.httpMetrics = metrics.NewHTTPServerMetrics(registry)
		rt.metricsHandler = registry.Handler()
	}
}

// NewRouter wires the annotation API. repo may be nil when persistence is off.
func NewRouter(
	cfg config.Config,
	files ports.FileAnnotator,
	storage ports.ObjectStorage,
	repo ports.AnnotationRepository,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:     cfg,
		files:   files,
		storage: storage,
		repo:    repo,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}

	if cfg.APIRateLimitRPS > 0 {
		burst := max(cfg.APIRateLimitBurst, 1)
		rt.limiter = rate.NewLimiter(rate.Limit(cfg.APIRateLimitRPS), burst)
	}
	if doc, err := loadOpenAPI(); err != nil {
		rt.logger.Error("openapi_load_failed", "error", err)
	} else {
		rt.openAPI = doc
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /v1/formats", rt.listFormats)
	mux.HandleFunc("GET /v1/openapi.json", rt.serveOpenAPI)
	mux.Handle("POST /v1/annotations", rt.trafficControl(http.HandlerFunc(rt.createAnnotation)))
	mux.HandleFunc("GET /v1/annotations", rt.listAnnotations)
	mux.HandleFunc("GET /v1/annotations/{filename}", rt.getLatestAnnotation)
	if rt.metricsHandler != nil {
		mux.Handle("GET /metrics", rt.metricsHandler)
	}

	var handler http.Handler = mux
	if rt.httpMetrics != nil {
		handler = rt.httpMetrics.Middleware(handler)
	}
	handler = recoverMiddleware(rt.logger, handler)
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

// trafficControl applies the rate limit and the in-flight cap to endpoints
// that reach the model.
func (rt *Router) trafficControl(next http.Handler) http.Handler {
	handler := next
	if rt.cfg.APIMaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, 2*time.Second)
	}
	if rt.limiter != nil {
		handler = rateLimitMiddleware(handler, rt.limiter)
	}
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) listFormats(w http.ResponseWriter, _ *http.Request) {
	extensions := make([]string, 0, len(domain.SupportedExtensions))
	for _, ext := range domain.SupportedExtensions {
		if rt.caps.Supports(domain.DetectFormat("x" + ext)) {
			extensions = append(extensions, ext)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"extensions":   extensions,
		"capabilities": rt.caps,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
