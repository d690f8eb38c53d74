package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/domain"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/editor"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultMaxUploadBytes = 20 << 20

type Server struct {
	logger         zerolog.Logger
	editor         submitter
	edits          store.EditStore
	outputs        outputStore
	remote         assetDestroyer
	rateLimiter    RateLimiter
	metrics        *metrics
	tracer         trace.Tracer
	maxUploadBytes int64
	router         chi.Router
}

type submitter interface {
	Submit(ctx context.Context, sub domain.Submission) (editor.Result, error)
}

type outputStore interface {
	ReadObject(ctx context.Context, objectKey string) ([]byte, error)
	RemoveObject(ctx context.Context, objectKey string) error
}

type assetDestroyer interface {
	Destroy(ctx context.Context, publicID string) error
}

type Options struct {
	Logger         zerolog.Logger
	Editor         submitter
	Edits          store.EditStore
	Outputs        outputStore
	Remote         assetDestroyer
	RateLimiter    RateLimiter
	MaxUploadBytes int64
}

func NewServer(opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.Edits == nil {
		opts.Edits = store.NewMemoryEditStore()
	}
	if opts.Outputs == nil {
		opts.Outputs = unavailableOutputStore{}
	}

	s := &Server{
		logger:         opts.Logger,
		editor:         opts.Editor,
		edits:          opts.Edits,
		outputs:        opts.Outputs,
		remote:         opts.Remote,
		rateLimiter:    opts.RateLimiter,
		metrics:        newMetrics(),
		tracer:         otel.Tracer("imgreplace/api"),
		maxUploadBytes: opts.MaxUploadBytes,
		router:         chi.NewRouter(),
	}
	s.routes()
	return s
}

type unavailableOutputStore struct{}

func (unavailableOutputStore) ReadObject(_ context.Context, _ string) ([]byte, error) {
	return nil, errors.New("output storage is unavailable")
}

func (unavailableOutputStore) RemoveObject(_ context.Context, _ string) error {
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.withTracing,
		s.withAccessLog,
		s.metrics.withHTTPMetrics,
		middleware.Recoverer,
	)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", s.metrics.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/styles", s.handleStyles)
		r.Get("/options", s.handleOptions)

		r.Route("/edits", func(r chi.Router) {
			r.With(s.withRateLimit).Post("/", s.handleCreateEdit)
			r.Get("/{id}", s.handleGetEdit)
			r.Get("/{id}/download", s.handleDownload)
			r.Delete("/{id}", s.handleDeleteEdit)
		})
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
