package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/config"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/queue"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/webhook"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Server struct {
	logger        zerolog.Logger
	server        *asynq.Server
	sem           chan struct{}
	webhookClient webhookSender
	metrics       *metrics
	tracer        trace.Tracer
}

type webhookSender interface {
	Send(ctx context.Context, endpoint, event string, payload any) error
}

// notification is the body delivered to the caller's webhook.
type notification struct {
	Event        string    `json:"event"`
	EditID       string    `json:"edit_id"`
	Status       string    `json:"status"`
	TransformURL string    `json:"transform_url,omitempty"`
	StatusCode   int       `json:"status_code,omitempty"`
	DownloadPath string    `json:"download_path,omitempty"`
	Filename     string    `json:"filename,omitempty"`
	Error        string    `json:"error,omitempty"`
	RequestedAt  time.Time `json:"requested_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

func NewServer(
	logger zerolog.Logger,
	queueCfg config.QueueConfig,
	workerCfg config.WorkerConfig,
	webhookClient *webhook.Client,
) (*Server, error) {
	if webhookClient == nil {
		return nil, errors.New("webhook client is required")
	}

	s := newServer(logger, webhookClient, workerCfg.MaxActiveTasks)
	s.server = asynq.NewServer(
		queueCfg.RedisClientOpt(),
		asynq.Config{
			Concurrency: max(1, workerCfg.Concurrency),
			Queues: map[string]int{
				queueCfg.Name: 1,
			},
			LogLevel: asynq.InfoLevel,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logger.Warn().
					Err(err).
					Str("task_type", task.Type()).
					Int("retry", retried).
					Int("max_retry", maxRetry).
					Msg("task failed")
			}),
		},
	)
	return s, nil
}

func newServer(logger zerolog.Logger, sender webhookSender, maxActive int) *Server {
	return &Server{
		logger:        logger,
		sem:           make(chan struct{}, max(1, maxActive)),
		webhookClient: sender,
		metrics:       newMetrics(),
		tracer:        otel.Tracer("imgreplace/worker"),
	}
}

func (s *Server) Run() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeNotifyEdit, s.handleNotifyEdit)
	return s.server.Run(mux)
}

func (s *Server) MetricsHandler() http.Handler {
	return s.metrics.Handler()
}

func (s *Server) handleNotifyEdit(ctx context.Context, task *asynq.Task) error {
	startedAt := time.Now()
	outcome := "failed"

	payload, err := queue.ParseNotifyEditPayload(task)
	if err != nil {
		s.metrics.deliveriesTotal.WithLabelValues("unknown", "malformed").Inc()
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}
	event := webhook.EventFor(payload.Status)

	ctx, span := s.tracer.Start(ctx, "worker.notify_edit", trace.WithSpanKind(trace.SpanKindConsumer))
	span.SetAttributes(
		attribute.String("edit.id", payload.EditID),
		attribute.String("edit.status", payload.Status),
		attribute.String("webhook.event", event),
	)
	defer span.End()
	defer func() {
		s.metrics.deliveryDuration.WithLabelValues(event, outcome).Observe(time.Since(startedAt).Seconds())
		s.metrics.deliveriesTotal.WithLabelValues(event, outcome).Inc()
	}()

	s.sem <- struct{}{}
	s.metrics.activeTasks.Inc()
	defer func() {
		<-s.sem
		s.metrics.activeTasks.Dec()
	}()

	s.logger.Info().
		Str("edit_id", payload.EditID).
		Str("event", event).
		Msg("delivering webhook")

	body := notification{
		Event:        event,
		EditID:       payload.EditID,
		Status:       payload.Status,
		TransformURL: payload.TransformURL,
		StatusCode:   payload.StatusCode,
		DownloadPath: payload.DownloadPath,
		Filename:     payload.Filename,
		Error:        payload.Error,
		RequestedAt:  payload.RequestedAt,
		FinishedAt:   payload.FinishedAt,
	}
	if err := s.webhookClient.Send(ctx, payload.WebhookURL, event, body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook delivery failed")
		s.logger.Error().Err(err).Str("edit_id", payload.EditID).Str("event", event).Msg("webhook delivery failed")
		if errors.Is(err, webhook.ErrPermanent) {
			outcome = "rejected"
			return fmt.Errorf("dispatch webhook: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("dispatch webhook: %w", err)
	}

	outcome = "delivered"
	span.SetStatus(codes.Ok, "delivered")
	return nil
}
