package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/cloudinary"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/domain"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/id"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/imaging"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/queue"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/storage"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/store"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/transform"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/upload"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrInvalidSubmission = errors.New("invalid submission")

// Remote is the hosted transformation service.
type Remote interface {
	Upload(ctx context.Context, data []byte, publicID string, quality int) (cloudinary.Asset, error)
	TransformURL(asset cloudinary.Asset, layers []transform.Layer, opts transform.OutputOptions) (string, error)
	Fetch(ctx context.Context, url string) (cloudinary.Fetched, error)
}

type OutputStore interface {
	WriteObject(ctx context.Context, objectKey string, data []byte, contentType string) error
}

type Notifier interface {
	EnqueueNotifyEdit(ctx context.Context, payload queue.NotifyEditPayload) (*asynq.TaskInfo, error)
}

type Encoder func(ctx context.Context, data []byte, format string, quality int) (imaging.Output, error)

// TransformFailure is a non-success response from the delivery URL. It is
// reported to the user, not raised.
type TransformFailure struct {
	StatusCode int
	URL        string
}

func (f TransformFailure) Message() string {
	return fmt.Sprintf("Transformation failed (Status Code: %d). Please try different parameters.", f.StatusCode)
}

type Result struct {
	Edit    domain.Edit
	Output  *imaging.Output
	Failure *TransformFailure
}

type Options struct {
	Logger   zerolog.Logger
	Remote   Remote
	TempDir  string
	Edits    store.EditStore
	Outputs  OutputStore
	Notifier Notifier
	Encoder  Encoder
}

type Editor struct {
	logger      zerolog.Logger
	remote      Remote
	tempDir     string
	edits       store.EditStore
	outputs     OutputStore
	notifier    Notifier
	encode      Encoder
	tracer      trace.Tracer
	now         func() time.Time
	newPublicID func() string
}

func New(opts Options) (*Editor, error) {
	if opts.Remote == nil {
		return nil, errors.New("remote service is required")
	}
	if strings.TrimSpace(opts.TempDir) == "" {
		return nil, errors.New("temp directory is required")
	}
	if opts.Edits == nil {
		opts.Edits = store.NewMemoryEditStore()
	}
	if opts.Encoder == nil {
		opts.Encoder = imaging.Reencode
	}

	return &Editor{
		logger:      opts.Logger,
		remote:      opts.Remote,
		tempDir:     opts.TempDir,
		edits:       opts.Edits,
		outputs:     opts.Outputs,
		notifier:    opts.Notifier,
		encode:      opts.Encoder,
		tracer:      otel.Tracer("imgreplace/editor"),
		now:         func() time.Time { return time.Now().UTC() },
		newPublicID: id.PublicID,
	}, nil
}

// Submit runs one submission end to end. A non-success fetch is reported in
// Result.Failure with a nil error; remote and local failures are returned as
// errors. The scratch copy of the upload is removed on every exit path.
func (e *Editor) Submit(ctx context.Context, sub domain.Submission) (Result, error) {
	if err := sub.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}

	asset, err := upload.Create(e.tempDir, sub.Image)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := asset.Release(); err != nil {
			e.logger.Warn().Err(err).Str("path", asset.Path()).Msg("temp asset cleanup failed")
		}
	}()

	requestedAt := e.now()
	edit := domain.Edit{
		ID:          e.newPublicID(),
		Status:      domain.EditStatusCreated,
		Subject:     sub.Subject,
		Replacement: sub.Replacement,
		Style:       sub.Style,
		Detail:      sub.Detail,
		Quality:     sub.Quality,
		Resolution:  sub.Resolution,
		Format:      sub.Format,
		WebhookURL:  strings.TrimSpace(sub.WebhookURL),
		CreatedAt:   requestedAt,
		UpdatedAt:   requestedAt,
	}
	if err := e.edits.Create(ctx, edit); err != nil {
		e.logger.Error().Err(err).Str("edit_id", edit.ID).Msg("edit record create failed")
	}

	ctx, span := e.tracer.Start(ctx, "editor.submit", trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(
		attribute.String("edit.id", edit.ID),
		attribute.String("edit.style", sub.Style),
		attribute.Int("edit.quality", sub.Quality),
		attribute.String("edit.resolution", sub.Resolution),
		attribute.String("edit.format", sub.Format),
	)
	defer span.End()

	e.logger.Info().
		Str("edit_id", edit.ID).
		Str("temp_asset", asset.ID()).
		Str("style", sub.Style).
		Int("quality", sub.Quality).
		Msg("edit started")

	edit.Status = domain.EditStatusProcessing
	e.saveEdit(ctx, edit)

	result, err := e.run(ctx, asset, sub, &edit)
	switch {
	case err != nil:
		edit.Status = domain.EditStatusFailed
		edit.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "edit failed")
		e.logger.Error().Err(err).Str("edit_id", edit.ID).Msg("edit failed")
	case result.Failure != nil:
		edit.Status = domain.EditStatusFailed
		edit.StatusCode = result.Failure.StatusCode
		edit.Error = result.Failure.Message()
		span.SetAttributes(attribute.Int("http.status_code", result.Failure.StatusCode))
		span.SetStatus(codes.Error, "transformation failed")
		e.logger.Warn().
			Str("edit_id", edit.ID).
			Int("status_code", result.Failure.StatusCode).
			Str("transform_url", result.Failure.URL).
			Msg("transformation failed")
	default:
		edit.Status = domain.EditStatusSucceeded
		span.SetStatus(codes.Ok, "edited")
		e.logger.Info().
			Str("edit_id", edit.ID).
			Str("filename", edit.Filename).
			Int("bytes", edit.OutputBytes).
			Msg("edit succeeded")
	}

	e.saveEdit(ctx, edit)
	e.notify(ctx, edit, requestedAt)

	result.Edit = edit
	return result, err
}

func (e *Editor) run(ctx context.Context, asset *upload.Asset, sub domain.Submission, edit *domain.Edit) (Result, error) {
	data, err := asset.Bytes()
	if err != nil {
		return Result{}, err
	}

	remoteAsset, err := e.upload(ctx, data, edit.ID, sub.Quality)
	if err != nil {
		return Result{}, err
	}

	layers, err := transform.BuildLayers(sub.Subject, sub.Replacement, sub.Style, sub.Detail, sub.Quality)
	if err != nil {
		return Result{}, err
	}
	opts, err := transform.BuildOutputOptions(sub.Resolution, sub.Format)
	if err != nil {
		return Result{}, err
	}
	edit.Layers = layers

	transformURL, err := e.remote.TransformURL(remoteAsset, layers, opts)
	if err != nil {
		return Result{}, err
	}
	edit.TransformURL = transformURL

	fetched, err := e.fetch(ctx, transformURL)
	if err != nil {
		return Result{}, err
	}
	if !fetched.OK() {
		return Result{Failure: &TransformFailure{StatusCode: fetched.StatusCode, URL: transformURL}}, nil
	}
	edit.StatusCode = fetched.StatusCode

	out, err := e.encode(ctx, fetched.Body, opts.Format, sub.Quality)
	if err != nil {
		return Result{}, fmt.Errorf("re-encode transformed image: %w", err)
	}

	edit.Filename = fmt.Sprintf("transformed_%s.%s", edit.ID, opts.Extension())
	edit.ContentType = out.ContentType
	edit.OutputBytes = len(out.Data)
	edit.Width = out.Width
	edit.Height = out.Height
	e.storeOutput(ctx, edit, out)

	return Result{Output: &out}, nil
}

func (e *Editor) upload(ctx context.Context, data []byte, publicID string, quality int) (cloudinary.Asset, error) {
	ctx, span := e.tracer.Start(ctx, "cloudinary.upload", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	asset, err := e.remote.Upload(ctx, data, publicID, quality)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		return cloudinary.Asset{}, err
	}
	span.SetAttributes(attribute.Int("asset.width", asset.Width), attribute.Int("asset.height", asset.Height))
	return asset, nil
}

func (e *Editor) fetch(ctx context.Context, url string) (cloudinary.Fetched, error) {
	ctx, span := e.tracer.Start(ctx, "cloudinary.fetch", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	fetched, err := e.remote.Fetch(ctx, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return cloudinary.Fetched{}, err
	}
	span.SetAttributes(attribute.Int("http.status_code", fetched.StatusCode))
	return fetched, nil
}

func (e *Editor) storeOutput(ctx context.Context, edit *domain.Edit, out imaging.Output) {
	if e.outputs == nil {
		return
	}
	key := storage.OutputKey(edit.ID, edit.Filename)
	if err := e.outputs.WriteObject(ctx, key, out.Data, out.ContentType); err != nil {
		e.logger.Error().Err(err).Str("edit_id", edit.ID).Str("object_key", key).Msg("output store failed")
		return
	}
	edit.OutputKey = key
}

func (e *Editor) saveEdit(ctx context.Context, edit domain.Edit) {
	if err := e.edits.Update(ctx, edit); err != nil {
		e.logger.Error().Err(err).Str("edit_id", edit.ID).Str("status", edit.Status).Msg("edit record update failed")
	}
}

func (e *Editor) notify(ctx context.Context, edit domain.Edit, requestedAt time.Time) {
	if e.notifier == nil || edit.WebhookURL == "" {
		return
	}

	payload := queue.NotifyEditPayload{
		EditID:       edit.ID,
		Status:       edit.Status,
		WebhookURL:   edit.WebhookURL,
		TransformURL: edit.TransformURL,
		StatusCode:   edit.StatusCode,
		Filename:     edit.Filename,
		Error:        edit.Error,
		RequestedAt:  requestedAt,
		FinishedAt:   e.now(),
	}
	if edit.OutputKey != "" {
		payload.DownloadPath = DownloadPath(edit.ID)
	}

	if _, err := e.notifier.EnqueueNotifyEdit(ctx, payload); err != nil {
		e.logger.Error().Err(err).Str("edit_id", edit.ID).Msg("notify enqueue failed")
	}
}

func DownloadPath(editID string) string {
	return "/v1/edits/" + editID + "/download"
}
