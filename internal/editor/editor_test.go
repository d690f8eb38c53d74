package editor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/cloudinary"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/domain"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/imaging"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/queue"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/store"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/transform"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

type fakeRemote struct {
	uploadErr  error
	fetchErr   error
	fetchPanic bool
	status     int
	body       []byte

	mu        sync.Mutex
	quality   int
	publicID  string
	layers    []transform.Layer
	opts      transform.OutputOptions
	sawUpload []byte
}

func (f *fakeRemote) Upload(_ context.Context, data []byte, publicID string, quality int) (cloudinary.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sawUpload = append([]byte(nil), data...)
	f.publicID = publicID
	f.quality = quality
	if f.uploadErr != nil {
		return cloudinary.Asset{}, f.uploadErr
	}
	return cloudinary.Asset{PublicID: publicID, Width: 8, Height: 8}, nil
}

func (f *fakeRemote) TransformURL(asset cloudinary.Asset, layers []transform.Layer, opts transform.OutputOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.layers = layers
	f.opts = opts
	return "https://res.example/demo/image/upload/" + transform.Chain(layers) + "/" + asset.PublicID, nil
}

func (f *fakeRemote) Fetch(_ context.Context, _ string) (cloudinary.Fetched, error) {
	if f.fetchPanic {
		panic("fetch exploded")
	}
	if f.fetchErr != nil {
		return cloudinary.Fetched{}, f.fetchErr
	}
	status := f.status
	if status == 0 {
		status = 200
	}
	fetched := cloudinary.Fetched{StatusCode: status, ContentType: "image/png"}
	if status >= 200 && status < 300 {
		fetched.Body = f.body
	}
	return fetched, nil
}

type fakeOutputs struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeOutputs) WriteObject(_ context.Context, objectKey string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
		f.types = map[string]string{}
	}
	f.objects[objectKey] = data
	f.types[objectKey] = contentType
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	payloads []queue.NotifyEditPayload
}

func (f *fakeNotifier) EnqueueNotifyEdit(_ context.Context, payload queue.NotifyEditPayload) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return &asynq.TaskInfo{ID: "notify:" + payload.EditID, Queue: "default"}, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 20), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestEditor(t *testing.T, remote Remote, opts Options) (*Editor, string) {
	t.Helper()
	dir := t.TempDir()
	opts.Logger = zerolog.New(io.Discard)
	opts.Remote = remote
	opts.TempDir = dir
	e, err := New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	e.newPublicID = func() string { return "edit_test" }
	return e, dir
}

func validSubmission(image []byte) domain.Submission {
	return domain.Submission{
		Image:       image,
		Filename:    "photo.png",
		Subject:     domain.DefaultSubject,
		Replacement: domain.DefaultReplacement,
		Style:       transform.DefaultStyle,
		Quality:     transform.DefaultQuality,
		Resolution:  transform.Auto,
		Format:      transform.Auto,
	}
}

func assertTempDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected temp dir to be empty, found %d entries", len(entries))
	}
}

func TestSubmitSuccessDefaultsToJPEG(t *testing.T) {
	remote := &fakeRemote{body: pngBytes(t, 8, 6)}
	edits := store.NewMemoryEditStore()
	e, dir := newTestEditor(t, remote, Options{Edits: edits})

	src := pngBytes(t, 4, 4)
	res, err := e.Submit(context.Background(), validSubmission(src))
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	assertTempDirEmpty(t, dir)

	if res.Failure != nil {
		t.Fatalf("expected no failure, got %+v", res.Failure)
	}
	if res.Output == nil || res.Output.Format != "jpeg" || res.Output.ContentType != "image/jpeg" {
		t.Fatalf("expected jpeg output, got %+v", res.Output)
	}
	if res.Output.Width != 8 || res.Output.Height != 6 {
		t.Fatalf("expected 8x6 output, got %dx%d", res.Output.Width, res.Output.Height)
	}
	if res.Edit.Filename != "transformed_edit_test.jpg" {
		t.Fatalf("expected transformed_edit_test.jpg, got %s", res.Edit.Filename)
	}
	if res.Edit.Status != domain.EditStatusSucceeded {
		t.Fatalf("expected succeeded status, got %s", res.Edit.Status)
	}
	if !bytes.Equal(remote.sawUpload, src) {
		t.Fatal("expected uploaded bytes to match submission")
	}
	if remote.publicID != "edit_test" || remote.quality != 90 {
		t.Fatalf("unexpected upload call public_id=%s quality=%d", remote.publicID, remote.quality)
	}

	stored, ok, err := edits.Get(context.Background(), "edit_test")
	if err != nil || !ok {
		t.Fatalf("expected stored edit, ok=%v err=%v", ok, err)
	}
	if stored.Status != domain.EditStatusSucceeded || stored.TransformURL == "" {
		t.Fatalf("unexpected stored edit %+v", stored)
	}
}

func TestSubmitBuildsLayersInOrder(t *testing.T) {
	remote := &fakeRemote{body: pngBytes(t, 2, 2)}
	e, _ := newTestEditor(t, remote, Options{})

	sub := validSubmission(pngBytes(t, 2, 2))
	sub.Style = "Ghibli Style"
	sub.Detail = "extra grain"
	sub.Resolution = "500"
	sub.Format = "png"

	res, err := e.Submit(context.Background(), sub)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	want := []string{
		"e_style:anime",
		"e_prompt:extra_grain",
		"e_gen_replace:from_sweater;to_leather jacket,q_90",
	}
	if len(remote.layers) != len(want) {
		t.Fatalf("expected %d layers, got %d", len(want), len(remote.layers))
	}
	for i, l := range remote.layers {
		if l.Component() != want[i] {
			t.Fatalf("layer %d: expected %s, got %s", i, want[i], l.Component())
		}
	}
	if remote.opts.Width != 500 || remote.opts.Format != "png" {
		t.Fatalf("unexpected output options %+v", remote.opts)
	}
	if res.Edit.Filename != "transformed_edit_test.png" || res.Output.ContentType != "image/png" {
		t.Fatalf("unexpected png output filename=%s type=%s", res.Edit.Filename, res.Output.ContentType)
	}
}

func TestSubmitTransformFailureIsNotAnError(t *testing.T) {
	remote := &fakeRemote{status: 400}
	e, dir := newTestEditor(t, remote, Options{})

	res, err := e.Submit(context.Background(), validSubmission(pngBytes(t, 2, 2)))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	assertTempDirEmpty(t, dir)

	if res.Failure == nil || res.Failure.StatusCode != 400 {
		t.Fatalf("expected 400 failure, got %+v", res.Failure)
	}
	if res.Failure.URL == "" || res.Failure.URL != res.Edit.TransformURL {
		t.Fatalf("expected failure URL to match edit transform URL, got %q", res.Failure.URL)
	}
	if !strings.Contains(res.Failure.Message(), "Status Code: 400") {
		t.Fatalf("unexpected failure message %q", res.Failure.Message())
	}
	if res.Output != nil {
		t.Fatal("expected no output on failure")
	}
	if res.Edit.Status != domain.EditStatusFailed {
		t.Fatalf("expected failed status, got %s", res.Edit.Status)
	}
}

func TestSubmitRemoteErrorPropagates(t *testing.T) {
	cfgErr := &cloudinary.ConfigurationError{Err: cloudinary.ErrMissingCredentials}
	remote := &fakeRemote{uploadErr: cfgErr}
	e, dir := newTestEditor(t, remote, Options{})

	res, err := e.Submit(context.Background(), validSubmission(pngBytes(t, 2, 2)))
	assertTempDirEmpty(t, dir)

	var got *cloudinary.ConfigurationError
	if !errors.As(err, &got) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if res.Edit.Status != domain.EditStatusFailed || res.Edit.Error == "" {
		t.Fatalf("expected failed edit with error, got %+v", res.Edit)
	}
}

func TestSubmitFetchErrorPropagates(t *testing.T) {
	remote := &fakeRemote{fetchErr: &cloudinary.RemoteCallError{Op: "fetch", Err: errors.New("connection reset")}}
	e, dir := newTestEditor(t, remote, Options{})

	_, err := e.Submit(context.Background(), validSubmission(pngBytes(t, 2, 2)))
	assertTempDirEmpty(t, dir)

	var remoteErr *cloudinary.RemoteCallError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteCallError, got %v", err)
	}
}

func TestSubmitReleasesTempAssetOnPanic(t *testing.T) {
	remote := &fakeRemote{fetchPanic: true}
	e, dir := newTestEditor(t, remote, Options{})

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_, _ = e.Submit(context.Background(), validSubmission(pngBytes(t, 2, 2)))
	}()

	assertTempDirEmpty(t, dir)
}

func TestSubmitUndecodableOutputIsError(t *testing.T) {
	remote := &fakeRemote{body: []byte("not an image")}
	e, dir := newTestEditor(t, remote, Options{})

	_, err := e.Submit(context.Background(), validSubmission(pngBytes(t, 2, 2)))
	if err == nil {
		t.Fatal("expected decode error")
	}
	assertTempDirEmpty(t, dir)
}

func TestSubmitInvalidSubmission(t *testing.T) {
	remote := &fakeRemote{}
	e, dir := newTestEditor(t, remote, Options{})

	sub := validSubmission(pngBytes(t, 2, 2))
	sub.Style = "Watercolor"
	_, err := e.Submit(context.Background(), sub)
	if !errors.Is(err, ErrInvalidSubmission) {
		t.Fatalf("expected ErrInvalidSubmission, got %v", err)
	}
	if remote.publicID != "" {
		t.Fatal("expected no upload for invalid submission")
	}
	assertTempDirEmpty(t, dir)
}

func TestSubmitStoresOutputAndNotifies(t *testing.T) {
	remote := &fakeRemote{body: pngBytes(t, 3, 3)}
	outputs := &fakeOutputs{}
	notifier := &fakeNotifier{}
	e, _ := newTestEditor(t, remote, Options{Outputs: outputs, Notifier: notifier})

	sub := validSubmission(pngBytes(t, 2, 2))
	sub.WebhookURL = "https://hooks.example/edits"
	res, err := e.Submit(context.Background(), sub)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	wantKey := "outputs/edit_test/transformed_edit_test.jpg"
	if res.Edit.OutputKey != wantKey {
		t.Fatalf("expected output key %s, got %s", wantKey, res.Edit.OutputKey)
	}
	if _, ok := outputs.objects[wantKey]; !ok {
		t.Fatal("expected output to be written")
	}
	if outputs.types[wantKey] != imaging.ContentType("jpeg") {
		t.Fatalf("unexpected stored content type %s", outputs.types[wantKey])
	}

	if len(notifier.payloads) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.payloads))
	}
	p := notifier.payloads[0]
	if p.EditID != "edit_test" || p.Status != domain.EditStatusSucceeded || p.WebhookURL != sub.WebhookURL {
		t.Fatalf("unexpected payload %+v", p)
	}
	if p.DownloadPath != "/v1/edits/edit_test/download" {
		t.Fatalf("unexpected download path %s", p.DownloadPath)
	}
}

func TestSubmitSkipsNotifyWithoutWebhook(t *testing.T) {
	remote := &fakeRemote{status: 500}
	notifier := &fakeNotifier{}
	e, _ := newTestEditor(t, remote, Options{Notifier: notifier})

	if _, err := e.Submit(context.Background(), validSubmission(pngBytes(t, 2, 2))); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if len(notifier.payloads) != 0 {
		t.Fatalf("expected no notifications, got %d", len(notifier.payloads))
	}
}
