package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/cloudinary"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/domain"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/editor"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/imaging"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/storage"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/transform"
	"github.com/go-chi/chi/v5"
)

// multipart framing on top of the image itself
const formOverheadBytes = 1 << 20

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

func (s *Server) handleStyles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"styles":  transform.Styles(),
		"default": transform.DefaultStyle,
	})
}

func (s *Server) handleOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"quality": map[string]int{
			"min":     transform.MinQuality,
			"max":     transform.MaxQuality,
			"default": transform.DefaultQuality,
		},
		"resolutions": transform.Resolutions,
		"formats":     encodableFormats(),
		"defaults": map[string]string{
			"subject":     domain.DefaultSubject,
			"replacement": domain.DefaultReplacement,
			"style":       transform.DefaultStyle,
			"resolution":  transform.Auto,
			"format":      transform.Auto,
		},
		"max_upload_bytes": s.maxUploadBytes,
	})
}

func encodableFormats() []string {
	formats := make([]string, 0, len(transform.Formats))
	for _, f := range transform.Formats {
		if imaging.Supports(f) {
			formats = append(formats, f)
		}
	}
	return formats
}

func (s *Server) handleCreateEdit(w http.ResponseWriter, r *http.Request) {
	if s.editor == nil {
		writeError(w, http.StatusServiceUnavailable, "editor is unavailable")
		return
	}

	sub, status, err := s.parseSubmission(w, r)
	if err != nil {
		s.metrics.editsTotal.WithLabelValues("invalid").Inc()
		writeError(w, status, err.Error())
		return
	}

	start := time.Now()
	res, err := s.editor.Submit(r.Context(), sub)
	s.metrics.editDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		s.writeSubmitError(w, err)
	case res.Failure != nil:
		s.metrics.editsTotal.WithLabelValues("transform_failed").Inc()
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":         res.Failure.Message(),
			"status_code":   res.Failure.StatusCode,
			"transform_url": res.Failure.URL,
			"edit":          res.Edit,
		})
	default:
		s.metrics.editsTotal.WithLabelValues("succeeded").Inc()
		writeJSON(w, http.StatusOK, map[string]any{
			"edit":         res.Edit,
			"filename":     res.Edit.Filename,
			"content_type": res.Edit.ContentType,
			"download_url": editor.DownloadPath(res.Edit.ID),
		})
	}
}

func (s *Server) writeSubmitError(w http.ResponseWriter, err error) {
	var (
		cfgErr    *cloudinary.ConfigurationError
		remoteErr *cloudinary.RemoteCallError
	)
	switch {
	case errors.Is(err, editor.ErrInvalidSubmission):
		s.metrics.editsTotal.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &cfgErr):
		s.metrics.editsTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusServiceUnavailable, "An error occurred: "+err.Error())
	case errors.As(err, &remoteErr):
		s.metrics.editsTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusBadGateway, "An error occurred: "+err.Error())
	default:
		s.metrics.editsTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, "An error occurred: "+err.Error())
	}
}

func (s *Server) parseSubmission(w http.ResponseWriter, r *http.Request) (domain.Submission, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+formOverheadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.Submission{}, http.StatusRequestEntityTooLarge, fmt.Errorf("image exceeds %d bytes", s.maxUploadBytes)
		}
		return domain.Submission{}, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("image")
	if err != nil {
		return domain.Submission{}, http.StatusBadRequest, errors.New("image is required")
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !imageExtensions[ext] {
		return domain.Submission{}, http.StatusBadRequest, fmt.Errorf("unsupported image type %q: use jpg, jpeg, png or webp", ext)
	}

	data, err := io.ReadAll(io.LimitReader(file, s.maxUploadBytes+1))
	if err != nil {
		return domain.Submission{}, http.StatusBadRequest, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > s.maxUploadBytes {
		return domain.Submission{}, http.StatusRequestEntityTooLarge, fmt.Errorf("image exceeds %d bytes", s.maxUploadBytes)
	}

	quality := transform.DefaultQuality
	if raw := strings.TrimSpace(r.FormValue("quality")); raw != "" {
		quality, err = strconv.Atoi(raw)
		if err != nil {
			return domain.Submission{}, http.StatusBadRequest, fmt.Errorf("quality must be an integer: %q", raw)
		}
	}

	style := strings.TrimSpace(r.FormValue("style"))
	if style == "" {
		style = transform.DefaultStyle
	}

	return domain.Submission{
		Image:       data,
		Filename:    header.Filename,
		Subject:     formValue(r, "subject", domain.DefaultSubject),
		Replacement: formValue(r, "replacement", domain.DefaultReplacement),
		Style:       style,
		Detail:      r.FormValue("detail"),
		Quality:     quality,
		Resolution:  strings.TrimSpace(r.FormValue("resolution")),
		Format:      strings.TrimSpace(r.FormValue("format")),
		WebhookURL:  strings.TrimSpace(r.FormValue("webhook_url")),
	}, http.StatusOK, nil
}

// formValue returns fallback only when the field is absent. A field sent
// empty stays empty.
func formValue(r *http.Request, key, fallback string) string {
	if r.MultipartForm != nil {
		if vals, ok := r.MultipartForm.Value[key]; ok && len(vals) > 0 {
			return vals[0]
		}
	}
	return fallback
}

func (s *Server) loadEdit(w http.ResponseWriter, r *http.Request) (domain.Edit, bool) {
	editID := strings.TrimSpace(chi.URLParam(r, "id"))
	edit, ok, err := s.edits.Get(r.Context(), editID)
	if err != nil {
		s.logger.Error().Err(err).Str("edit_id", editID).Msg("load edit failed")
		writeError(w, http.StatusInternalServerError, "failed to load edit")
		return domain.Edit{}, false
	}
	if !ok {
		writeError(w, http.StatusNotFound, "edit not found")
		return domain.Edit{}, false
	}
	return edit, true
}

func (s *Server) handleGetEdit(w http.ResponseWriter, r *http.Request) {
	edit, ok := s.loadEdit(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, edit)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	edit, ok := s.loadEdit(w, r)
	if !ok {
		return
	}
	if edit.OutputKey == "" {
		writeError(w, http.StatusNotFound, "edit has no stored output")
		return
	}

	data, err := s.outputs.ReadObject(r.Context(), edit.OutputKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			writeError(w, http.StatusNotFound, "output not found")
			return
		}
		s.logger.Error().Err(err).Str("edit_id", edit.ID).Str("object_key", edit.OutputKey).Msg("read output failed")
		writeError(w, http.StatusInternalServerError, "failed to read output")
		return
	}

	w.Header().Set("Content-Type", edit.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", edit.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleDeleteEdit(w http.ResponseWriter, r *http.Request) {
	edit, ok := s.loadEdit(w, r)
	if !ok {
		return
	}

	// The remote asset goes first so a failed destroy leaves the edit downloadable.
	if s.remote != nil {
		if err := s.remote.Destroy(r.Context(), edit.ID); err != nil {
			s.logger.Error().Err(err).Str("edit_id", edit.ID).Msg("destroy remote asset failed")
			writeError(w, http.StatusBadGateway, "An error occurred: "+err.Error())
			return
		}
	}
	if edit.OutputKey != "" {
		if err := s.outputs.RemoveObject(r.Context(), edit.OutputKey); err != nil {
			s.logger.Error().Err(err).Str("edit_id", edit.ID).Msg("remove output failed")
			writeError(w, http.StatusInternalServerError, "failed to remove output")
			return
		}
	}
	if err := s.edits.Delete(r.Context(), edit.ID); err != nil {
		s.logger.Error().Err(err).Str("edit_id", edit.ID).Msg("delete edit failed")
		writeError(w, http.StatusInternalServerError, "failed to delete edit")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
