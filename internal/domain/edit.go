package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/imaging"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/transform"
)

const (
	EditStatusCreated    = "created"
	EditStatusProcessing = "processing"
	EditStatusSucceeded  = "succeeded"
	EditStatusFailed     = "failed"

	DefaultSubject     = "sweater"
	DefaultReplacement = "leather jacket"
)

// Submission is one user request to replace an object in an image.
type Submission struct {
	Image       []byte
	Filename    string
	Subject     string
	Replacement string
	Style       string
	Detail      string
	Quality     int
	Resolution  string
	Format      string
	WebhookURL  string
}

// Validate checks the selections the presentation layer constrains. Subject,
// replacement and detail are free text and pass through untouched.
func (s Submission) Validate() error {
	if len(s.Image) == 0 {
		return errors.New("image is required")
	}
	if _, _, known := transform.LookupStyle(s.Style); !known {
		return fmt.Errorf("unsupported style: %s", s.Style)
	}
	if !transform.ValidQuality(s.Quality) {
		return fmt.Errorf("quality must be between %d and %d", transform.MinQuality, transform.MaxQuality)
	}
	if !transform.ValidResolution(s.Resolution) {
		return fmt.Errorf("unsupported resolution: %s", s.Resolution)
	}
	if !transform.ValidFormat(s.Format) {
		return fmt.Errorf("unsupported format: %s", s.Format)
	}
	if !imaging.Supports(s.Format) {
		return fmt.Errorf("%w: %s is not available in this build", imaging.ErrUnsupportedFormat, s.Format)
	}
	if hook := strings.TrimSpace(s.WebhookURL); hook != "" {
		u, err := url.Parse(hook)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid webhook_url: %s", s.WebhookURL)
		}
	}
	return nil
}

// Edit records one submission and its outcome. ID is the remote public id.
type Edit struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Subject      string            `json:"subject"`
	Replacement  string            `json:"replacement"`
	Style        string            `json:"style"`
	Detail       string            `json:"detail,omitempty"`
	Quality      int               `json:"quality"`
	Resolution   string            `json:"resolution"`
	Format       string            `json:"format"`
	Layers       []transform.Layer `json:"layers,omitempty"`
	TransformURL string            `json:"transform_url,omitempty"`
	StatusCode   int               `json:"status_code,omitempty"`
	Error        string            `json:"error,omitempty"`
	Filename     string            `json:"filename,omitempty"`
	ContentType  string            `json:"content_type,omitempty"`
	OutputKey    string            `json:"output_key,omitempty"`
	OutputBytes  int               `json:"output_bytes,omitempty"`
	Width        int               `json:"width,omitempty"`
	Height       int               `json:"height,omitempty"`
	WebhookURL   string            `json:"webhook_url,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (e Edit) Finished() bool {
	return e.Status == EditStatusSucceeded || e.Status == EditStatusFailed
}
