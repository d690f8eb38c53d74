package imaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported output format")

const defaultQuality = 90

// Output is a re-encoded image ready for download.
type Output struct {
	Data        []byte
	Format      string
	ContentType string
	Width       int
	Height      int
}

type codec interface {
	reencode(data []byte, format string, quality int) (Output, error)
}

var defaultCodec = newCodec()

// NormalizeFormat maps a requested format to an encoder name. The auto
// selection and the empty string both mean jpeg.
func NormalizeFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "auto", "jpg", "jpeg":
		return "jpeg"
	case "png":
		return "png"
	case "webp":
		return "webp"
	default:
		return ""
	}
}

// Supports reports whether this build can encode format.
func Supports(format string) bool {
	switch NormalizeFormat(format) {
	case "":
		return false
	case "webp":
		return webpEncoding
	default:
		return true
	}
}

func ContentType(format string) string {
	switch NormalizeFormat(format) {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// Reencode decodes data and encodes it again in format at quality.
func Reencode(ctx context.Context, data []byte, format string, quality int) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	if len(data) == 0 {
		return Output{}, errors.New("image data is empty")
	}

	normalized := NormalizeFormat(format)
	if normalized == "" {
		return Output{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if quality <= 0 || quality > 100 {
		quality = defaultQuality
	}

	return defaultCodec.reencode(data, normalized, quality)
}
