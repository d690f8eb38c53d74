package transform

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	Auto = "auto"

	MinQuality     = 50
	MaxQuality     = 100
	DefaultQuality = 90

	defaultExtension = "jpg"
)

var (
	Resolutions = []string{Auto, "500", "1000", "2000"}
	Formats     = []string{Auto, "jpg", "png", "webp"}
)

// OutputOptions constrains the rendered output. Zero Width and empty Format
// mean the service picks.
type OutputOptions struct {
	Width  int    `json:"width,omitempty"`
	Format string `json:"format,omitempty"`
}

func (o OutputOptions) HasWidth() bool {
	return o.Width > 0
}

func (o OutputOptions) HasFormat() bool {
	return o.Format != ""
}

// Extension is the download file extension: the requested format, or jpg.
func (o OutputOptions) Extension() string {
	if o.Format == "" {
		return defaultExtension
	}
	return o.Format
}

// BuildOutputOptions maps the resolution and format selections to options,
// omitting any selection equal to the auto sentinel.
func BuildOutputOptions(resolution, format string) (OutputOptions, error) {
	var opts OutputOptions

	resolution = strings.TrimSpace(resolution)
	if !isAuto(resolution) {
		width, err := strconv.Atoi(resolution)
		if err != nil || width <= 0 {
			return OutputOptions{}, fmt.Errorf("invalid resolution %q", resolution)
		}
		opts.Width = width
	}

	format = strings.ToLower(strings.TrimSpace(format))
	if !isAuto(format) {
		opts.Format = format
	}
	return opts, nil
}

func isAuto(v string) bool {
	return v == "" || strings.EqualFold(v, Auto)
}

func ValidQuality(q int) bool {
	return q >= MinQuality && q <= MaxQuality
}

// ValidResolution accepts a listed resolution or an omitted one, which means
// auto.
func ValidResolution(v string) bool {
	v = strings.TrimSpace(v)
	return isAuto(v) || contains(Resolutions, strings.ToLower(v))
}

func ValidFormat(v string) bool {
	v = strings.TrimSpace(v)
	return isAuto(v) || contains(Formats, strings.ToLower(v))
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
