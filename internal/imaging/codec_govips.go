//go:build govips && cgo

package imaging

import (
	"fmt"

	"github.com/davidbyttow/govips/v2/vips"
)

type govipsCodec struct{}

func newCodec() codec {
	return govipsCodec{}
}

func (govipsCodec) reencode(data []byte, format string, quality int) (Output, error) {
	img, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return Output{}, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	var out []byte
	switch format {
	case "jpeg":
		params := vips.NewJpegExportParams()
		params.Quality = quality
		out, _, err = img.ExportJpeg(params)
	case "png":
		out, _, err = img.ExportPng(vips.NewPngExportParams())
	case "webp":
		params := vips.NewWebpExportParams()
		params.Quality = quality
		out, _, err = img.ExportWebp(params)
	default:
		return Output{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return Output{}, fmt.Errorf("encode %s: %w", format, err)
	}

	return Output{
		Data:        out,
		Format:      format,
		ContentType: ContentType(format),
		Width:       img.Width(),
		Height:      img.Height(),
	}, nil
}
