//go:build !cgo

package imaging

import (
	"fmt"
	"image"
	"io"
)

const webpEncoding = false

func encodeWebP(io.Writer, image.Image, int) error {
	return fmt.Errorf("%w: webp export requires cgo", ErrUnsupportedFormat)
}
