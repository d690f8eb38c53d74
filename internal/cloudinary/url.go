package cloudinary

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/transform"
)

// TransformURL builds the delivery URL for asset with the layer chain applied
// in order, followed by the output width. The format becomes the extension.
func (c *Client) TransformURL(asset Asset, layers []transform.Layer, opts transform.OutputOptions) (string, error) {
	if c.cloudName == "" {
		return "", &ConfigurationError{Err: fmt.Errorf("%w: missing CLOUD_NAME", ErrMissingCredentials)}
	}
	if strings.TrimSpace(asset.PublicID) == "" {
		return "", &RemoteCallError{Op: "transform url", Err: errors.New("public id is required")}
	}

	components := make([]string, 0, len(layers)+1)
	for _, l := range layers {
		components = append(components, escape(l.Component()))
	}
	if opts.HasWidth() {
		components = append(components, "w_"+strconv.Itoa(opts.Width))
	}

	source := escape(asset.PublicID)
	if opts.HasFormat() {
		source += "." + opts.Format
	}

	parts := []string{c.deliveryURL, escape(c.cloudName), "image", "upload"}
	parts = append(parts, components...)
	parts = append(parts, source)
	return strings.Join(parts, "/"), nil
}

// escape percent-encodes everything outside the characters the transformation
// grammar uses.
func escape(s string) string {
	const hexDigits = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if safe(ch) {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[ch>>4])
		b.WriteByte(hexDigits[ch&0x0f])
	}
	return b.String()
}

func safe(ch byte) bool {
	switch {
	case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		return true
	}
	return strings.IndexByte("-_.~:;,=!$()*@/", ch) >= 0
}
