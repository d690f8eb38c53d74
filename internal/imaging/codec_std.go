//go:build !govips || !cgo

package imaging

type stdlibCodec struct{}

func newCodec() codec {
	return stdlibCodec{}
}

func (stdlibCodec) reencode(data []byte, format string, quality int) (Output, error) {
	img, _, err := Decode(data)
	if err != nil {
		return Output{}, err
	}

	out, contentType, err := Encode(img, format, quality)
	if err != nil {
		return Output{}, err
	}

	bounds := img.Bounds()
	return Output{
		Data:        out,
		Format:      format,
		ContentType: contentType,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
	}, nil
}
