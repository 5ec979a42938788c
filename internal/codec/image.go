package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/newthinker/fileboxes/internal/core"
)

// Image stores the natively encoded image bytes with no envelope.
type Image struct {
	// JPEGQuality is used for jpeg output; zero means jpeg.DefaultQuality.
	JPEGQuality int
}

func (Image) Kind() core.Kind { return core.KindImage }

// Encode writes img in its Format, defaulting to png.
func (c Image) Encode(v core.Value) ([]byte, error) {
	img, ok := v.(core.Image)
	if !ok {
		return nil, wrongKind(core.KindImage, v)
	}
	if img.Image == nil {
		return nil, core.WrapError(core.ErrEncode, fmt.Errorf("image is nil"))
	}

	var buf bytes.Buffer
	var err error
	switch normalizeImageFormat(img.Format) {
	case "png":
		err = png.Encode(&buf, img.Image)
	case "jpeg":
		quality := c.JPEGQuality
		if quality == 0 {
			quality = jpeg.DefaultQuality
		}
		err = jpeg.Encode(&buf, img.Image, &jpeg.Options{Quality: quality})
	case "gif":
		err = gif.Encode(&buf, img.Image, nil)
	default:
		return nil, core.WrapError(core.ErrUnsupportedType, fmt.Errorf("image format %q", img.Format))
	}
	if err != nil {
		return nil, core.WrapError(core.ErrEncode, err)
	}
	return buf.Bytes(), nil
}

// Decode recovers both pixels and format from the encoded bytes.
func (Image) Decode(data []byte) (core.Value, error) {
	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, core.WrapError(core.ErrDecode, err)
	}
	return core.Image{Image: img, Format: normalizeImageFormat(name)}, nil
}

func normalizeImageFormat(name string) string {
	switch f := strings.ToLower(strings.TrimPrefix(name, ".")); f {
	case "", "png":
		return "png"
	case "jpg", "jpeg":
		return "jpeg"
	default:
		return f
	}
}
