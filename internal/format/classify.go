package format

import (
	"fmt"
	"image"
	"reflect"

	"github.com/newthinker/fileboxes/internal/core"
)

// DefaultImageFormat is used for images that carry no explicit format.
const DefaultImageFormat = "png"

// Classify maps v onto the closed set of storable values:
//
//   - core values pass through (an Image without a format gets png)
//   - image.Image becomes an Image encoded as png
//   - maps, slices and arrays become Structured ([]byte excluded)
//   - strings become Text
//
// Everything else fails with core.ErrUnsupportedType.
func Classify(v any) (core.Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, unsupported(v)
	case core.Image:
		if val.Image == nil {
			return nil, unsupported(v)
		}
		if val.Format == "" {
			val.Format = DefaultImageFormat
		}
		return val, nil
	case *core.Image:
		if val == nil {
			return nil, unsupported(v)
		}
		return Classify(*val)
	case core.Structured:
		if !isContainer(val.Data) {
			return nil, unsupported(val.Data)
		}
		return val, nil
	case *core.Config:
		if val == nil {
			return nil, unsupported(v)
		}
		return val, nil
	case core.Config:
		return &val, nil
	case core.Text:
		return val, nil
	case string:
		return core.Text(val), nil
	case []byte:
		return nil, unsupported(v)
	case image.Image:
		return core.Image{Image: val, Format: DefaultImageFormat}, nil
	}

	if isContainer(v) {
		return core.Structured{Data: v}, nil
	}
	return nil, unsupported(v)
}

// isContainer reports whether v is a map or an ordered sequence other
// than a byte slice.
func isContainer(v any) bool {
	if v == nil {
		return false
	}
	t := reflect.TypeOf(v)
	switch t.Kind() {
	case reflect.Map:
		return true
	case reflect.Slice, reflect.Array:
		return t.Elem().Kind() != reflect.Uint8
	}
	return false
}

func unsupported(v any) error {
	return core.WrapError(core.ErrUnsupportedType, fmt.Errorf("%T", v))
}
