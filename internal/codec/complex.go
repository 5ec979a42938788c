package codec

import "fmt"

// Wire convention for complex numbers inside structured entries:
//
//	{"__fileboxes_type__": "complex", "real": 3, "imag": 4}
const (
	TypeTag     = "__fileboxes_type__"
	complexType = "complex"
)

// ComplexHook round-trips complex64/complex128 leaves through the tagged
// object representation. Objects with any other tag value, or without a
// tag, are left alone.
func ComplexHook() Hook {
	return Hook{
		Name:       "complex",
		PreEncode:  encodeComplex,
		PostDecode: decodeComplex,
	}
}

func encodeComplex(v any) (any, error) {
	return walk(v, func(n any) (any, bool) {
		switch c := n.(type) {
		case complex128:
			return complexObject(c), true
		case complex64:
			return complexObject(complex128(c)), true
		}
		return n, false
	}), nil
}

func complexObject(c complex128) map[string]any {
	return map[string]any{
		TypeTag: complexType,
		"real":  real(c),
		"imag":  imag(c),
	}
}

func decodeComplex(v any) (any, error) {
	return walkErr(v, func(n any) (any, bool, error) {
		obj, ok := n.(map[string]any)
		if !ok {
			return n, false, nil
		}
		if tag, _ := obj[TypeTag].(string); tag != complexType {
			return n, false, nil
		}
		re, err := toFloat(obj["real"])
		if err != nil {
			return nil, true, fmt.Errorf("complex real part: %w", err)
		}
		im, err := toFloat(obj["imag"])
		if err != nil {
			return nil, true, fmt.Errorf("complex imaginary part: %w", err)
		}
		return complex(re, im), true, nil
	})
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case nil:
		return 0, fmt.Errorf("missing")
	}
	return 0, fmt.Errorf("not a number: %T", v)
}
