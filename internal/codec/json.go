package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/newthinker/fileboxes/internal/core"
	"github.com/tidwall/jsonc"
)

// Hook transforms a value tree around the base JSON machinery.
// PreEncode runs before marshaling, PostDecode after unmarshaling.
// Either may be nil.
type Hook struct {
	Name       string
	PreEncode  func(v any) (any, error)
	PostDecode func(v any) (any, error)
}

// JSON is the structured-data codec: UTF-8 JSON with sorted object keys
// and two-space indentation.
//
// Integral numbers decode to int, or int64 when int is narrower. Larger
// positive integers decode to uint64 and anything beyond that stays a
// json.Number so no digits are lost. Other numbers decode to float64.
// Floats with an integral value are written with a trailing ".0" so they
// decode back to float64. Nil maps and sequences are written as {} and
// [] so they stay structured.
type JSON struct {
	hooks []Hook
}

// NewJSON creates a structured codec composed with hooks. PreEncode hooks
// run in order, PostDecode hooks in reverse order.
func NewJSON(hooks ...Hook) *JSON {
	return &JSON{hooks: hooks}
}

func (j *JSON) Kind() core.Kind { return core.KindStructured }

// Encode marshals a Structured value whose Data is a map or sequence.
func (j *JSON) Encode(v core.Value) ([]byte, error) {
	s, ok := v.(core.Structured)
	if !ok {
		return nil, wrongKind(core.KindStructured, v)
	}
	if !isContainer(s.Data) {
		return nil, core.WrapError(core.ErrUnsupportedType,
			fmt.Errorf("structured data must be a map or sequence, got %T", s.Data))
	}
	return j.Marshal(s.Data)
}

// Marshal encodes an arbitrary tree through the hooks.
func (j *JSON) Marshal(data any) ([]byte, error) {
	var err error
	for _, h := range j.hooks {
		if h.PreEncode == nil {
			continue
		}
		if data, err = h.PreEncode(data); err != nil {
			return nil, core.WrapError(core.ErrEncode, fmt.Errorf("%s hook: %w", h.Name, err))
		}
	}
	data = walk(data, encodeFloat)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return nil, core.WrapError(core.ErrEncode, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode parses JSON (comments and trailing commas allowed) into a
// Structured value.
func (j *JSON) Decode(data []byte) (core.Value, error) {
	v, err := j.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return core.Structured{Data: v}, nil
}

// Unmarshal decodes data into a generic tree through the hooks.
func (j *JSON) Unmarshal(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, core.WrapError(core.ErrDecode, err)
	}
	if dec.More() {
		return nil, core.WrapError(core.ErrDecode, fmt.Errorf("unexpected data after top-level value"))
	}

	v, err := decodeNumbers(v)
	if err != nil {
		return nil, core.WrapError(core.ErrDecode, err)
	}
	for i := len(j.hooks) - 1; i >= 0; i-- {
		h := j.hooks[i]
		if h.PostDecode == nil {
			continue
		}
		if v, err = h.PostDecode(v); err != nil {
			return nil, core.WrapError(core.ErrDecode, fmt.Errorf("%s hook: %w", h.Name, err))
		}
	}
	return v, nil
}

// walk rebuilds maps with string keys and non-byte sequences as
// map[string]any / []any, nil ones as empty, offering every node to leaf
// first. leaf returns false to let walk descend.
func walk(v any, leaf func(any) (any, bool)) any {
	if out, ok := leaf(v); ok {
		return out
	}

	switch x := v.(type) {
	case map[string]any:
		if x == nil {
			return map[string]any{}
		}
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = walk(e, leaf)
		}
		return out
	case []any:
		if x == nil {
			return []any{}
		}
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = walk(e, leaf)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = walk(iter.Value().Interface(), leaf)
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = walk(rv.Index(i).Interface(), leaf)
		}
		return out
	}
	return v
}

// walkErr is walk for leaf functions that can fail.
func walkErr(v any, leaf func(any) (any, bool, error)) (any, error) {
	var firstErr error
	out := walk(v, func(n any) (any, bool) {
		if firstErr != nil {
			return n, true
		}
		r, ok, err := leaf(n)
		if err != nil {
			firstErr = err
			return n, true
		}
		return r, ok
	})
	return out, firstErr
}

func encodeFloat(v any) (any, bool) {
	var f float64
	var bits int
	switch x := v.(type) {
	case float64:
		f, bits = x, 64
	case float32:
		f, bits = float64(x), 32
	default:
		return v, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		// Left as-is so the encoder reports the unsupported value.
		return v, true
	}
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return json.Number(s), true
}

func decodeNumbers(v any) (any, error) {
	return walkErr(v, func(n any) (any, bool, error) {
		num, ok := n.(json.Number)
		if !ok {
			return n, false, nil
		}
		if i, err := strconv.ParseInt(string(num), 10, 64); err == nil {
			if i >= math.MinInt && i <= math.MaxInt {
				return int(i), true, nil
			}
			return i, true, nil
		}
		if u, err := strconv.ParseUint(string(num), 10, 64); err == nil {
			return u, true, nil
		}
		if isIntegerLiteral(string(num)) {
			return num, true, nil
		}
		f, err := num.Float64()
		if err != nil {
			return nil, true, fmt.Errorf("number %q: %w", num, err)
		}
		return f, true, nil
	})
}

func isIntegerLiteral(s string) bool {
	return !strings.ContainsAny(s, ".eE")
}

func isContainer(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Map:
		return true
	case reflect.Slice, reflect.Array:
		return reflect.TypeOf(v).Elem().Kind() != reflect.Uint8
	}
	return false
}
