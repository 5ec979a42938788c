package codec

import "github.com/newthinker/fileboxes/internal/core"

// Text stores strings as their raw bytes.
type Text struct{}

func (Text) Kind() core.Kind { return core.KindText }

func (Text) Encode(v core.Value) ([]byte, error) {
	t, ok := v.(core.Text)
	if !ok {
		return nil, wrongKind(core.KindText, v)
	}
	return []byte(t), nil
}

// Decode never fails; bytes that are not valid UTF-8 are kept verbatim.
func (Text) Decode(data []byte) (core.Value, error) {
	return core.Text(data), nil
}
