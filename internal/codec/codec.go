// Package codec turns store values into entry bytes and back.
//
// There is one codec per kind. The store never persists which kind was
// written, so every codec must be able to decode what it encodes without
// any side channel.
package codec

import (
	"fmt"

	"github.com/newthinker/fileboxes/internal/core"
)

// Codec encodes and decodes values of a single kind.
type Codec interface {
	// Kind returns the value kind handled by this codec
	Kind() core.Kind

	// Encode serializes v. v must be of the codec's kind.
	Encode(v core.Value) ([]byte, error)

	// Decode parses entry bytes into a value of the codec's kind
	Decode(data []byte) (core.Value, error)
}

// Registry maps kinds to codecs.
type Registry struct {
	codecs map[core.Kind]Codec
}

// NewRegistry creates a registry holding the given codecs.
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{codecs: make(map[core.Kind]Codec, len(codecs))}
	for _, c := range codecs {
		r.Register(c)
	}
	return r
}

// Default returns a registry with the standard codec for every kind.
// The structured codec carries the complex-number hook.
func Default() *Registry {
	return NewRegistry(
		NewJSON(ComplexHook()),
		Text{},
		Image{},
		INI{},
	)
}

// Register adds or replaces the codec for c.Kind().
func (r *Registry) Register(c Codec) {
	r.codecs[c.Kind()] = c
}

// Lookup returns the codec for kind.
func (r *Registry) Lookup(kind core.Kind) (Codec, error) {
	c, ok := r.codecs[kind]
	if !ok {
		return nil, core.WrapError(core.ErrUnsupportedType, fmt.Errorf("no codec for kind %q", kind))
	}
	return c, nil
}

func wrongKind(want core.Kind, v core.Value) error {
	return core.WrapError(core.ErrUnsupportedType, fmt.Errorf("%s codec cannot encode %T", want, v))
}
