package core

import "image"

// Kind identifies which codec family a value belongs to
type Kind string

const (
	KindStructured Kind = "structured"
	KindText       Kind = "text"
	KindImage      Kind = "image"
	KindConfig     Kind = "config"
)

// Kinds lists every kind the store knows how to persist.
func Kinds() []Kind {
	return []Kind{KindStructured, KindText, KindImage, KindConfig}
}

// IsValid reports whether k is one of the known kinds
func (k Kind) IsValid() bool {
	switch k {
	case KindStructured, KindText, KindImage, KindConfig:
		return true
	}
	return false
}

// Value is a payload the store can persist. The set of implementations
// is closed: Structured, Text, Image and *Config.
type Value interface {
	Kind() Kind
	sealed()
}

// Structured holds a JSON-compatible map or sequence. Leaves may be
// complex64 or complex128 values.
type Structured struct {
	Data any
}

func (Structured) Kind() Kind { return KindStructured }
func (Structured) sealed()    {}

// Text is stored as its UTF-8 bytes.
type Text string

func (Text) Kind() Kind { return KindText }
func (Text) sealed()    {}

// Image pairs decoded pixels with the encoding used to store them.
// An empty Format means "png".
type Image struct {
	Image  image.Image
	Format string
}

func (Image) Kind() Kind { return KindImage }
func (Image) sealed()    {}

func (*Config) Kind() Kind { return KindConfig }
func (*Config) sealed()    {}
