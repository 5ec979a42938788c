package format

import (
	"bytes"
	"encoding/json"

	"github.com/newthinker/fileboxes/internal/core"
)

// Detector is one content check. Detectors are tried in order and the
// first match wins.
type Detector struct {
	Name  string
	Kind  core.Kind
	Match func(data []byte) bool
}

// DefaultDetectors is the sniffing order: binary image signatures are
// checked before attempting a structured parse. Anything left is text.
var DefaultDetectors = []Detector{
	{Name: "image-signature", Kind: core.KindImage, Match: IsImage},
	{Name: "structured-parse", Kind: core.KindStructured, Match: IsStructured},
}

// Sniff classifies data using DefaultDetectors.
func Sniff(data []byte) core.Kind {
	return SniffWith(DefaultDetectors, data)
}

// SniffWith runs detectors in order, falling back to text.
func SniffWith(detectors []Detector, data []byte) core.Kind {
	for _, d := range detectors {
		if d.Match(data) {
			return d.Kind
		}
	}
	return core.KindText
}

var imageSignatures = []struct {
	format string
	magic  []byte
}{
	{"png", []byte("\x89PNG\r\n\x1a\n")},
	{"jpeg", []byte{0xFF, 0xD8, 0xFF}},
	{"gif", []byte("GIF87a")},
	{"gif", []byte("GIF89a")},
}

// ImageFormat returns the image format whose magic bytes prefix data.
func ImageFormat(data []byte) (string, bool) {
	for _, sig := range imageSignatures {
		if bytes.HasPrefix(data, sig.magic) {
			return sig.format, true
		}
	}
	return "", false
}

// IsImage reports whether data starts with a known image signature.
func IsImage(data []byte) bool {
	_, ok := ImageFormat(data)
	return ok
}

// IsStructured reports whether data is strict JSON holding an object or
// array. Bare scalars do not count, so text such as "42" or "true" stays
// text, and neither do comments or trailing commas: JSONC is only
// accepted under a .json key.
func IsStructured(data []byte) bool {
	stripped := bytes.TrimSpace(data)
	if len(stripped) == 0 {
		return false
	}
	if stripped[0] != '{' && stripped[0] != '[' {
		return false
	}
	return json.Valid(stripped)
}
