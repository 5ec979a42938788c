// Package format decides which codec applies to a value or a stored entry.
//
// Write side, Classify maps an arbitrary Go value onto the closed set of
// core values. Read side, Resolve uses the key's extension when it is
// recognized and otherwise sniffs the entry bytes. Nothing here performs
// I/O.
package format

import (
	"path"
	"strings"

	"github.com/newthinker/fileboxes/internal/core"
)

// extensions maps lower-case key extensions to the codec kind that
// always decodes them.
var extensions = map[string]core.Kind{
	".json":   core.KindStructured,
	".config": core.KindConfig,
	".dat":    core.KindConfig,
	".png":    core.KindImage,
	".jpeg":   core.KindImage,
	".jpg":    core.KindImage,
}

// KindForKey returns the kind forced by key's extension.
func KindForKey(key string) (core.Kind, bool) {
	ext := strings.ToLower(path.Ext(key))
	if ext == "" {
		return "", false
	}
	kind, ok := extensions[ext]
	return kind, ok
}

// Resolve picks the decode kind for an entry: extension first, then
// content sniffing.
func Resolve(key string, data []byte) core.Kind {
	if kind, ok := KindForKey(key); ok {
		return kind
	}
	return Sniff(data)
}
