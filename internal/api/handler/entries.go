// internal/api/handler/entries.go
package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/newthinker/fileboxes/internal/api/response"
	"github.com/newthinker/fileboxes/internal/codec"
	"github.com/newthinker/fileboxes/internal/core"
	"go.uber.org/zap"
)

// EntryView is the JSON form of a decoded entry.
type EntryView struct {
	Key   string    `json:"key"`
	Kind  core.Kind `json:"kind"`
	Value any       `json:"value"`
}

// ConfigSectionView is one INI section in an EntryView.
type ConfigSectionView struct {
	Name string            `json:"name"`
	Keys map[string]string `json:"keys"`
}

// ImageView describes an image entry; pixels are served with ?raw=true.
type ImageView struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

var complexHook = codec.ComplexHook()

func entryKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := r.PathValue("key")
	if key == "" {
		response.Fail(w, core.WrapError(core.ErrInvalidRequest, errors.New("empty entry key")))
		return "", false
	}
	return key, true
}

func viewOf(key string, v core.Value) (EntryView, error) {
	view := EntryView{Key: key, Kind: v.Kind()}
	switch val := v.(type) {
	case core.Structured:
		data, err := complexHook.PreEncode(val.Data)
		if err != nil {
			return view, err
		}
		view.Value = data
	case core.Text:
		view.Value = string(val)
	case *core.Config:
		sections := make([]ConfigSectionView, 0, len(val.Sections))
		for _, sec := range val.Sections {
			keys := make(map[string]string, len(sec.Keys))
			for _, k := range sec.Keys {
				keys[k.Name] = k.Value
			}
			sections = append(sections, ConfigSectionView{Name: sec.Name, Keys: keys})
		}
		view.Value = sections
	case core.Image:
		iv := ImageView{Format: val.Format}
		if iv.Format == "" {
			iv.Format = "png"
		}
		if val.Image != nil {
			b := val.Image.Bounds()
			iv.Width, iv.Height = b.Dx(), b.Dy()
		}
		view.Value = iv
	default:
		return view, core.WrapError(core.ErrUnsupportedType, fmt.Errorf("%T", v))
	}
	return view, nil
}

// List returns all entry names in archive order.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	keys, err := h.store.Keys()
	if err != nil {
		response.Fail(w, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"archive": h.store.Path(),
		"keys":    keys,
		"count":   len(keys),
	})
}

// Tree returns the entry tree, structured and rendered.
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tree, err := h.store.Tree()
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"tree":     tree,
		"rendered": tree.Render(),
	})
}

// Get returns the decoded entry, or its stored bytes with ?raw=true.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	key, ok := entryKey(w, r)
	if !ok {
		return
	}
	raw, _ := strconv.ParseBool(r.URL.Query().Get("raw"))

	h.mu.Lock()
	defer h.mu.Unlock()

	if raw {
		data, ok, err := h.store.ReadBytes(key)
		if err != nil {
			response.Fail(w, err)
			return
		}
		if !ok {
			response.Fail(w, core.WrapError(core.ErrEntryNotFound, errors.New(key)))
			return
		}
		response.Raw(w, "", data)
		return
	}

	v, ok, err := h.store.Read(key)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if !ok {
		response.Fail(w, core.WrapError(core.ErrEntryNotFound, errors.New(key)))
		return
	}
	view, err := viewOf(key, v)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, view)
}

// Put stores the request body under the key. ?kind= forces a kind;
// otherwise it resolves from the key and the body.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	key, ok := entryKey(w, r)
	if !ok {
		return
	}
	kind := core.Kind(r.URL.Query().Get("kind"))
	if kind == "auto" {
		kind = ""
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge, core.WrapError(core.ErrInvalidRequest, err))
			return
		}
		response.Fail(w, core.WrapError(core.ErrInvalidRequest, err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	v, err := h.store.Parse(key, kind, data)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if err := h.store.Write(key, v); err != nil {
		response.Fail(w, err)
		return
	}

	h.logger.Debug("entry stored over http", zap.String("key", key), zap.String("kind", string(v.Kind())))
	response.JSON(w, http.StatusOK, map[string]any{
		"key":  key,
		"kind": v.Kind(),
	})
}

// Delete removes the key. Deleting a missing key is a 404.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	key, ok := entryKey(w, r)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	found, err := h.store.Contains(key)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if !found {
		response.Fail(w, core.WrapError(core.ErrEntryNotFound, errors.New(key)))
		return
	}
	if err := h.store.Remove(key); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"key":     key,
		"removed": true,
	})
}
