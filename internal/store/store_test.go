package store

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/newthinker/fileboxes/internal/container"
	"github.com/newthinker/fileboxes/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "box.zip"), opts...)
}

func opaqueImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			img.Set(x, y, color.RGBA{R: uint8(50 * x), G: uint8(100 * y), B: 7, A: 255})
		}
	}
	return img
}

func sampleConfig() *core.Config {
	cfg := core.NewConfig()
	cfg.Set("server", "host", "localhost")
	cfg.Set("server", "port", "8080")
	cfg.Set("auth", "enabled", "true")
	return cfg
}

func quotingConfig() *core.Config {
	cfg := core.NewConfig()
	cfg.Set("DEFAULT", "k", "plain")
	cfg.Set("s", "quoted", `"quoted"`)
	cfg.Set("s", "triple", `"""`)
	cfg.Set("s", "comment", "a ; b")
	cfg.Set("s", "lines", "one\n two")
	return cfg
}

func countNames(t *testing.T, s *Store, key string) int {
	t.Helper()
	names, err := s.Keys()
	require.NoError(t, err)
	n := 0
	for _, name := range names {
		if name == key {
			n++
		}
	}
	return n
}

func TestStore_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value core.Value
	}{
		{"structured map", "data.json", core.Structured{Data: map[string]any{"a": 1, "b": []any{1, 2, 3}}}},
		{"structured sequence", "list", core.Structured{Data: []any{"x", 1.5, false}}},
		{"text", "notes/today.txt", core.Text("buy milk\n")},
		{"config", "app.config", sampleConfig()},
		{"config sniffed as text", "app.ini", core.Text("[s]\nk = v\n")},
		{"config with quoting", "quoting.config", quotingConfig()},
		{"trailing comma text", "csv-ish", core.Text("[1, 2,]")},
		{"commented object text", "note", core.Text("{} // note")},
		{"commented array text", "arr", core.Text("/* c */ [1]")},
		{"complex leaf", "z", core.Structured{Data: map[string]any{"z": complex(3, 4)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			require.NoError(t, s.Write(tt.key, tt.value))

			got, ok, err := s.Read(tt.key)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestStore_NilContainersStayStructured(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil map", map[string]any(nil), map[string]any{}},
		{"nil slice", []int(nil), []any{}},
		{"nested nil", map[string]any{"m": map[string]int(nil), "s": []string(nil)}, map[string]any{"m": map[string]any{}, "s": []any{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			require.NoError(t, s.Put("k", tt.in))

			got, ok, err := s.Read("k")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, core.Structured{Data: tt.want}, got)
		})
	}
}

func TestStore_ImageRoundTrip(t *testing.T) {
	for _, key := range []string{"logo.png", "logo"} {
		t.Run(key, func(t *testing.T) {
			s := newTestStore(t)
			src := opaqueImage()
			require.NoError(t, s.Put(key, src))

			got, ok, err := s.Read(key)
			require.NoError(t, err)
			require.True(t, ok)

			img := got.(core.Image)
			assert.Equal(t, "png", img.Format)
			assert.Equal(t, src.Bounds(), img.Image.Bounds())
			for y := 0; y < 2; y++ {
				for x := 0; x < 3; x++ {
					assert.Equal(t, color.RGBAModel.Convert(src.At(x, y)), color.RGBAModel.Convert(img.Image.At(x, y)))
				}
			}
		})
	}
}

func TestStore_PutClassifies(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Put("m", map[string]any{"k": "v"}))
	require.NoError(t, s.Put("s", "plain words"))

	v, ok, err := s.Read("m")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.Structured{Data: map[string]any{"k": "v"}}, v)

	v, ok, err = s.Read("s")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.Text("plain words"), v)
}

func TestStore_UnsupportedType(t *testing.T) {
	s := newTestStore(t)

	err := s.Put("n", 42)
	assert.ErrorIs(t, err, core.ErrUnsupportedType)

	err = s.Write("n", nil)
	assert.ErrorIs(t, err, core.ErrUnsupportedType)

	exists, err := container.NewZip(s.Path()).Exists()
	require.NoError(t, err)
	assert.False(t, exists, "a rejected write must not create the archive")
}

func TestStore_OverwriteKeepsOneEntry(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put("other", "x"))
	require.NoError(t, s.Put("k.json", map[string]any{"v": "A"}))
	require.NoError(t, s.Put("k.json", map[string]any{"v": "B"}))

	got, ok, err := s.Read("k.json")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.Structured{Data: map[string]any{"v": "B"}}, got)
	assert.Equal(t, 1, countNames(t, s, "k.json"))
	assert.Equal(t, 1, countNames(t, s, "other"))
}

func TestStore_ReadMisses(t *testing.T) {
	s := newTestStore(t)

	v, ok, err := s.Read("anything")
	require.NoError(t, err, "missing archive is not an error")
	assert.False(t, ok)
	assert.Nil(t, v)

	require.NoError(t, s.Put("present", "x"))
	v, ok, err = s.Read("absent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestStore_ConfigWithoutSectionIsAbsent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put("bad.config", "key = value\nother = 2\n"))

	v, ok, err := s.Read("bad.config")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestStore_ForcedFormatDecodeError(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put("broken.json", "this is not json"))

	_, ok, err := s.Read("broken.json")
	assert.False(t, ok)
	assert.ErrorIs(t, err, core.ErrDecode)
}

func TestStore_ExtensionBeatsSniff(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put("fake", opaqueImage()))
	raw, ok, err := s.ReadBytes("fake")
	require.NoError(t, err)
	require.True(t, ok)

	// Image bytes under a .json key go to the structured codec.
	require.NoError(t, s.WithStream("fake.json", ModeWrite, func(es *EntryStream) error {
		_, err := es.Write(raw)
		return err
	}))
	_, _, err = s.Read("fake.json")
	assert.ErrorIs(t, err, core.ErrDecode)

	require.NoError(t, s.Put("real.json", []any{1, 2}))
	v, ok, err := s.Read("real.json")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.KindStructured, v.Kind())
}

func TestStore_SniffFallback(t *testing.T) {
	s := newTestStore(t)
	writeRaw := func(key, content string) {
		require.NoError(t, s.WithStream(key, ModeWrite, func(es *EntryStream) error {
			_, err := es.Write([]byte(content))
			return err
		}))
	}
	writeRaw("obj", `{"a": [1, 2]}`)
	writeRaw("txt", "hello")

	v, ok, err := s.Read("obj")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.Structured{Data: map[string]any{"a": []any{1, 2}}}, v)

	v, ok, err = s.Read("txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.Text("hello"), v)
}

func TestStore_Remove(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Remove("nothing"), "remove on missing archive is a no-op")

	require.NoError(t, s.Put("a", "1"))
	require.NoError(t, s.Put("b", "2"))

	require.NoError(t, s.Remove("a"))
	once, err := s.Keys()
	require.NoError(t, err)

	require.NoError(t, s.Remove("a"))
	twice, err := s.Keys()
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, once)
	assert.Equal(t, once, twice)
}

func TestStore_Contains(t *testing.T) {
	s := newTestStore(t)

	found, err := s.Contains("k")
	require.NoError(t, err)
	assert.False(t, found, "nonexistent archive")

	require.NoError(t, s.Put("other", "x"))
	found, err = s.Contains("k")
	require.NoError(t, err)
	assert.False(t, found, "absent key")

	require.NoError(t, s.Put("k", "v"))
	found, err = s.Contains("k")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestStore_FreshFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "box.zip")
	require.NoError(t, New(path).Put("old", "stale"))

	s := New(path, WithFresh(true))
	assert.True(t, s.Fresh())

	require.NoError(t, s.Put("first", "1"))
	assert.False(t, s.Fresh(), "flag is consumed by the first write")
	require.NoError(t, s.Put("second", "2"))

	names, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, names)
}

func TestStore_AppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "box.zip")
	require.NoError(t, New(path).Put("old", "kept"))

	s := New(path)
	require.NoError(t, s.Put("new", "added"))

	names, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "new"}, names)
}

func TestStore_Create(t *testing.T) {
	path := filepath.Join(t.TempDir(), "box.zip")
	require.NoError(t, New(path).Put("old", "x"))

	s := New(path, WithFresh(true))
	require.NoError(t, s.Create())
	assert.False(t, s.Fresh())

	names, err := s.Keys()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestStore_BeforeRewriteHook(t *testing.T) {
	var calls []string
	s := newTestStore(t, WithBeforeRewrite(func(p string) error {
		calls = append(calls, p)
		return nil
	}))

	require.NoError(t, s.Put("k", "1"))
	assert.Empty(t, calls, "plain append needs no rewrite")

	require.NoError(t, s.Put("k", "2"))
	require.NoError(t, s.Remove("k"))
	assert.Equal(t, []string{s.Path(), s.Path()}, calls)
}

func TestStore_BeforeRewriteHookAborts(t *testing.T) {
	boom := errors.New("snapshot failed")
	s := newTestStore(t, WithBeforeRewrite(func(string) error { return boom }))

	require.NoError(t, s.Put("k", "1"))
	err := s.Remove("k")
	assert.ErrorIs(t, err, boom)

	found, err := s.Contains("k")
	require.NoError(t, err)
	assert.True(t, found, "aborted remove leaves the entry")
}

func TestStore_ContainerErrorsSurface(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	s := New(path)

	_, _, err := s.Read("k")
	assert.Error(t, err)

	_, err = s.Contains("k")
	assert.Error(t, err)
}

type recordingRecorder struct {
	ops []string
}

func (r *recordingRecorder) RecordOperation(op, status string, _ float64) {
	r.ops = append(r.ops, op+":"+status)
}
func (r *recordingRecorder) RecordEntryBytes(string, int) {}

func TestStore_RecordsOperations(t *testing.T) {
	rec := &recordingRecorder{}
	s := newTestStore(t, WithRecorder(rec))

	_, _, _ = s.Read("k")
	require.NoError(t, s.Put("k", "v"))
	_, _, _ = s.Read("k")
	_ = s.Write("bad", nil)

	assert.Equal(t, []string{"read:miss", "write:ok", "read:ok", "write:error"}, rec.ops)
}

func TestStore_Scenario(t *testing.T) {
	s := newTestStore(t)

	data := map[string]any{"a": 1, "b": []any{1, 2, 3}}
	require.NoError(t, s.Put("data.json", data))
	require.NoError(t, s.Put("z", map[string]any{"z": 3 + 4i}))
	require.NoError(t, s.Put("bad.config", "no header here = 1"))

	v, ok, err := s.Read("data.json")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, data, v.(core.Structured).Data)

	v, ok, err = s.Read("z")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"z": 3 + 4i}, v.(core.Structured).Data)

	_, ok, err = s.Read("bad.config")
	require.NoError(t, err)
	assert.False(t, ok)

	names, err := s.Keys()
	require.NoError(t, err)
	assert.True(t, slices.Contains(names, "bad.config"))
}

func TestStore_Parse(t *testing.T) {
	s := newTestStore(t)

	v, err := s.Parse("a.json", "", []byte(`{"x": 1}`))
	require.NoError(t, err)
	assert.Equal(t, core.Structured{Data: map[string]any{"x": 1}}, v)

	v, err = s.Parse("a.json", core.KindText, []byte(`{"x": 1}`))
	require.NoError(t, err)
	assert.Equal(t, core.Text(`{"x": 1}`), v)

	v, err = s.Parse("noext", "", []byte("[s]\nk = v\n"))
	require.NoError(t, err)
	assert.Equal(t, core.KindText, v.Kind(), "config needs an extension")

	_, err = s.Parse("a.config", "", []byte("k = v"))
	assert.ErrorIs(t, err, core.ErrMissingSectionHeader)

	_, err = s.Parse("k", core.Kind("bogus"), []byte("x"))
	assert.ErrorIs(t, err, core.ErrUnsupportedType)

	found, err := s.Contains("a.json")
	require.NoError(t, err)
	assert.False(t, found, "parse never writes")
}
