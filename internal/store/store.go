package store

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/newthinker/fileboxes/internal/codec"
	"github.com/newthinker/fileboxes/internal/container"
	"github.com/newthinker/fileboxes/internal/core"
	"github.com/newthinker/fileboxes/internal/format"
	"github.com/newthinker/fileboxes/internal/metrics"
	"go.uber.org/zap"
)

// Store reads and writes typed values in one archive.
type Store struct {
	path          string
	fresh         bool
	container     container.Container
	codecs        *codec.Registry
	logger        *zap.Logger
	recorder      Recorder
	beforeRewrite func(archivePath string) error
}

// New creates a store for the archive at path. Nothing is touched on
// disk until the first mutation.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:     path,
		codecs:   codec.Default(),
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.container == nil {
		s.container = container.NewZip(path)
	}
	s.logger = s.logger.With(zap.String("archive", path))
	return s
}

// Path returns the archive path.
func (s *Store) Path() string {
	return s.path
}

// Fresh reports whether the next write will truncate the archive.
func (s *Store) Fresh() bool {
	return s.fresh
}

// Create writes an empty archive now, replacing any existing one, and
// consumes the fresh flag.
func (s *Store) Create() (err error) {
	defer s.observe("create", time.Now(), true, &err)

	if err := s.container.Init(); err != nil {
		return err
	}
	s.fresh = false
	s.logger.Debug("archive created")
	return nil
}

// Put classifies v and writes it. Values outside the supported kinds
// fail with core.ErrUnsupportedType.
func (s *Store) Put(key string, v any) error {
	value, err := format.Classify(v)
	if err != nil {
		return err
	}
	return s.Write(key, value)
}

// Write encodes v with the codec of its kind and stores it under key,
// replacing any existing entry.
func (s *Store) Write(key string, v core.Value) (err error) {
	defer s.observe("write", time.Now(), true, &err)

	var kind core.Kind
	switch v.(type) {
	case core.Structured:
		kind = core.KindStructured
	case core.Text:
		kind = core.KindText
	case core.Image:
		kind = core.KindImage
	case *core.Config:
		kind = core.KindConfig
	default:
		return core.WrapError(core.ErrUnsupportedType, fmt.Errorf("%T", v))
	}

	c, err := s.codecs.Lookup(kind)
	if err != nil {
		return err
	}
	data, err := c.Encode(v)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", key, err)
	}
	if err := s.writeBytes(key, data); err != nil {
		return err
	}

	s.recorder.RecordEntryBytes("write", len(data))
	s.logger.Debug("entry written",
		zap.String("key", key),
		zap.String("kind", string(kind)),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Parse decodes raw bytes as kind, the way a read of key would. An
// empty kind resolves from the key's extension, then from the content.
func (s *Store) Parse(key string, kind core.Kind, data []byte) (core.Value, error) {
	if kind == "" {
		kind = format.Resolve(key, data)
	}
	if !kind.IsValid() {
		return nil, core.WrapError(core.ErrUnsupportedType, fmt.Errorf("kind %q", kind))
	}
	c, err := s.codecs.Lookup(kind)
	if err != nil {
		return nil, err
	}
	v, err := c.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %q as %s: %w", key, kind, err)
	}
	return v, nil
}

// Read decodes the entry stored under key. ok is false when the archive
// or the key is missing, and for config entries without a section
// header. Other decode failures are returned.
func (s *Store) Read(key string) (v core.Value, ok bool, err error) {
	start := time.Now()
	defer func() { s.observe("read", start, ok, &err) }()

	data, found, err := s.container.ReadEntry(key)
	if err != nil || !found {
		return nil, false, err
	}
	s.recorder.RecordEntryBytes("read", len(data))

	kind := format.Resolve(key, data)
	c, err := s.codecs.Lookup(kind)
	if err != nil {
		return nil, false, err
	}

	v, err = c.Decode(data)
	if errors.Is(err, core.ErrMissingSectionHeader) {
		s.logger.Debug("config entry has no section header", zap.String("key", key))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("decoding %q as %s: %w", key, kind, err)
	}
	return v, true, nil
}

// ReadBytes returns the raw bytes of an entry without decoding.
func (s *Store) ReadBytes(key string) (data []byte, ok bool, err error) {
	start := time.Now()
	defer func() { s.observe("read_bytes", start, ok, &err) }()

	return s.container.ReadEntry(key)
}

// Contains reports whether key is present. A missing archive contains
// nothing.
func (s *Store) Contains(key string) (found bool, err error) {
	start := time.Now()
	defer func() { s.observe("contains", start, found, &err) }()

	return s.contains(key)
}

// Keys returns all entry names in archive order.
func (s *Store) Keys() ([]string, error) {
	return s.container.Names()
}

// Remove deletes key by rewriting the archive without it. Removing a
// missing key, or from a missing archive, does nothing.
func (s *Store) Remove(key string) (err error) {
	found := false
	start := time.Now()
	defer func() { s.observe("remove", start, found, &err) }()

	if found, err = s.contains(key); err != nil || !found {
		return err
	}
	if err := s.removeEntry(key); err != nil {
		return err
	}
	s.logger.Debug("entry removed", zap.String("key", key))
	return nil
}

func (s *Store) contains(key string) (bool, error) {
	names, err := s.container.Names()
	if err != nil {
		return false, err
	}
	return slices.Contains(names, key), nil
}

func (s *Store) removeEntry(key string) error {
	if s.beforeRewrite != nil {
		if err := s.beforeRewrite(s.container.Path()); err != nil {
			return fmt.Errorf("before rewrite of %s: %w", s.container.Path(), err)
		}
	}
	return s.container.Rewrite(func(name string) bool { return name != key })
}

// writeBytes is the mutation primitive behind every writer. While the
// fresh flag is pending the archive is recreated holding only this entry
// and the flag is cleared. Otherwise an existing entry of the same name
// is removed before the bytes are appended.
func (s *Store) writeBytes(key string, data []byte) error {
	if s.fresh {
		if err := s.container.Create(key, data); err != nil {
			return err
		}
		s.fresh = false
		return nil
	}

	exists, err := s.container.Exists()
	if err != nil {
		return err
	}
	if exists {
		found, err := s.contains(key)
		if err != nil {
			return err
		}
		if found {
			if err := s.removeEntry(key); err != nil {
				return err
			}
		}
	}
	return s.container.Append(key, data)
}

func (s *Store) observe(op string, start time.Time, found bool, err *error) {
	s.recorder.RecordOperation(op, metrics.StatusFor(found, *err), time.Since(start).Seconds())
	if *err != nil {
		s.logger.Debug("operation failed", zap.String("op", op), zap.Error(*err))
	}
}
