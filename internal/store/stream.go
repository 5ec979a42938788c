package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/newthinker/fileboxes/internal/core"
	"go.uber.org/zap"
)

// Mode selects how an EntryStream treats existing content.
type Mode string

const (
	// ModeRead preloads the entry; writes are rejected and nothing is
	// committed on close.
	ModeRead Mode = "r"
	// ModeWrite starts from an empty buffer and replaces the entry on close.
	ModeWrite Mode = "w"
	// ModeAppend preloads the entry, positions at its end and replaces
	// the entry on close.
	ModeAppend Mode = "a"
)

// ParseMode accepts r, w and a, optionally suffixed with b.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "r", "rb":
		return ModeRead, nil
	case "w", "wb":
		return ModeWrite, nil
	case "a", "ab":
		return ModeAppend, nil
	}
	return "", core.WrapError(core.ErrInvalidMode, fmt.Errorf("%q", s))
}

// EntryStream is a buffered, seekable view of one entry. The container
// gives no random access into a member, so the whole entry lives in
// memory and is written back as a full replace on Close.
type EntryStream struct {
	store   *Store
	key     string
	mode    Mode
	buf     []byte
	pos     int
	existed bool
	closed  bool
}

var (
	_ io.ReadWriteSeeker = (*EntryStream)(nil)
	_ io.Closer          = (*EntryStream)(nil)
)

// OpenStream binds a stream to key. In read and append mode the current
// entry is loaded when it exists; a missing entry reads as empty.
func (s *Store) OpenStream(key string, mode Mode) (*EntryStream, error) {
	switch mode {
	case ModeRead, ModeWrite, ModeAppend:
	default:
		return nil, core.WrapError(core.ErrInvalidMode, fmt.Errorf("%q", mode))
	}

	es := &EntryStream{store: s, key: key, mode: mode}
	if mode != ModeWrite {
		data, ok, err := s.container.ReadEntry(key)
		if err != nil {
			return nil, err
		}
		es.buf, es.existed = data, ok
	}
	if mode == ModeAppend {
		es.pos = len(es.buf)
	}

	s.logger.Debug("stream opened",
		zap.String("key", key),
		zap.String("mode", string(mode)),
		zap.Bool("existed", es.existed),
	)
	return es, nil
}

// WithStream opens a stream, runs fn and always closes it, committing
// the buffer even when fn fails or panics. Errors from fn and Close are
// joined.
func (s *Store) WithStream(key string, mode Mode, fn func(*EntryStream) error) (err error) {
	es, err := s.OpenStream(key, mode)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := es.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(es)
}

// Key returns the entry name the stream is bound to.
func (e *EntryStream) Key() string { return e.key }

// Mode returns the open mode.
func (e *EntryStream) Mode() Mode { return e.mode }

// Existed reports whether the entry was present when the stream opened.
func (e *EntryStream) Existed() bool { return e.existed }

// Len returns the buffer length.
func (e *EntryStream) Len() int { return len(e.buf) }

// Bytes returns the current buffer. It aliases the stream's storage.
func (e *EntryStream) Bytes() []byte { return e.buf }

// Read implements io.Reader.
func (e *EntryStream) Read(p []byte) (int, error) {
	if e.closed {
		return 0, core.ErrStreamClosed
	}
	if e.pos >= len(e.buf) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, e.buf[e.pos:])
	e.pos += n
	return n, nil
}

// ReadN reads up to size bytes, or everything left when size is
// negative. At end of buffer it returns io.EOF.
func (e *EntryStream) ReadN(size int) ([]byte, error) {
	if e.closed {
		return nil, core.ErrStreamClosed
	}
	remaining := len(e.buf) - e.pos
	if remaining <= 0 && size != 0 {
		return nil, io.EOF
	}
	if size < 0 || size > remaining {
		size = remaining
	}
	out := make([]byte, size)
	copy(out, e.buf[e.pos:e.pos+size])
	e.pos += size
	return out, nil
}

// ReadLine returns the next line including its trailing newline, if any.
func (e *EntryStream) ReadLine() ([]byte, error) {
	if e.closed {
		return nil, core.ErrStreamClosed
	}
	if e.pos >= len(e.buf) {
		return nil, io.EOF
	}
	rest := e.buf[e.pos:]
	n := len(rest)
	if i := bytes.IndexByte(rest, '\n'); i >= 0 {
		n = i + 1
	}
	line := make([]byte, n)
	copy(line, rest[:n])
	e.pos += n
	return line, nil
}

// Write implements io.Writer, overwriting from the current position and
// growing the buffer as needed.
func (e *EntryStream) Write(p []byte) (int, error) {
	if e.closed {
		return 0, core.ErrStreamClosed
	}
	if e.mode == ModeRead {
		return 0, core.ErrReadOnly
	}
	end := e.pos + len(p)
	if end > len(e.buf) {
		e.buf = append(e.buf[:e.pos], p...)
	} else {
		copy(e.buf[e.pos:], p)
	}
	e.pos = end
	return len(p), nil
}

// Seek implements io.Seeker. Positions outside [0, Len()] fail with
// core.ErrSeekOutOfRange.
func (e *EntryStream) Seek(offset int64, whence int) (int64, error) {
	if e.closed {
		return 0, core.ErrStreamClosed
	}
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(e.pos)
	case io.SeekEnd:
		base = int64(len(e.buf))
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	target := base + offset
	if target < 0 || target > int64(len(e.buf)) {
		return 0, core.WrapError(core.ErrSeekOutOfRange, fmt.Errorf("position %d, length %d", target, len(e.buf)))
	}
	e.pos = int(target)
	return target, nil
}

// Tell returns the current position.
func (e *EntryStream) Tell() int64 {
	return int64(e.pos)
}

// Flush does nothing: content reaches the archive only on Close, as a
// full rewrite.
func (e *EntryStream) Flush() error {
	if e.closed {
		return core.ErrStreamClosed
	}
	return nil
}

// Close commits the buffer in write and append mode. Further calls are
// no-ops.
func (e *EntryStream) Close() (err error) {
	if e.closed {
		return nil
	}
	e.closed = true
	if e.mode == ModeRead {
		return nil
	}

	s := e.store
	defer s.observe("stream_commit", time.Now(), true, &err)

	if err := s.writeBytes(e.key, e.buf); err != nil {
		return fmt.Errorf("committing stream %q: %w", e.key, err)
	}
	s.recorder.RecordEntryBytes("stream_commit", len(e.buf))
	s.logger.Debug("stream committed", zap.String("key", e.key), zap.Int("bytes", len(e.buf)))
	return nil
}
