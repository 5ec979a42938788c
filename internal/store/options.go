package store

import (
	"github.com/newthinker/fileboxes/internal/codec"
	"github.com/newthinker/fileboxes/internal/container"
	"go.uber.org/zap"
)

// Option configures a Store.
type Option func(*Store)

// WithFresh makes the first write truncate or create the archive instead
// of appending to what is already there.
func WithFresh(fresh bool) Option {
	return func(s *Store) { s.fresh = fresh }
}

// WithContainer replaces the ZIP container bound to the store path.
func WithContainer(c container.Container) Option {
	return func(s *Store) { s.container = c }
}

// WithCodecs replaces the default codec registry.
func WithCodecs(r *codec.Registry) Option {
	return func(s *Store) { s.codecs = r }
}

// WithLogger sets the logger. Operations log at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the sink for operation metrics.
func WithRecorder(r Recorder) Option {
	return func(s *Store) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithBeforeRewrite registers a hook run before any rewrite of an
// existing archive (remove or overwrite). An error aborts the mutation.
func WithBeforeRewrite(fn func(archivePath string) error) Option {
	return func(s *Store) { s.beforeRewrite = fn }
}

// Recorder receives operation outcomes. metrics.Registry implements it.
type Recorder interface {
	RecordOperation(op, status string, duration float64)
	RecordEntryBytes(op string, size int)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, string, float64) {}
func (nopRecorder) RecordEntryBytes(string, int)            {}
