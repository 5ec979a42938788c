// Package snapshot keeps point-in-time copies of archive files in a
// blob store, so a rewrite that goes wrong can be rolled back.
//
// Each snapshot is two blobs under snapshots/<id>/: the archive bytes,
// optionally compressed, and a CBOR manifest with size and BLAKE3
// digest. IDs are UUIDv7, so lexical order is creation order.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/fileboxes/internal/core"
	"github.com/newthinker/fileboxes/internal/metrics"
	"github.com/newthinker/fileboxes/internal/storage/blob"
	"go.uber.org/zap"
)

const (
	rootPrefix   = "snapshots/"
	manifestName = "manifest.cbor"
	blobName     = "archive.blob"
)

// MaxArchiveSize bounds the archive size a manifest may claim. Restore
// rejects larger sizes before allocating.
const MaxArchiveSize int64 = 4 << 30

// Recorder receives snapshot outcomes. *metrics.Registry implements it.
type Recorder interface {
	RecordSnapshot(action, status string, size int64)
}

type nopRecorder struct{}

func (nopRecorder) RecordSnapshot(string, string, int64) {}

// Manager takes, lists, restores and prunes snapshots.
type Manager struct {
	storage     blob.Storage
	compression Compression
	retain      int
	logger      *zap.Logger
	recorder    Recorder
	now         func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithCompression sets the algorithm used for new snapshots.
func WithCompression(c Compression) Option {
	return func(m *Manager) { m.compression = c }
}

// WithRetain keeps at most n snapshots after each hook-driven snapshot.
// Zero keeps everything.
func WithRetain(n int) Option {
	return func(m *Manager) { m.retain = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// New creates a manager over storage.
func New(storage blob.Storage, opts ...Option) *Manager {
	m := &Manager{
		storage:     storage,
		compression: CompressionZstd,
		logger:      zap.NewNop(),
		recorder:    nopRecorder{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Named("snapshot")
	return m
}

func manifestPath(id string) string { return path.Join(rootPrefix, id, manifestName) }
func blobPath(id string) string     { return path.Join(rootPrefix, id, blobName) }

// Take copies the archive at archivePath into the blob store.
func (m *Manager) Take(ctx context.Context, archivePath, reason string) (_ *Manifest, err error) {
	var size int64
	defer func() { m.recorder.RecordSnapshot("take", metrics.StatusFor(true, err), size) }()

	data, err := os.ReadFile(archivePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, core.WrapError(core.ErrArchiveNotFound, fmt.Errorf("%s", archivePath))
	}
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	size = int64(len(data))

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating snapshot id: %w", err)
	}

	stored, used, err := compress(data, m.compression)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(archivePath)
	if err != nil {
		abs = archivePath
	}
	man := &Manifest{
		ID:          id.String(),
		Archive:     abs,
		Reason:      reason,
		CreatedAt:   m.now().UTC(),
		Size:        size,
		StoredSize:  int64(len(stored)),
		Compression: used,
		Digest:      digest(data),
	}
	encoded, err := marshalManifest(man)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}

	// Blob first: a manifest never points at a missing blob.
	if err := m.storage.Write(ctx, blobPath(man.ID), stored); err != nil {
		return nil, fmt.Errorf("storing snapshot blob: %w", err)
	}
	if err := m.storage.Write(ctx, manifestPath(man.ID), encoded); err != nil {
		return nil, fmt.Errorf("storing snapshot manifest: %w", err)
	}

	m.logger.Info("snapshot taken",
		zap.String("id", man.ID),
		zap.String("archive", man.Archive),
		zap.String("reason", reason),
		zap.Int64("size", man.Size),
		zap.Int64("stored_size", man.StoredSize),
		zap.Stringer("compression", man.Compression),
	)
	return man, nil
}

// Get returns the manifest of one snapshot.
func (m *Manager) Get(ctx context.Context, id string) (*Manifest, error) {
	data, err := m.storage.Read(ctx, manifestPath(id))
	if errors.Is(err, blob.ErrNotFound) {
		return nil, core.WrapError(core.ErrSnapshotNotFound, fmt.Errorf("%s", id))
	}
	if err != nil {
		return nil, err
	}
	man, err := unmarshalManifest(data)
	if err != nil {
		return nil, core.WrapError(core.ErrSnapshotCorrupt, err)
	}
	return man, nil
}

// List returns all snapshots, oldest first.
func (m *Manager) List(ctx context.Context) ([]*Manifest, error) {
	paths, err := m.storage.List(ctx, rootPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	out := []*Manifest{}
	for _, p := range paths {
		if path.Base(p) != manifestName {
			continue
		}
		id := path.Base(path.Dir(p))
		man, err := m.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, man)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Restore writes snapshot id back to dest, or to the archive it was
// taken from when dest is empty. The content is verified against the
// manifest before dest is touched.
func (m *Manager) Restore(ctx context.Context, id, dest string) (_ *Manifest, err error) {
	var size int64
	defer func() { m.recorder.RecordSnapshot("restore", metrics.StatusFor(true, err), size) }()

	man, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	stored, err := m.storage.Read(ctx, blobPath(id))
	if errors.Is(err, blob.ErrNotFound) {
		return nil, core.WrapError(core.ErrSnapshotCorrupt, fmt.Errorf("%s: blob missing", id))
	}
	if err != nil {
		return nil, err
	}

	if err := checkSizes(man, stored); err != nil {
		return nil, core.WrapError(core.ErrSnapshotCorrupt, fmt.Errorf("%s: %w", id, err))
	}
	data, err := decompress(stored, man.Compression, man.Size)
	if err != nil {
		return nil, core.WrapError(core.ErrSnapshotCorrupt, err)
	}
	if got := digest(data); got != man.Digest {
		return nil, core.WrapError(core.ErrSnapshotCorrupt, fmt.Errorf("%s: digest %s, manifest %s", id, got, man.Digest))
	}

	if dest == "" {
		dest = man.Archive
	}
	if err := replaceFile(dest, data); err != nil {
		return nil, fmt.Errorf("restoring %s: %w", dest, err)
	}
	size = man.Size

	m.logger.Info("snapshot restored", zap.String("id", id), zap.String("dest", dest))
	return man, nil
}

func checkSizes(man *Manifest, stored []byte) error {
	if man.Size < 0 || man.Size > MaxArchiveSize {
		return fmt.Errorf("manifest size %d outside [0, %d]", man.Size, MaxArchiveSize)
	}
	if man.StoredSize != int64(len(stored)) {
		return fmt.Errorf("blob is %d bytes, manifest says %d", len(stored), man.StoredSize)
	}
	return nil
}

// Delete removes a snapshot.
func (m *Manager) Delete(ctx context.Context, id string) (err error) {
	defer func() { m.recorder.RecordSnapshot("delete", metrics.StatusFor(true, err), 0) }()

	if err := m.storage.Delete(ctx, manifestPath(id)); err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return core.WrapError(core.ErrSnapshotNotFound, fmt.Errorf("%s", id))
		}
		return err
	}
	if err := m.storage.Delete(ctx, blobPath(id)); err != nil && !errors.Is(err, blob.ErrNotFound) {
		return err
	}
	m.logger.Debug("snapshot deleted", zap.String("id", id))
	return nil
}

// Prune deletes all but the newest keep snapshots and returns the
// removed IDs.
func (m *Manager) Prune(ctx context.Context, keep int) ([]string, error) {
	if keep < 0 {
		return nil, fmt.Errorf("prune: keep must not be negative, got %d", keep)
	}
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) <= keep {
		return nil, nil
	}

	var removed []string
	for _, man := range all[:len(all)-keep] {
		if err := m.Delete(ctx, man.ID); err != nil {
			return removed, err
		}
		removed = append(removed, man.ID)
	}
	if len(removed) > 0 {
		m.logger.Debug("snapshots pruned", zap.Strings("ids", removed))
	}
	return removed, nil
}

// Hook returns a callback for store.WithBeforeRewrite: it snapshots the
// archive and prunes to the retention limit.
func (m *Manager) Hook(ctx context.Context) func(archivePath string) error {
	return func(archivePath string) error {
		if _, err := m.Take(ctx, archivePath, ReasonBeforeRewrite); err != nil {
			return err
		}
		if m.retain > 0 {
			if _, err := m.Prune(ctx, m.retain); err != nil {
				m.logger.Warn("pruning snapshots failed", zap.Error(err))
			}
		}
		return nil
	}
}

func replaceFile(dest string, data []byte) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(dest); err == nil {
		mode = info.Mode().Perm()
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+strings.TrimPrefix(filepath.Base(dest), ".")+".*.restore")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
