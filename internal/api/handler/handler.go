// internal/api/handler/handler.go
package handler

import (
	"sync"

	"github.com/newthinker/fileboxes/internal/snapshot"
	"github.com/newthinker/fileboxes/internal/store"
	"go.uber.org/zap"
)

// MaxBodyBytes caps uploaded entry payloads.
const MaxBodyBytes = 32 << 20

// Handler serves one archive over HTTP. The store is not safe for
// concurrent use, so every request holds mu for its whole duration.
type Handler struct {
	mu        sync.Mutex
	store     *store.Store
	snapshots *snapshot.Manager
	logger    *zap.Logger
}

// New creates a handler. snapshots may be nil, which disables the
// snapshot endpoints.
func New(st *store.Store, snapshots *snapshot.Manager, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: st, snapshots: snapshots, logger: logger}
}

// SnapshotsEnabled reports whether snapshot endpoints are served.
func (h *Handler) SnapshotsEnabled() bool {
	return h.snapshots != nil
}
