// internal/api/handler/snapshots.go
package handler

import (
	"net/http"

	"github.com/newthinker/fileboxes/internal/api/response"
	"github.com/newthinker/fileboxes/internal/snapshot"
)

// ListSnapshots returns all snapshots, oldest first.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	list, err := h.snapshots.List(r.Context())
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"snapshots": list,
		"count":     len(list),
	})
}

// TakeSnapshot snapshots the archive now.
func (h *Handler) TakeSnapshot(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	man, err := h.snapshots.Take(r.Context(), h.store.Path(), snapshot.ReasonManual)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, man)
}

// RestoreSnapshot replaces the served archive with a snapshot.
func (h *Handler) RestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	man, err := h.snapshots.Restore(r.Context(), r.PathValue("id"), h.store.Path())
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, man)
}

// DeleteSnapshot removes a snapshot.
func (h *Handler) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.snapshots.Delete(r.Context(), id); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"id":      id,
		"removed": true,
	})
}
