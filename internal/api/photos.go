package api

import (
	"errors"
	"net/http"

	"github.com/erazemk/estatedesk/internal/storage"
)

// PhotosHandler serves photo bytes kept in the database storage.
type PhotosHandler struct {
	Storage storage.Storage
}

// Get handles GET /api/photos/{key...}.
func (h *PhotosHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !storage.ValidKey(key) {
		jsonError(w, http.StatusNotFound, codeNotFound, "photo not found")
		return
	}

	data, mime, err := h.Storage.Get(r.Context(), key)
	if errors.Is(err, storage.ErrNotExist) {
		jsonError(w, http.StatusNotFound, codeNotFound, "photo not found")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Keys are never reused, so the bytes behind one never change.
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	w.Write(data)
}
