package asset

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

const maxUploadSize = 10 << 20 // 10MB

var allowedTypes = []string{"image/png", "image/jpeg", "image/webp"}

// Handler serves asset upload and retrieval endpoints.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Upload handles POST /assets/upload (multipart form with "file" field).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "file too large (max 10MB)", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowed(contentType) {
		http.Error(w, "only PNG, JPEG and WebP images are supported", http.StatusBadRequest)
		return
	}

	a, err := h.store.Save(file, header.Filename)
	if err != nil {
		if errors.Is(err, ErrInvalidImage) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("save asset", "error", err)
		http.Error(w, "failed to save file", http.StatusInternalServerError)
		return
	}

	slog.Info("asset uploaded", "asset", a.ID, "width", a.Width, "height", a.Height, "type", a.Type)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(a)
}

// Serve returns an http.Handler that serves stored asset files with caching headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.store.Dir()))
	return http.StripPrefix(URLPrefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Asset IDs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

// Delete handles DELETE /api/assets/{assetId}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(mux.Vars(r)["assetId"]); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "asset not found", http.StatusNotFound)
			return
		}
		slog.Error("delete asset", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func allowed(contentType string) bool {
	for _, t := range allowedTypes {
		if strings.HasPrefix(contentType, t) {
			return true
		}
	}
	return false
}
