package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/facegallery/facegallery/internal/gallery"
	"github.com/facegallery/facegallery/internal/imgutil"
	"github.com/facegallery/facegallery/internal/source"
)

// PhotosHandler serves photo metadata and image bytes. Photo IDs contain
// path separators, so image routes take the ID as a query parameter.
type PhotosHandler struct {
	holder *gallery.Holder
	src    source.Source
}

func NewPhotosHandler(holder *gallery.Holder, src source.Source) *PhotosHandler {
	return &PhotosHandler{holder: holder, src: src}
}

// List returns every photo in the snapshot, including those without faces.
func (h *PhotosHandler) List(w http.ResponseWriter, r *http.Request) {
	g := currentGallery(w, h.holder)
	if g == nil {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"photos": g.AllPhotos()})
}

// Get returns metadata for one photo.
func (h *PhotosHandler) Get(w http.ResponseWriter, r *http.Request) {
	g := currentGallery(w, h.holder)
	if g == nil {
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "id query parameter is required")
		return
	}

	photo, ok := g.Photo(id)
	if !ok {
		respondError(w, http.StatusNotFound, "photo not found")
		return
	}
	respondJSON(w, http.StatusOK, photo)
}

// Image streams the photo bytes. An optional size parameter scales the
// longer edge down while keeping aspect ratio.
func (h *PhotosHandler) Image(w http.ResponseWriter, r *http.Request) {
	g := currentGallery(w, h.holder)
	if g == nil {
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "id query parameter is required")
		return
	}
	if _, ok := g.Photo(id); !ok {
		respondError(w, http.StatusNotFound, "photo not found")
		return
	}

	data, err := h.src.Fetch(r.Context(), id)
	if err != nil {
		log.Printf("fetching photo %s failed: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusBadGateway, "photo source unavailable")
		return
	}

	if sizeParam := r.URL.Query().Get("size"); sizeParam != "" {
		size, err := strconv.Atoi(sizeParam)
		if err != nil || size < 1 {
			respondError(w, http.StatusBadRequest, "invalid size")
			return
		}
		resized, err := imgutil.Resize(data, size)
		if err != nil {
			log.Printf("resizing photo %s failed: %v", sanitizeForLog(id), err)
			respondError(w, http.StatusInternalServerError, "failed to resize photo")
			return
		}
		data = resized
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Similar returns photos with faces close to the given photo's faces.
func (h *PhotosHandler) Similar(w http.ResponseWriter, r *http.Request) {
	g := currentGallery(w, h.holder)
	if g == nil {
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "id query parameter is required")
		return
	}

	limit := 10
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		n, err := strconv.Atoi(limitParam)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	photos, err := g.Similar(id, limit)
	if err != nil {
		respondError(w, http.StatusNotFound, "photo not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"photos": photos})
}
