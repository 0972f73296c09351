package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/facegallery/facegallery/internal/gallery"
)

// PeopleHandler serves the clustered identities.
type PeopleHandler struct {
	holder *gallery.Holder
	names  *gallery.Names
	thumbs *gallery.Thumbnailer
}

func NewPeopleHandler(holder *gallery.Holder, names *gallery.Names, thumbs *gallery.Thumbnailer) *PeopleHandler {
	return &PeopleHandler{holder: holder, names: names, thumbs: thumbs}
}

// currentGallery resolves the active projection, responding 503 when no
// snapshot has been computed yet.
func currentGallery(w http.ResponseWriter, holder *gallery.Holder) *gallery.Gallery {
	g := holder.Get()
	if g == nil {
		respondError(w, http.StatusServiceUnavailable, "no processed photos yet, run processing first")
		return nil
	}
	return g
}

// personID parses the {id} route parameter.
func personID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

// List returns all people, most photographed first. An optional name query
// filters by label, ignoring case and diacritics.
func (h *PeopleHandler) List(w http.ResponseWriter, r *http.Request) {
	g := currentGallery(w, h.holder)
	if g == nil {
		return
	}

	if query := r.URL.Query().Get("name"); query != "" {
		respondJSON(w, http.StatusOK, map[string]any{"people": g.FindPeople(query)})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"people": g.People()})
}

// Get returns a single person.
func (h *PeopleHandler) Get(w http.ResponseWriter, r *http.Request) {
	g := currentGallery(w, h.holder)
	if g == nil {
		return
	}

	id, err := personID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid person id")
		return
	}

	person, err := g.Person(id)
	if errors.Is(err, gallery.ErrUnknownPerson) {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}
	respondJSON(w, http.StatusOK, person)
}

// Photos returns every photo a person appears in.
func (h *PeopleHandler) Photos(w http.ResponseWriter, r *http.Request) {
	g := currentGallery(w, h.holder)
	if g == nil {
		return
	}

	id, err := personID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid person id")
		return
	}

	photos, err := g.PhotosFor(id)
	if errors.Is(err, gallery.ErrUnknownPerson) {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"photos": photos})
}

// Thumb renders the person's face crop as JPEG.
func (h *PeopleHandler) Thumb(w http.ResponseWriter, r *http.Request) {
	g := currentGallery(w, h.holder)
	if g == nil {
		return
	}

	id, err := personID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid person id")
		return
	}

	data, err := h.thumbs.PersonThumb(r.Context(), g, id)
	if errors.Is(err, gallery.ErrUnknownPerson) {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}
	if err != nil {
		log.Printf("thumbnail for person %d failed: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to render thumbnail")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

type updateNameRequest struct {
	Name string `json:"name"`
}

// UpdateName labels a person. Labels live beside the snapshot and die with
// it when the cache is recomputed from scratch.
func (h *PeopleHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	g := currentGallery(w, h.holder)
	if g == nil {
		return
	}

	id, err := personID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid person id")
		return
	}

	if _, err := g.Person(id); errors.Is(err, gallery.ErrUnknownPerson) {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}

	var req updateNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if err := h.names.Set(id, req.Name); err != nil {
		log.Printf("saving name for person %d failed: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to save name")
		return
	}

	person, _ := g.Person(id)
	respondJSON(w, http.StatusOK, person)
}
