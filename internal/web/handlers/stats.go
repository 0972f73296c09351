package handlers

import (
	"net/http"

	"github.com/facegallery/facegallery/internal/gallery"
)

// StatsHandler reports snapshot-level numbers for the gallery front page.
type StatsHandler struct {
	holder *gallery.Holder
	names  *gallery.Names
}

func NewStatsHandler(holder *gallery.Holder, names *gallery.Names) *StatsHandler {
	return &StatsHandler{holder: holder, names: names}
}

type statsResponse struct {
	gallery.Stats
	LabeledPeople int `json:"labeled_people"`
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	g := currentGallery(w, h.holder)
	if g == nil {
		return
	}

	resp := statsResponse{Stats: g.Stats()}
	if h.names != nil {
		resp.LabeledPeople = h.names.Count()
	}
	respondJSON(w, http.StatusOK, resp)
}
