package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pawtrait-pals/pawtrait/internal/catalog"
)

func (h *Handler) HandleStyles(w http.ResponseWriter, r *http.Request) {
	species, err := catalog.ParseSpecies(r.URL.Query().Get("species"))
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	styles, err := h.catalog.Styles(species)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, styles)
}

// HandleStylePreview redirects to the preview image for a style name.
func (h *Handler) HandleStylePreview(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	url, ok := h.catalog.PreviewURL(name)
	if !ok {
		h.writeError(w, "No preview for style "+name, http.StatusNotFound)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *Handler) HandleBreeds(w http.ResponseWriter, r *http.Request) {
	species, err := catalog.ParseSpecies(r.URL.Query().Get("species"))
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	breeds, err := h.catalog.SearchBreeds(species, r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if breeds == nil {
		breeds = []string{}
	}
	h.writeJSON(w, breeds)
}
