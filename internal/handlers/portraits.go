package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pawtrait-pals/pawtrait/internal/capture"
	"github.com/pawtrait-pals/pawtrait/internal/catalog"
	"github.com/pawtrait-pals/pawtrait/internal/models"
	"github.com/pawtrait-pals/pawtrait/internal/portrait"
	"github.com/pawtrait-pals/pawtrait/internal/storage"
)

type portraitRequest struct {
	// Image is a data URL. When empty the tab's current photo is used.
	Image    string   `json:"image"`
	PetName  string   `json:"pet_name"`
	Species  string   `json:"species"`
	Breed    string   `json:"breed"`
	StyleIDs []string `json:"style_ids"`
	Provider string   `json:"provider"`
	Model    string   `json:"model"`
}

// HandlePortraits generates portraits for the chosen styles and records the
// session.
func (h *Handler) HandlePortraits(w http.ResponseWriter, r *http.Request) {
	var request portraitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 2*capture.MaxImageBytes)).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	species, err := catalog.ParseSpecies(request.Species)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	tabID, t := h.tabFor(w, r)
	img, err := h.sourceImage(request.Image, t)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := img.Bytes()
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := capture.Validate(capture.CandidateFile{MIMEType: img.MIMEType, Size: int64(len(data))}); err != nil {
		h.writeNotification(w, statusFor(err), err)
		return
	}

	provider, model := h.portraits.Resolve(request.Provider, request.Model)
	slog.Info("Generating portraits", "tab_id", tabID, "species", species, "styles", len(request.StyleIDs), "provider", provider, "model", model)

	portraits, err := h.portraits.Generate(r.Context(), portrait.Request{
		Image:    data,
		MIMEType: img.MIMEType,
		Species:  species,
		Breed:    request.Breed,
		StyleIDs: request.StyleIDs,
		Provider: provider,
		Model:    model,
	})
	switch {
	case errors.Is(err, portrait.ErrNoStyles), errors.Is(err, portrait.ErrUnknownStyle), errors.Is(err, portrait.ErrUnknownProvider):
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.writeError(w, "Failed to generate portraits: "+err.Error(), http.StatusInternalServerError)
		return
	}

	source := models.ImageItem{
		MIMEType:    img.MIMEType,
		ImageWidth:  img.Width,
		ImageHeight: img.Height,
	}
	filename := storage.ContentName(data, img.MIMEType)
	if url, resourceID, err := h.uploader.Upload(r.Context(), data, img.MIMEType, filename); err != nil {
		// Don't fail the session, the portraits are already stored
		slog.Error("Unable to store source photo", "err", err)
	} else {
		source.ImagePath = resourceID
		source.ImageURL = url
	}

	session := &models.PortraitSession{
		ID:        uuid.NewString(),
		TabID:     tabID,
		PetName:   request.PetName,
		Species:   string(species),
		Breed:     request.Breed,
		Source:    source,
		Portraits: portraits,
		Provider:  provider,
		Model:     model,
		CreatedAt: time.Now(),
	}
	h.sessionStore.Set(session.ID, session)

	h.writeJSONStatus(w, http.StatusCreated, session)
}

func (h *Handler) sourceImage(dataURL string, t *tab) (*capture.EncodedImage, error) {
	if dataURL != "" {
		return capture.ParseDataURL(dataURL)
	}
	if img := t.surface.Snapshot().Image; img != nil {
		return img, nil
	}
	return nil, errors.New("a photo is required")
}
