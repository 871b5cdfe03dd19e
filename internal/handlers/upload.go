package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pawtrait-pals/pawtrait/internal/capture"
	"github.com/pawtrait-pals/pawtrait/internal/images"
	"github.com/pawtrait-pals/pawtrait/internal/metrics"
)

// HandleUpload validates and encodes a photo without touching any tab state.
// It accepts a multipart "file" or a JSON body with an image_url.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	// Check if this is a JSON request with image URL
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		h.handleURLUpload(w, r)
		return
	}

	// Handle file upload
	h.handleFileUpload(w, r)
}

func (h *Handler) handleURLUpload(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ImageURL string `json:"image_url"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if request.ImageURL == "" {
		h.writeError(w, "image_url is required", http.StatusBadRequest)
		return
	}

	file, err := h.fetcher.Fetch(r.Context(), request.ImageURL)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, images.ErrUnsupportedURL) {
			status = http.StatusBadRequest
		}
		h.writeError(w, "Failed to process image URL: "+err.Error(), status)
		return
	}

	h.encodeAndRespond(w, r, file, "url")
}

func (h *Handler) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	if err := parseUploadForm(w, r); err != nil {
		if errors.Is(err, capture.ErrTooLarge) {
			metrics.Uploads.WithLabelValues("api", "rejected").Inc()
			h.writeNotification(w, statusFor(err), err)
			return
		}
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	files := formFiles(r, "file", "files")
	if len(files) == 0 {
		h.writeError(w, "Failed to read file: no file uploaded", http.StatusBadRequest)
		return
	}

	file, closer, err := openCandidate(files[0])
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer closer.Close()

	h.encodeAndRespond(w, r, file, "api")
}

func (h *Handler) encodeAndRespond(w http.ResponseWriter, r *http.Request, file capture.CandidateFile, path string) {
	if err := capture.Validate(file); err != nil {
		var verr *capture.ValidationError
		if errors.As(err, &verr) {
			metrics.Rejections.WithLabelValues(verr.Reason()).Inc()
		}
		metrics.Uploads.WithLabelValues(path, "rejected").Inc()
		h.writeNotification(w, statusFor(err), err)
		return
	}

	img, err := h.encoder.Encode(r.Context(), file)
	if err != nil {
		metrics.Uploads.WithLabelValues(path, "read_failure").Inc()
		h.writeNotification(w, statusFor(err), err)
		return
	}

	metrics.Uploads.WithLabelValues(path, "ok").Inc()
	h.writeJSON(w, map[string]any{
		"image": img,
	})
}
