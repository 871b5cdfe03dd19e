package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/pawtrait-pals/pawtrait/internal/capture"
)

// surfaceResponse is the surface snapshot plus notifications raised since
// the page last asked.
type surfaceResponse struct {
	capture.Snapshot
	Notification  *capture.Notification  `json:"notification,omitempty"`
	Notifications []capture.Notification `json:"notifications,omitempty"`
}

func (h *Handler) writeSurface(w http.ResponseWriter, t *tab) {
	resp := surfaceResponse{Snapshot: t.surface.Snapshot()}
	if pending := t.inbox.Drain(); len(pending) > 0 {
		resp.Notifications = pending
		resp.Notification = &pending[len(pending)-1]
	}
	h.writeJSON(w, resp)
}

func (h *Handler) HandleSurface(w http.ResponseWriter, r *http.Request) {
	_, t := h.tabFor(w, r)
	h.writeSurface(w, t)
}

func (h *Handler) HandleSurfaceClear(w http.ResponseWriter, r *http.Request) {
	_, t := h.tabFor(w, r)
	t.surface.Clear()
	h.writeSurface(w, t)
}

func (h *Handler) HandleDragEnter(w http.ResponseWriter, r *http.Request) {
	_, t := h.tabFor(w, r)
	t.surface.DragEnter()
	h.writeSurface(w, t)
}

func (h *Handler) HandleDragLeave(w http.ResponseWriter, r *http.Request) {
	_, t := h.tabFor(w, r)
	t.surface.DragLeave()
	h.writeSurface(w, t)
}

// HandleBrowse reports how the page should start a capture gesture.
func (h *Handler) HandleBrowse(w http.ResponseWriter, r *http.Request) {
	_, t := h.tabFor(w, r)
	returnTo := r.URL.Query().Get("returnTo")
	if returnTo == "" {
		returnTo = capture.DefaultReturnTo
	}
	h.writeJSON(w, t.surface.Browse(returnTo))
}

// HandleSelect accepts a photo chosen through the in-page picker.
func (h *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	id, t := h.tabFor(w, r)
	if !h.parseSurfaceForm(w, r, t) {
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

	h.logSurfaceErr(id, t.surface.Select(r.Context(), file))
	h.writeSurface(w, t)
}

// HandleDrop accepts the first file of a drop and ignores the rest. A drop
// with no files just ends the drag.
func (h *Handler) HandleDrop(w http.ResponseWriter, r *http.Request) {
	id, t := h.tabFor(w, r)
	if !h.parseSurfaceForm(w, r, t) {
		return
	}

	var files []capture.CandidateFile
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	for _, fh := range formFiles(r, "files", "file") {
		file, closer, err := openCandidate(fh)
		if err != nil {
			h.writeError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		files = append(files, file)
		closers = append(closers, closer)
	}

	h.logSurfaceErr(id, t.surface.Drop(r.Context(), files))
	h.writeSurface(w, t)
}

// parseSurfaceForm parses the upload form. An oversized body becomes a
// notification on the tab and the current snapshot is returned.
func (h *Handler) parseSurfaceForm(w http.ResponseWriter, r *http.Request, t *tab) bool {
	err := parseUploadForm(w, r)
	switch {
	case err == nil:
		return true
	case errors.Is(err, capture.ErrTooLarge):
		t.surface.DragLeave()
		t.inbox.Notify(capture.NotificationFor(err))
		h.writeSurface(w, t)
	default:
		h.writeError(w, err.Error(), http.StatusBadRequest)
	}
	return false
}

func (h *Handler) logSurfaceErr(tabID string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, capture.ErrStale):
		slog.Debug("Discarded stale capture", "tab_id", tabID)
	default:
		slog.Info("Capture rejected", "tab_id", tabID, "err", err)
	}
}
