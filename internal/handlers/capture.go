package handlers

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pawtrait-pals/pawtrait/internal/capture"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type createPage struct {
	State         capture.State
	Strategy      string
	Reason        string
	ImageURL      template.URL
	Width         int
	Height        int
	Browse        capture.Action
	Notifications []capture.Notification
}

type capturePage struct {
	Action       string
	ReturnTo     string
	Notification *capture.Notification
}

// HandleCreate renders the creation page. A photo waiting in the hand-off
// store for this tab is adopted before rendering, exactly once.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, t := h.tabFor(w, r)

	rec, err := h.handoff.Resume(r.Context(), id)
	if err != nil {
		slog.Error("Unable to read hand-off store", "tab_id", id, "err", err)
	} else if rec != nil {
		slog.Info("Adopting captured photo", "tab_id", id, "width", rec.PendingImage.Width, "height", rec.PendingImage.Height)
		img := rec.PendingImage
		t.surface.Adopt(&img)
	}

	snap := t.surface.Snapshot()
	page := createPage{
		State:         snap.State,
		Strategy:      snap.Strategy,
		Reason:        snap.Reason,
		Browse:        t.surface.Browse(r.URL.Path),
		Notifications: t.inbox.Drain(),
	}
	if snap.Image != nil && strings.HasPrefix(snap.Image.MIMEType, "image/") {
		// Our own encoder produced this data URL.
		page.ImageURL = template.URL(snap.Image.DataURL)
		page.Width = snap.Image.Width
		page.Height = snap.Image.Height
	}

	h.render(w, http.StatusOK, "create.html", page)
}

// HandleCapturePage renders the dedicated capture page.
func (h *Handler) HandleCapturePage(w http.ResponseWriter, r *http.Request) {
	h.tabID(w, r)
	returnTo := capture.SanitizeReturnTo(r.URL.Query().Get("returnTo"))
	h.renderCapture(w, http.StatusOK, returnTo, nil)
}

// HandleCaptureSubmit completes a remote capture: the photo is stored for
// this tab and the browser is sent back to the page it came from.
func (h *Handler) HandleCaptureSubmit(w http.ResponseWriter, r *http.Request) {
	id, t := h.tabFor(w, r)
	returnTo := capture.SanitizeReturnTo(r.URL.Query().Get("returnTo"))

	if err := parseUploadForm(w, r); err != nil {
		h.captureFailed(w, returnTo, err)
		return
	}
	if v := r.FormValue("returnTo"); v != "" {
		returnTo = capture.SanitizeReturnTo(v)
	}

	files := formFiles(r, "file", "files")
	if len(files) == 0 {
		h.captureFailed(w, returnTo, &capture.ValidationError{Err: capture.ErrNotImage})
		return
	}

	file, closer, err := openCandidate(files[0])
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer closer.Close()

	result, err := h.handoff.Complete(r.Context(), id, file, returnTo)
	if err != nil {
		h.captureFailed(w, returnTo, err)
		return
	}

	if result.Dropped {
		t.inbox.Notify(capture.Notification{
			Level:       capture.LevelWarning,
			Message:     "We couldn't keep that photo. Please try a smaller one.",
			Dismissible: true,
		})
	} else if result.Resized {
		slog.Info("Captured photo resized for hand-off", "tab_id", id, "width", result.Image.Width, "height", result.Image.Height)
	}

	http.Redirect(w, r, result.Destination, http.StatusSeeOther)
}

func (h *Handler) captureFailed(w http.ResponseWriter, returnTo string, err error) {
	var verr *capture.ValidationError
	if !errors.As(err, &verr) && !errors.Is(err, capture.ErrReadFailure) {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	slog.Info("Capture rejected", "err", err)
	n := capture.NotificationFor(err)
	h.renderCapture(w, statusFor(err), returnTo, &n)
}

func (h *Handler) renderCapture(w http.ResponseWriter, status int, returnTo string, n *capture.Notification) {
	q := url.Values{}
	q.Set("returnTo", returnTo)
	h.render(w, status, "capture.html", capturePage{
		Action:       capture.CapturePath + "?" + q.Encode(),
		ReturnTo:     returnTo,
		Notification: n,
	})
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("Unable to render page", "page", name, "err", err)
	}
}
