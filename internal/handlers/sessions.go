package handlers

import (
	"bytes"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pawtrait-pals/pawtrait/internal/export"
	"github.com/pawtrait-pals/pawtrait/internal/models"
)

func (h *Handler) sessionList() []*models.PortraitSession {
	sessions := h.sessionStore.GetAll()
	sessionList := make([]*models.PortraitSession, 0, len(sessions))
	for _, session := range sessions {
		sessionList = append(sessionList, session)
	}
	sort.Slice(sessionList, func(i, j int) bool {
		return sessionList[i].CreatedAt.After(sessionList[j].CreatedAt)
	})
	return sessionList
}

func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.sessionList())
}

func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	h.writeJSON(w, session)
}

// HandleSessionDelete removes a session and its stored images.
func (h *Handler) HandleSessionDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	session, ok := h.getSessionOrError(w, sessionID)
	if !ok {
		return
	}

	resources := []string{session.Source.ImagePath}
	for _, p := range session.Portraits {
		resources = append(resources, p.ResourceID)
	}
	for _, id := range resources {
		if id == "" {
			continue
		}
		if err := h.uploader.Delete(r.Context(), id); err != nil {
			slog.Warn("Unable to delete stored image", "session_id", sessionID, "resource_id", id, "err", err)
		}
	}

	h.sessionStore.Delete(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSessionsExport streams every generated portrait as a parquet file.
func (h *Handler) HandleSessionsExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	rows, err := export.WriteParquet(&buf, h.sessionList())
	if err != nil {
		h.writeError(w, "Failed to export sessions: "+err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("Exported sessions", "rows", rows, "bytes", buf.Len())
	w.Header().Set("Content-Type", "application/vnd.apache.parquet")
	w.Header().Set("Content-Disposition", `attachment; filename="pawtrait-sessions.parquet"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Unable to write export", "err", err)
	}
}
