package handlers

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pawtrait-pals/pawtrait/internal/capture"
)

const tabCookie = "pawtrait_tab"

// tab is the server side of one browser tab's creation flow.
type tab struct {
	surface  *capture.Surface
	inbox    *capture.Inbox
	lastSeen atomic.Int64
}

func (t *tab) touch(now time.Time) {
	t.lastSeen.Store(now.UnixNano())
}

func (t *tab) idle(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, t.lastSeen.Load()))
}

// tabID returns the caller's tab ID, issuing a new cookie when it is missing
// or malformed.
func (h *Handler) tabID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(tabCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     tabCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// tabFor returns the tab for the request, creating its surface on first use.
// The capture strategy is fixed by the user agent that opened the tab.
func (h *Handler) tabFor(w http.ResponseWriter, r *http.Request) (string, *tab) {
	id := h.tabID(w, r)
	t := h.tabs.GetOrCreate(id, func() *tab {
		strategy := capture.SelectStrategy(r.UserAgent())
		inbox := &capture.Inbox{}
		slog.Debug("New tab", "tab_id", id, "strategy", strategy.Name())
		return &tab{
			inbox: inbox,
			surface: capture.NewSurface(strategy, h.encoder,
				capture.WithNotifier(inbox),
				capture.OnImageUpload(func(dataURL string) {
					slog.Info("Photo ready", "tab_id", id, "bytes", len(dataURL))
				}),
				capture.OnClear(func() {
					slog.Info("Photo removed", "tab_id", id)
				}),
			),
		}
	})
	t.touch(h.now())
	return id, t
}

// sweepTabs drops tabs that have not been used within the tab TTL. A tab
// that comes back afterwards starts over with an empty surface.
func (h *Handler) sweepTabs(now time.Time) {
	for id, t := range h.tabs.GetAll() {
		if t.idle(now) > h.tabTTL {
			h.tabs.Delete(id)
			slog.Debug("Expired tab", "tab_id", id)
		}
	}
}

func (h *Handler) tabSweepLoop() {
	interval := h.tabTTL / 2
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.sweepTabs(h.now())
		case <-h.done:
			return
		}
	}
}
