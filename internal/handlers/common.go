package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pawtrait-pals/pawtrait/internal/auth"
	"github.com/pawtrait-pals/pawtrait/internal/capture"
	"github.com/pawtrait-pals/pawtrait/internal/catalog"
	"github.com/pawtrait-pals/pawtrait/internal/config"
	"github.com/pawtrait-pals/pawtrait/internal/images"
	"github.com/pawtrait-pals/pawtrait/internal/models"
	"github.com/pawtrait-pals/pawtrait/internal/portrait"
	"github.com/pawtrait-pals/pawtrait/internal/storage"
)

type Handler struct {
	cfg          *config.Config
	catalog      *catalog.Catalog
	uploader     storage.ImageUploader
	sessionStore *storage.Store[*models.PortraitSession]
	tabs         *storage.Store[*tab]
	encoder      *capture.Encoder
	handoffStore capture.HandoffStore
	handoff      *capture.Handoff
	portraits    *portrait.Service
	fetcher      *images.Fetcher
	authorizer   auth.Authorizer
	staticDir    string
	tabTTL       time.Duration
	now          func() time.Time
	done         chan struct{}
	closeOnce    sync.Once
}

type Option func(*Handler)

// WithHandoffStore replaces the in-memory hand-off store.
func WithHandoffStore(s capture.HandoffStore) Option {
	return func(h *Handler) {
		h.handoffStore = s
	}
}

// WithPortraitService replaces the portrait generation service.
func WithPortraitService(s *portrait.Service) Option {
	return func(h *Handler) {
		h.portraits = s
	}
}

// WithAuthorizer replaces the token authorizer built from the config.
func WithAuthorizer(a auth.Authorizer) Option {
	return func(h *Handler) {
		h.authorizer = a
	}
}

// WithStaticDir sets the directory served under /static/.
func WithStaticDir(dir string) Option {
	return func(h *Handler) {
		h.staticDir = dir
	}
}

func withClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
	}
}

func New(cfg *config.Config, cat *catalog.Catalog, uploader storage.ImageUploader, opts ...Option) *Handler {
	h := &Handler{
		cfg:          cfg,
		catalog:      cat,
		uploader:     uploader,
		sessionStore: storage.New[*models.PortraitSession](),
		tabs:         storage.New[*tab](),
		encoder:      capture.NewEncoder(cfg.ReadTimeout),
		fetcher:      images.NewFetcher(),
		staticDir:    "static",
		tabTTL:       cfg.TabTTL,
		now:          time.Now,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.handoffStore == nil {
		h.handoffStore = capture.NewMemoryHandoffStore(
			capture.WithQuota(cfg.HandoffQuota),
			capture.WithTTL(cfg.HandoffTTL),
		)
	}
	if h.portraits == nil {
		h.portraits = portrait.NewService(cat, uploader)
	}
	if h.authorizer == nil {
		h.authorizer = auth.NewTokenAuthorizer(cfg.AccessTokens)
	}
	if h.tabTTL <= 0 {
		h.tabTTL = config.DefaultTabTTL
	}
	h.handoff = capture.NewHandoff(h.handoffStore, h.encoder)
	go h.tabSweepLoop()
	return h
}

// Close stops the tab sweeper and releases the hand-off store.
func (h *Handler) Close() error {
	h.closeOnce.Do(func() { close(h.done) })
	if c, ok := h.handoffStore.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// notificationResponse carries a user-facing message alongside an error.
type notificationResponse struct {
	Error        string               `json:"error,omitempty"`
	Notification capture.Notification `json:"notification"`
}

func (h *Handler) writeNotification(w http.ResponseWriter, code int, err error) {
	slog.Warn("Upload rejected", "err", err, "status", code)
	h.writeJSONStatus(w, code, notificationResponse{
		Error:        err.Error(),
		Notification: capture.NotificationFor(err),
	})
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, sessionID string) (*models.PortraitSession, bool) {
	session, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}
