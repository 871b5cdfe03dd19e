package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pawtrait-pals/pawtrait/internal/auth"
	"github.com/pawtrait-pals/pawtrait/internal/capture"
	"github.com/pawtrait-pals/pawtrait/internal/metrics"
)

// Routes returns the HTTP surface of the service.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logRequests)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, capture.DefaultReturnTo, http.StatusFound)
	})
	r.Get("/create", h.HandleCreate)
	r.Get(capture.CapturePath, h.HandleCapturePage)
	r.Post(capture.CapturePath, h.HandleCaptureSubmit)

	r.Route("/api", func(r chi.Router) {
		r.Route("/surface", func(r chi.Router) {
			r.Get("/", h.HandleSurface)
			r.Delete("/", h.HandleSurfaceClear)
			r.Post("/select", h.HandleSelect)
			r.Post("/drop", h.HandleDrop)
			r.Post("/dragenter", h.HandleDragEnter)
			r.Post("/dragleave", h.HandleDragLeave)
			r.Get("/browse", h.HandleBrowse)
		})

		r.Post("/upload", h.HandleUpload)
		r.Get("/styles", h.HandleStyles)
		r.Get("/styles/preview/{name}", h.HandleStylePreview)
		r.Get("/breeds", h.HandleBreeds)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(h.authorizer))
			r.Post("/portraits", h.HandlePortraits)
			r.Get("/sessions", h.HandleSessions)
			r.Get("/sessions/export.parquet", h.HandleSessionsExport)
			r.Get("/sessions/{id}", h.HandleSessionDetail)
			r.Delete("/sessions/{id}", h.HandleSessionDelete)
		})
	})

	r.Get("/static/*", h.HandleStatic)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})

	return r
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
