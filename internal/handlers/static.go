package handlers

import (
	"bytes"
	"embed"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// assets are built into the binary so the pages render without a static
// directory on disk. A file in staticDir with the same name wins.
//
//go:embed assets/*
var assets embed.FS

func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")

	// Prevent directory traversal attacks
	if strings.Contains(path, "..") {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	if rest, ok := strings.CutPrefix(path, "uploads/"); ok {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		http.ServeFile(w, r, filepath.Join(h.cfg.UploadsDir, filepath.FromSlash(rest)))
		return
	}

	if path == "" {
		http.NotFound(w, r)
		return
	}

	// Set appropriate content type based on file extension
	switch {
	case strings.HasSuffix(path, ".css"):
		w.Header().Set("Content-Type", "text/css")
	case strings.HasSuffix(path, ".js"):
		w.Header().Set("Content-Type", "application/javascript")
	}

	full := filepath.Join(h.staticDir, filepath.FromSlash(path))
	if _, err := os.Stat(full); err != nil {
		if data, err := assets.ReadFile("assets/" + path); err == nil {
			http.ServeContent(w, r, path, time.Time{}, bytes.NewReader(data))
			return
		}
	}
	http.ServeFile(w, r, full)
}
