package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DiskUploader writes images under a local directory served by the static handler.
type DiskUploader struct {
	dir     string
	baseURL string
}

// NewDiskUploader creates dir if needed.
func NewDiskUploader(dir, baseURL string) (*DiskUploader, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &DiskUploader{dir: dir, baseURL: baseURL}, nil
}

func (u *DiskUploader) Upload(ctx context.Context, data []byte, mimeType, filename string) (string, string, error) {
	name, err := cleanName(filename)
	if err != nil {
		return "", "", err
	}
	if err := os.WriteFile(filepath.Join(u.dir, name), data, 0644); err != nil {
		return "", "", fmt.Errorf("failed to save image: %w", err)
	}
	slog.Info("Image saved", "filename", name, "mime_type", mimeType, "size", len(data))
	return u.baseURL + name, name, nil
}

func (u *DiskUploader) Delete(ctx context.Context, resourceID string) error {
	name, err := cleanName(resourceID)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(u.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

func cleanName(name string) (string, error) {
	base := filepath.Base(name)
	if base != name || strings.HasPrefix(base, ".") {
		return "", fmt.Errorf("invalid file name: %q", name)
	}
	return base, nil
}
