package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
)

// Environment variables for portrait image storage selection.
const (
	// EnvImageStorage specifies the image storage backend.
	// Valid values: "disk" (default), "s3", "gcs"
	EnvImageStorage = "PAWTRAIT_IMAGE_STORAGE"
)

// ImageUploader stores generated portraits.
type ImageUploader interface {
	// Upload stores an image and returns the URL it can be fetched from and
	// the resource ID used to delete it.
	Upload(ctx context.Context, data []byte, mimeType, filename string) (publicURL, resourceID string, err error)

	// Delete deletes an uploaded image by its resource ID.
	Delete(ctx context.Context, resourceID string) error
}

// GetImageStorageType returns the configured image storage type.
func GetImageStorageType() string {
	storage := os.Getenv(EnvImageStorage)
	if storage == "" {
		return "disk"
	}
	return storage
}

// NewImageUploader builds the uploader selected by PAWTRAIT_IMAGE_STORAGE.
func NewImageUploader(ctx context.Context, uploadsDir string) (ImageUploader, error) {
	switch kind := GetImageStorageType(); kind {
	case "disk":
		return NewDiskUploader(uploadsDir, "/static/uploads/")
	case "s3":
		return NewS3Uploader(ctx)
	case "gcs":
		return NewGCSUploader(ctx)
	default:
		return nil, fmt.Errorf("unsupported image storage: %s", kind)
	}
}

// ContentName returns a content-addressed filename for data.
func ContentName(data []byte, mimeType string) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]) + extensionFor(mimeType)
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}
