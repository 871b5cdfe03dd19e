package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Environment variables for GCS portrait storage.
const (
	// EnvGCSServiceAccountKey holds the JSON of a service account key.
	EnvGCSServiceAccountKey = "PAWTRAIT_GCS_SERVICE_ACCOUNT_KEY"
	EnvGCSBucket            = "PAWTRAIT_GCS_BUCKET"
	EnvGCSPrefix            = "PAWTRAIT_GCS_PREFIX"
)

// GCSUploader stores portraits in a Cloud Storage bucket behind signed URLs.
type GCSUploader struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSUploader creates a GCSUploader from environment variables, falling
// back to Application Default Credentials.
func NewGCSUploader(ctx context.Context) (*GCSUploader, error) {
	bucket := os.Getenv(EnvGCSBucket)
	if bucket == "" {
		return nil, fmt.Errorf("%s is required for GCS storage", EnvGCSBucket)
	}

	var opts []option.ClientOption
	if creds := os.Getenv(EnvGCSServiceAccountKey); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSUploader{client: client, bucket: bucket, prefix: os.Getenv(EnvGCSPrefix)}, nil
}

func (u *GCSUploader) Upload(ctx context.Context, data []byte, mimeType, filename string) (string, string, error) {
	name := u.prefix + filename
	bkt := u.client.Bucket(u.bucket)

	w := bkt.Object(name).NewWriter(ctx)
	w.ContentType = mimeType
	w.CacheControl = "public, max-age=604800, immutable"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", "", fmt.Errorf("failed to write portrait to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", "", fmt.Errorf("failed to finish GCS upload: %w", err)
	}

	signed, err := bkt.SignedURL(name, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(portraitURLTTL),
		Scheme:  storage.SigningSchemeV4,
	})
	if err != nil {
		_ = u.Delete(ctx, name)
		return "", "", fmt.Errorf("failed to sign portrait URL: %w", err)
	}

	return signed, name, nil
}

func (u *GCSUploader) Delete(ctx context.Context, resourceID string) error {
	err := u.client.Bucket(u.bucket).Object(resourceID).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete portrait from GCS: %w", err)
	}
	return nil
}
