// Package images imports pet photos from remote URLs.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pawtrait-pals/pawtrait/internal/capture"
)

// ErrUnsupportedURL is returned for anything but absolute http(s) URLs.
var ErrUnsupportedURL = errors.New("image_url must be an absolute http or https URL")

// Fetcher retrieves pet photos by URL
type Fetcher struct {
	client   *retryablehttp.Client
	maxBytes int64
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 250 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 30 * time.Second
	client.Logger = slog.Default()

	return &Fetcher{
		client:   client,
		maxBytes: capture.MaxImageBytes,
	}
}

// Fetch downloads imageURL and returns it as a candidate for validation.
// At most one byte past the size limit is read so oversized images still fail
// validation with the usual reason.
func (f *Fetcher) Fetch(ctx context.Context, imageURL string) (capture.CandidateFile, error) {
	u, err := url.Parse(imageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return capture.CandidateFile{}, ErrUnsupportedURL
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return capture.CandidateFile{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return capture.CandidateFile{}, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return capture.CandidateFile{}, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return capture.CandidateFile{}, fmt.Errorf("failed to read image data: %w", err)
	}

	mimeType := ""
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if parsed, _, err := mime.ParseMediaType(ct); err == nil {
			mimeType = parsed
		}
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = "image"
	}

	slog.Info("Image downloaded", "url", imageURL, "bytes", len(data), "type", mimeType)
	return capture.CandidateFile{
		Name:     name,
		MIMEType: mimeType,
		Size:     int64(len(data)),
		Data:     bytes.NewReader(data),
	}, nil
}
