package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	_ "golang.org/x/image/webp"
)

// DefaultReadTimeout bounds a single file read.
const DefaultReadTimeout = 30 * time.Second

var (
	ErrReadFailure    = errors.New("image could not be read")
	ErrInvalidDataURL = errors.New("invalid data URL")
)

// EncodedImage is an image payload in data URL form. It is never mutated
// after creation; replacing a photo always produces a new value.
type EncodedImage struct {
	DataURL  string `json:"data_url"`
	MIMEType string `json:"mime_type"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// NewEncodedImage builds a data URL for data. When mimeType is empty the type
// is sniffed from the content.
func NewEncodedImage(mimeType string, data []byte) *EncodedImage {
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	img := &EncodedImage{
		DataURL:  "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
		MIMEType: mimeType,
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		img.Width, img.Height = cfg.Width, cfg.Height
	}
	return img
}

// ParseDataURL validates s and returns it as an EncodedImage.
func ParseDataURL(s string) (*EncodedImage, error) {
	mimeType, payload, err := splitDataURL(s)
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataURL, err)
	}
	img := NewEncodedImage(mimeType, data)
	img.DataURL = s
	return img, nil
}

// Bytes decodes the payload back to the original file content.
func (e *EncodedImage) Bytes() ([]byte, error) {
	_, payload, err := splitDataURL(e.DataURL)
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataURL, err)
	}
	return data, nil
}

// Size is the byte length of the data URL string.
func (e *EncodedImage) Size() int {
	return len(e.DataURL)
}

func splitDataURL(s string) (mimeType, payload string, err error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", "", ErrInvalidDataURL
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", ErrInvalidDataURL
	}
	mimeType, ok = strings.CutSuffix(header, ";base64")
	if !ok {
		return "", "", ErrInvalidDataURL
	}
	return mimeType, payload, nil
}

// ImageEncoder turns a validated file into an EncodedImage.
type ImageEncoder interface {
	Encode(ctx context.Context, file CandidateFile) (*EncodedImage, error)
}

// Encoder reads whole files into data URLs.
type Encoder struct {
	ReadTimeout time.Duration
}

// NewEncoder returns an Encoder bounded by readTimeout, or
// DefaultReadTimeout when readTimeout is not positive.
func NewEncoder(readTimeout time.Duration) *Encoder {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &Encoder{ReadTimeout: readTimeout}
}

type readResult struct {
	data []byte
	err  error
}

// Encode reads file.Data on its own goroutine and waits at most ReadTimeout.
// A read that never completes is abandoned and reported as ErrReadFailure.
func (e *Encoder) Encode(ctx context.Context, file CandidateFile) (*EncodedImage, error) {
	if file.Data == nil {
		return nil, fmt.Errorf("%w: no data", ErrReadFailure)
	}

	done := make(chan readResult, 1)
	go func() {
		data, err := io.ReadAll(io.LimitReader(file.Data, MaxImageBytes+1))
		done <- readResult{data: data, err: err}
	}()

	timer := time.NewTimer(e.ReadTimeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadFailure, res.err)
		}
		if len(res.data) > MaxImageBytes {
			return nil, &ValidationError{File: file.Name, Err: ErrTooLarge}
		}
		img := NewEncodedImage(file.MIMEType, res.data)
		if file.MIMEType == "" && !sniffedImage(img) {
			return nil, &ValidationError{File: file.Name, Err: ErrNotImage}
		}
		return img, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: read did not finish within %s", ErrReadFailure, e.ReadTimeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrReadFailure, ctx.Err())
	}
}

// sniffedImage reports whether bytes that arrived without a declared type
// look like an image we can actually decode.
func sniffedImage(img *EncodedImage) bool {
	return strings.HasPrefix(img.MIMEType, "image/") && img.Width > 0
}
