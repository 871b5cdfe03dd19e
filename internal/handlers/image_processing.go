package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/pawtrait-pals/pawtrait/internal/capture"
)

const (
	// multipartSlack covers form boundaries and fields around the photo.
	multipartSlack = 1 << 20
	// maxMemory is kept in memory while parsing; the rest spills to disk.
	maxMemory = 8 << 20
)

// parseUploadForm parses a multipart body capped just above the image limit.
// An oversized body is reported as a ValidationError so callers can treat it
// like any other rejected photo.
func parseUploadForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, capture.MaxImageBytes+multipartSlack)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return &capture.ValidationError{Err: capture.ErrTooLarge}
		}
		return fmt.Errorf("failed to parse upload: %w", err)
	}
	return nil
}

// openCandidate opens a multipart file as a capture candidate.
func openCandidate(fh *multipart.FileHeader) (capture.CandidateFile, io.Closer, error) {
	f, err := fh.Open()
	if err != nil {
		return capture.CandidateFile{}, nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	return capture.CandidateFile{
		Name:     fh.Filename,
		MIMEType: fh.Header.Get("Content-Type"),
		Size:     fh.Size,
		Data:     f,
	}, f, nil
}

// formFiles returns the uploaded files under the first of keys that has any.
func formFiles(r *http.Request, keys ...string) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	for _, k := range keys {
		if files := r.MultipartForm.File[k]; len(files) > 0 {
			return files
		}
	}
	return nil
}

// statusFor maps a capture error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, capture.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, capture.ErrNotImage):
		return http.StatusBadRequest
	case errors.Is(err, capture.ErrReadFailure):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}
