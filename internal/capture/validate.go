package capture

import (
	"errors"
	"io"
	"strings"
)

// MaxImageBytes is the largest photo accepted from a picker or drop (20 MiB).
const MaxImageBytes = 20 * 1024 * 1024

var (
	ErrNotImage = errors.New("not an image")
	ErrTooLarge = errors.New("file too large")
)

// CandidateFile is a user-selected or dropped file before validation.
// Data is consumed once by the encoder.
type CandidateFile struct {
	Name     string
	MIMEType string
	Size     int64
	Data     io.Reader
}

// ValidationError reports why a candidate file was rejected.
type ValidationError struct {
	File string
	Err  error
}

func (e *ValidationError) Error() string {
	if e.File == "" {
		return e.Err.Error()
	}
	return e.File + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Reason is the user-facing rejection text.
func (e *ValidationError) Reason() string {
	return e.Err.Error()
}

// Validate checks a candidate file against the type and size policy.
// An empty MIME type is tolerated; some capture paths omit it.
func Validate(file CandidateFile) error {
	if file.MIMEType != "" && !strings.HasPrefix(file.MIMEType, "image/") {
		return &ValidationError{File: file.Name, Err: ErrNotImage}
	}
	if file.Size > MaxImageBytes {
		return &ValidationError{File: file.Name, Err: ErrTooLarge}
	}
	return nil
}
