package providers

import (
	"context"
	"errors"
)

// ErrNoImage is returned when a provider answers without an image.
var ErrNoImage = errors.New("provider returned no image")

// Config represents a single portrait generation request
type Config struct {
	Model string
	// Prompt describes the style to apply.
	Prompt string
	// Image is the source pet photo.
	Image    []byte
	MIMEType string
}

// Result is the generated portrait
type Result struct {
	Data     []byte
	MIMEType string
}

// Provider defines the interface for an image-capable AI provider
type Provider interface {
	GeneratePortrait(ctx context.Context, config Config) (*Result, error)
}
