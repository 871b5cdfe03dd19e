// Package portrait turns a pet photo into stylised portraits through an
// image-capable AI provider and stores the results.
package portrait

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pawtrait-pals/pawtrait/internal/catalog"
	"github.com/pawtrait-pals/pawtrait/internal/gemini"
	"github.com/pawtrait-pals/pawtrait/internal/metrics"
	"github.com/pawtrait-pals/pawtrait/internal/models"
	"github.com/pawtrait-pals/pawtrait/internal/openai"
	"github.com/pawtrait-pals/pawtrait/internal/providers"
	"github.com/pawtrait-pals/pawtrait/internal/storage"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	// MaxConcurrentGenerations bounds provider calls per batch.
	MaxConcurrentGenerations = 4

	DefaultProvider = "gemini"
)

var (
	ErrNoStyles        = errors.New("at least one style is required")
	ErrUnknownStyle    = errors.New("unknown style")
	ErrUnknownProvider = errors.New("unsupported provider")
)

// Request describes one generation batch.
type Request struct {
	Image    []byte
	MIMEType string
	Species  catalog.Species
	Breed    string
	StyleIDs []string
	Provider string
	Model    string
}

type Service struct {
	catalog   *catalog.Catalog
	uploader  storage.ImageUploader
	providers map[string]providers.Provider
}

type Option func(*Service)

// WithProvider registers or replaces a provider by name.
func WithProvider(name string, p providers.Provider) Option {
	return func(s *Service) {
		s.providers[name] = p
	}
}

func NewService(c *catalog.Catalog, uploader storage.ImageUploader, opts ...Option) *Service {
	s := &Service{
		catalog:  c,
		uploader: uploader,
		providers: map[string]providers.Provider{
			"gemini": gemini.New(),
			"openai": openai.New(),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve fills in the provider and model the request will run with.
func (s *Service) Resolve(provider, model string) (string, string) {
	if provider == "" {
		provider = os.Getenv("PORTRAIT_PROVIDER")
		if provider == "" {
			provider = DefaultProvider
		}
	}
	if model == "" {
		model = defaultModel(provider)
	}
	return provider, model
}

func defaultModel(provider string) string {
	switch provider {
	case "openai":
		model := os.Getenv("OPENAI_MODEL")
		if model == "" {
			return "gpt-image-1"
		}
		return model
	case "gemini":
		model := os.Getenv("GEMINI_MODEL")
		if model == "" {
			return "gemini-2.5-flash-image"
		}
		return model
	default:
		return ""
	}
}

// Generate produces one portrait per requested style. A style whose
// generation fails is returned with Error set; the batch itself only fails on
// bad input or cancellation.
func (s *Service) Generate(ctx context.Context, req Request) ([]models.Portrait, error) {
	if len(req.StyleIDs) == 0 {
		return nil, ErrNoStyles
	}

	styles := make([]catalog.Style, len(req.StyleIDs))
	for i, id := range req.StyleIDs {
		style, ok := s.catalog.Style(req.Species, id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownStyle, id)
		}
		styles[i] = style
	}

	providerName, model := s.Resolve(req.Provider, req.Model)
	provider, ok := s.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, providerName)
	}

	portraits := make([]models.Portrait, len(styles))
	sem := semaphore.NewWeighted(MaxConcurrentGenerations)
	g, gctx := errgroup.WithContext(ctx)

	for i, style := range styles {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)

			p := s.generateOne(gctx, provider, providerName, providers.Config{
				Model:    model,
				Prompt:   buildPrompt(style, req.Species, req.Breed),
				Image:    req.Image,
				MIMEType: req.MIMEType,
			}, style)

			portraits[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("portrait generation cancelled: %w", err)
	}

	return portraits, nil
}

func (s *Service) generateOne(ctx context.Context, provider providers.Provider, providerName string, config providers.Config, style catalog.Style) models.Portrait {
	p := models.Portrait{
		StyleID:   style.ID,
		StyleName: style.Name,
		CreatedAt: time.Now(),
	}

	start := time.Now()
	res, err := provider.GeneratePortrait(ctx, config)
	metrics.GenerationDuration.WithLabelValues(providerName).Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Error("Portrait generation failed", "style", style.ID, "provider", providerName, "err", err)
		metrics.Portraits.WithLabelValues(providerName, "error").Inc()
		p.Error = err.Error()
		return p
	}

	filename := storage.ContentName(res.Data, res.MIMEType)
	url, resourceID, err := s.uploader.Upload(ctx, res.Data, res.MIMEType, filename)
	if err != nil {
		slog.Error("Unable to store portrait", "style", style.ID, "err", err)
		metrics.Portraits.WithLabelValues(providerName, "store_error").Inc()
		p.Error = fmt.Sprintf("failed to store portrait: %v", err)
		return p
	}

	metrics.Portraits.WithLabelValues(providerName, "success").Inc()
	slog.Info("Portrait generated", "style", style.ID, "provider", providerName, "bytes", len(res.Data))
	p.ImageURL = url
	p.ResourceID = resourceID
	p.MIMEType = res.MIMEType
	return p
}

func buildPrompt(style catalog.Style, species catalog.Species, breed string) string {
	subject := string(species)
	if breed = strings.TrimSpace(breed); breed != "" {
		subject = breed + " " + subject
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a portrait of the %s in this photo in the style \"%s\".\n", subject, style.Name)
	if style.Description != "" {
		fmt.Fprintf(&b, "Style notes: %s\n", style.Description)
	}
	b.WriteString("Keep the pet's markings, colouring and expression recognisable. ")
	b.WriteString("Return a single image with no text or watermark.")
	return b.String()
}
