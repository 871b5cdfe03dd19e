package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/pawtrait-pals/pawtrait/internal/providers"
	"google.golang.org/api/option"
)

// Gemini is a provider for Google Gemini image models
type Gemini struct{}

// New returns a new Gemini provider
func New() *Gemini {
	return &Gemini{}
}

// GeneratePortrait sends the pet photo and style prompt to Gemini and returns
// the first inline image of the answer.
func (g *Gemini) GeneratePortrait(ctx context.Context, config providers.Config) (*providers.Result, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(config.Model)
	model.SetTemperature(0.4)

	resp, err := model.GenerateContent(ctx,
		genai.ImageData(imageFormat(config.MIMEType), config.Image),
		genai.Text(config.Prompt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("empty content returned from Gemini")
	}

	return firstImage(candidate.Content.Parts)
}

func firstImage(parts []genai.Part) (*providers.Result, error) {
	for _, part := range parts {
		if blob, ok := part.(genai.Blob); ok && strings.HasPrefix(blob.MIMEType, "image/") {
			return &providers.Result{Data: blob.Data, MIMEType: blob.MIMEType}, nil
		}
	}
	return nil, providers.ErrNoImage
}

// imageFormat maps a MIME type to the short format genai.ImageData expects.
func imageFormat(mimeType string) string {
	format := strings.TrimPrefix(mimeType, "image/")
	if format == "" || format == mimeType {
		return "jpeg"
	}
	return format
}
