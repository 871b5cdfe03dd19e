package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pawtrait-pals/pawtrait/internal/providers"
)

const defaultBaseURL = "https://api.openai.com/v1"

// OpenAI is a provider for the OpenAI image edit API
type OpenAI struct {
	baseURL string
	client  *retryablehttp.Client
}

// New returns a new OpenAI provider. OPENAI_BASE_URL overrides the endpoint.
func New() *OpenAI {
	baseURL := os.Getenv("OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 3 * time.Minute
	client.Logger = slog.Default()

	return &OpenAI{baseURL: baseURL, client: client}
}

// GeneratePortrait edits the pet photo according to the style prompt
func (o *OpenAI) GeneratePortrait(ctx context.Context, config providers.Config) (*providers.Result, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	body, contentType, err := editRequestBody(config)
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", o.baseURL+"/images/edits", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
		OutputFormat string `json:"output_format"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	if len(response.Data) == 0 || response.Data[0].B64JSON == "" {
		return nil, providers.ErrNoImage
	}

	data, err := base64.StdEncoding.DecodeString(response.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image payload: %w", err)
	}

	mimeType := "image/png"
	if response.OutputFormat != "" {
		mimeType = "image/" + response.OutputFormat
	}
	return &providers.Result{Data: data, MIMEType: mimeType}, nil
}

// editRequestBody builds the multipart form for /images/edits. The body is a
// byte slice so retries can replay it.
func editRequestBody(config providers.Config) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("model", config.Model); err != nil {
		return nil, "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := mw.WriteField("prompt", config.Prompt); err != nil {
		return nil, "", fmt.Errorf("failed to write prompt field: %w", err)
	}

	mimeType := config.MIMEType
	if mimeType == "" {
		mimeType = http.DetectContentType(config.Image)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image[]"; filename="pet"`)
	header.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := part.Write(config.Image); err != nil {
		return nil, "", fmt.Errorf("failed to write image part: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
