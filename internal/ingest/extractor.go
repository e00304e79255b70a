package ingest

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/dvloznov/expense-tracker/internal/config"
)

// ErrInferenceUnavailable indicates a transport, auth or provider failure
// against the inference capability, as opposed to unusable content.
var ErrInferenceUnavailable = errors.New("inference capability unavailable")

// GeminiExtractor is the concrete Extractor backed by the Gemini API.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

// NewGeminiExtractor creates an extractor with a shared genai client.
func NewGeminiExtractor(ctx context.Context, cfg *config.Config) (*GeminiExtractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.Gemini.APIKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiExtractor: create genai client: %w", err)
	}

	return &GeminiExtractor{
		client: client,
		model:  cfg.Gemini.Model,
	}, nil
}

// Infer sends the image bytes plus the fixed extraction prompt to the model
// and returns its raw text response. Content is not validated here.
func (e *GeminiExtractor) Infer(ctx context.Context, data []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: extractionPrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     data,
					},
				},
			},
		},
	}

	resp, err := e.client.Models.GenerateContent(ctx, e.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Infer: generate content: %w: %v", ErrInferenceUnavailable, err)
	}

	raw := resp.Text()
	if raw == "" {
		return "", fmt.Errorf("Infer: %w: empty response from model", ErrInferenceUnavailable)
	}

	return raw, nil
}

// Ensure GeminiExtractor satisfies the pipeline seam.
var _ Extractor = (*GeminiExtractor)(nil)
