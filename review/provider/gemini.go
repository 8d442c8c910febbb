package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	genaiopt "google.golang.org/api/option"

	"github.com/theimaginaryfoundation/recap-o-matic/review"
)

// ImageConfig configures the Gemini-backed image oracle.
type ImageConfig struct {
	APIKey string
	Model  string
}

// ImageGenerator implements review.ImageOracle on the Gemini API.
type ImageGenerator struct {
	client *genai.Client
	model  string
}

var _ review.ImageOracle = (*ImageGenerator)(nil)

func NewImageGenerator(ctx context.Context, cfg ImageConfig) (*ImageGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("NewImageGenerator: APIKey is empty")
	}
	if cfg.Model == "" {
		return nil, errors.New("NewImageGenerator: Model is empty")
	}

	client, err := genai.NewClient(ctx, genaiopt.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("NewImageGenerator: %w", err)
	}
	return &ImageGenerator{client: client, model: cfg.Model}, nil
}

// GenerateImage renders the prompt and returns the first inline image
// payload of the response. The SDK exposes no aspect-ratio knob, so the
// ratio rides along in the prompt text.
func (g *ImageGenerator) GenerateImage(ctx context.Context, prompt string, aspectRatio string) ([]byte, error) {
	fullPrompt := prompt
	if aspectRatio != "" {
		fullPrompt = fmt.Sprintf("%s\n\nAspect ratio: %s", prompt, aspectRatio)
	}

	model := g.client.GenerativeModel(g.model)
	rsp, err := model.GenerateContent(ctx, genai.Text(fullPrompt))
	if err != nil {
		return nil, fmt.Errorf("GenerateImage: %w", err)
	}

	if len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil {
		return nil, errors.New("GenerateImage: no candidates in response")
	}
	for _, part := range rsp.Candidates[0].Content.Parts {
		if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
			return blob.Data, nil
		}
	}
	return nil, errors.New("GenerateImage: no image payload in response")
}

func (g *ImageGenerator) Close() error {
	return g.client.Close()
}
