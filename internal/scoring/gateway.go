// Package scoring turns a user's canonical activity into a ContributionScore,
// either through a remote text-generation service or a local heuristic.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash"

// ErrEmptyReply is returned when the service answered without any text.
var ErrEmptyReply = errors.New("empty reply from scoring service")

// Gateway sends a prompt to a text-generation service and returns its reply text.
type Gateway interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGateway is a Gateway backed by the Gemini API.
type GeminiGateway struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiGateway creates a Gemini client for the given model.
func NewGeminiGateway(ctx context.Context, apiKey, modelName string) (*GeminiGateway, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.3)
	model.SetTopK(40)
	model.SetTopP(0.95)
	model.ResponseMIMEType = "application/json"

	return &GeminiGateway{client: client, model: model}, nil
}

// Generate returns the text parts of the first candidate, concatenated.
func (g *GeminiGateway) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		if sb.Len() > 0 {
			return sb.String(), nil
		}
	}
	return "", ErrEmptyReply
}

func (g *GeminiGateway) Close() error {
	return g.client.Close()
}
