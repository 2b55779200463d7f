package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiGenerator talks to Google's Gemini models. A fresh GenerativeModel
// is configured per call so that no mutable model state is shared between
// concurrent requests.
type GeminiGenerator struct {
	client  *genai.Client
	modelID string
}

var _ Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a configured Gemini client.
func NewGeminiGenerator(ctx context.Context, apiKey, modelID string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key cannot be empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, modelID: modelID}, nil
}

// Generate performs a standard, blocking request to the Gemini API.
func (g *GeminiGenerator) Generate(ctx context.Context, systemPrompt, userContent string, temperature float64) (string, error) {
	model := g.client.GenerativeModel(g.modelID)
	model.SetTemperature(float32(temperature))
	model.SetMaxOutputTokens(defaultMaxOutputTok)
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(userContent))
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}
	return parseGeminiResponse(resp)
}

// Close releases the underlying API client.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

// parseGeminiResponse concatenates the text parts of the first candidate.
func parseGeminiResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no content returned from Gemini")
	}

	var contentBuilder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			contentBuilder.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(contentBuilder.String()), nil
}
