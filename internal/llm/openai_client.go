package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultOpenAIAPIURL = "https://api.openai.com/v1/chat/completions"

// openAIRequest is the chat-completions request payload. Only the fields
// the unary Generator contract needs are populated.
type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// OpenAIGenerator talks to OpenAI-compatible chat-completions endpoints
// over plain HTTP. The API URL is configurable so the same client also
// serves self-hosted compatible backends.
type OpenAIGenerator struct {
	apiKey     string
	modelID    string
	apiURL     string
	httpClient *http.Client
}

var _ Generator = (*OpenAIGenerator)(nil)

// NewOpenAIGenerator creates a configured client. An empty apiURL falls
// back to the official OpenAI endpoint.
func NewOpenAIGenerator(apiKey, modelID, apiURL string) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key cannot be empty")
	}
	if apiURL == "" {
		apiURL = defaultOpenAIAPIURL
	}
	return &OpenAIGenerator{
		apiKey:     apiKey,
		modelID:    modelID,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}, nil
}

// Generate performs a standard, blocking chat-completions request.
func (c *OpenAIGenerator) Generate(ctx context.Context, systemPrompt, userContent string, temperature float64) (string, error) {
	messages := make([]openAIMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: userContent})

	payload, err := json.Marshal(openAIRequest{
		Model:       c.modelID,
		Messages:    messages,
		MaxTokens:   defaultMaxOutputTok,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build openai request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai API call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read openai response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr openAIErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("openai API error (%s): %s", apiErr.Error.Type, apiErr.Error.Message)
		}
		return "", fmt.Errorf("openai API returned status %d", resp.StatusCode)
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse openai response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("no choices returned from OpenAI")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
