package gemini

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/innov8academy/newsletter-auto/internal/llm"
)

// DefaultModel is used when no model id is configured.
const DefaultModel = "gemini-2.0-flash"

// Client completes prompts with Google Gemini directly.
type Client struct {
	client *genai.Client
	model  string
}

var (
	_ llm.Client = (*Client)(nil)
	_ io.Closer  = (*Client)(nil)
)

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{client: client, model: ModelName(model)}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	name := c.model
	if req.Model != "" {
		name = ModelName(req.Model)
	}

	model := c.client.GenerativeModel(name)
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return responseText(resp)
}

// ModelName accepts OpenRouter style ids ("google/gemini-2.0-flash-001")
// and returns the bare Gemini model name.
func ModelName(model string) string {
	model = strings.TrimSpace(model)
	if model == "" {
		return DefaultModel
	}
	return strings.TrimPrefix(model, "google/")
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", llm.ErrEmptyResponse
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", llm.ErrEmptyResponse
	}
	return out, nil
}
