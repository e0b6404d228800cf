// Package llm defines the completion boundary used by story extraction and
// an OpenRouter-backed implementation of it.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Request is a single completion request.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Client completes prompts. Implementations return free-form text.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrEmptyResponse is returned when the provider answered without content.
var ErrEmptyResponse = errors.New("llm: empty response")

const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"

	OpenRouterBaseURL      = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel = "google/gemini-2.0-flash-001"
)

// OpenRouterClient talks to OpenRouter's OpenAI-compatible chat API.
type OpenRouterClient struct {
	client *openai.Client
	model  string
}

var _ Client = (*OpenRouterClient)(nil)

// NewOpenRouterClient builds a client. An empty baseURL selects OpenRouterBaseURL.
func NewOpenRouterClient(apiKey, model, baseURL string) *OpenRouterClient {
	if model == "" {
		model = DefaultOpenRouterModel
	}
	if baseURL == "" {
		baseURL = OpenRouterBaseURL
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	cfg.HTTPClient = &http.Client{
		Timeout: 120 * time.Second,
		Transport: &headerTransport{
			base: http.DefaultTransport,
			headers: map[string]string{
				"HTTP-Referer": "http://localhost:3000",
				"X-Title":      "Innov8 AI",
			},
		},
	}

	return &OpenRouterClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Complete sends req as a chat completion and returns the first choice.
func (c *OpenRouterClient) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openrouter completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}
