package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

const providerGemini = "gemini"

// GeminiOptions configures a GeminiClient.
type GeminiOptions struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// GeminiClient completes prompts with the Google Gemini API.
type GeminiClient struct {
	opts GeminiOptions

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiClient stores the configuration; the SDK client needs a context
// and is created on first use.
func NewGeminiClient(opts GeminiOptions) *GeminiClient {
	return &GeminiClient{opts: opts}
}

func (g *GeminiClient) Model() string {
	return g.opts.Model
}

func (g *GeminiClient) sdk(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &Error{Provider: providerGemini, Kind: KindAuth, Err: fmt.Errorf("create client: %w", err)}
	}
	g.client = client
	return client, nil
}

func (g *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	client, err := g.sdk(ctx)
	if err != nil {
		return "", err
	}

	temperature := float32(g.opts.Temperature)
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(g.opts.MaxTokens),
	}

	result, err := client.Models.GenerateContent(ctx, g.opts.Model, genai.Text(prompt), config)
	if err != nil {
		return "", classifyGemini(err)
	}
	if result == nil {
		return "", &Error{Provider: providerGemini, Kind: KindEmptyResponse, Err: errors.New("nil response")}
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", &Error{Provider: providerGemini, Kind: KindEmptyResponse, Err: errors.New("empty response text")}
	}
	return text, nil
}

func classifyGemini(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classify(providerGemini, apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return classify(providerGemini, apiErrPtr.Code, err)
	}
	return classify(providerGemini, 0, fmt.Errorf("generate content: %w", err))
}
