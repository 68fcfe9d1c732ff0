package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// geminiClient lazily constructs the shared genai client. Construction is
// the expensive part (credential exchange), so it is deferred until first
// use unless Warm forces it.
type geminiClient struct {
	apiKey string
	once   sync.Once
	client *genai.Client
	err    error
}

func (g *geminiClient) ensure(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		if g.apiKey == "" {
			g.err = fmt.Errorf("gemini: missing API key")
			return
		}
		g.client, g.err = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return g.client, g.err
}

// GeminiGenerator generates text with a Gemini model.
type GeminiGenerator struct {
	client *geminiClient
	model  string
}

// NewGeminiGenerator creates a generator bound to the given model id.
func NewGeminiGenerator(apiKey, model string) *GeminiGenerator {
	return &GeminiGenerator{client: &geminiClient{apiKey: apiKey}, model: model}
}

func (g *GeminiGenerator) ModelName() string { return g.model }

// Warm forces client construction ahead of the first generation call.
func (g *GeminiGenerator) Warm(ctx context.Context) error {
	_, err := g.client.ensure(ctx)
	return err
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	client, err := g.client.ensure(ctx)
	if err != nil {
		return "", err
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// GeminiEmbedder embeds text with a Gemini embedding model.
type GeminiEmbedder struct {
	client *geminiClient
	model  string
}

// NewGeminiEmbedder creates an embedder bound to the given model id.
func NewGeminiEmbedder(apiKey, model string) *GeminiEmbedder {
	return &GeminiEmbedder{client: &geminiClient{apiKey: apiKey}, model: model}
}

func (e *GeminiEmbedder) ModelName() string { return e.model }

// Warm forces client construction ahead of the first embed call.
func (e *GeminiEmbedder) Warm(ctx context.Context) error {
	_, err := e.client.ensure(ctx)
	return err
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	client, err := e.client.ensure(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := client.Models.EmbedContent(
		ctx,
		e.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("gemini embed: no embedding values returned")
	}
	values := resp.Embeddings[0].Values
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out, nil
}
