package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const openAIMaxRetries = 5

// openAIClient talks to an OpenAI-compatible HTTP endpoint. Remote APIs
// have no local weight load, so Warm only validates the credential.
type openAIClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newOpenAIClient(baseURL, apiKey string, timeout time.Duration) *openAIClient {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &openAIClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *openAIClient) warm() error {
	if c.apiKey == "" {
		return fmt.Errorf("openai: missing API key")
	}
	return nil
}

// post sends a JSON request with retry on 429 and 5xx, honoring Retry-After.
func (c *openAIClient) post(ctx context.Context, path string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	url := c.baseURL + path
	var lastErr error
	for attempt := 0; attempt <= openAIMaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			sleepCtx(ctx, retryDelay(attempt))
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			delay := retryDelay(attempt)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					delay = time.Duration(secs) * time.Second
				}
			}
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("openai: %s %s", path, resp.Status)
			sleepCtx(ctx, delay)
			continue
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			sleepCtx(ctx, retryDelay(attempt))
			continue
		}
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("openai: %s %s: %s", path, resp.Status, truncate(payload, 200))
		}
		return payload, nil
	}
	return nil, fmt.Errorf("openai: retries exhausted: %w", lastErr)
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// OpenAIEmbedder embeds text via the /embeddings endpoint.
type OpenAIEmbedder struct {
	client *openAIClient
	model  string
}

// NewOpenAIEmbedder creates an embedder for an OpenAI-compatible endpoint.
func NewOpenAIEmbedder(baseURL, apiKey, model string, timeout time.Duration) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: newOpenAIClient(baseURL, apiKey, timeout), model: model}
}

func (e *OpenAIEmbedder) ModelName() string { return e.model }

func (e *OpenAIEmbedder) Warm(ctx context.Context) error { return e.client.warm() }

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	payload, err := e.client.post(ctx, "/embeddings", map[string]any{
		"model": e.model,
		"input": text,
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("openai: decode embeddings: %w", err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai: no embedding returned")
	}
	return out.Data[0].Embedding, nil
}

// OpenAIGenerator generates text via the /chat/completions endpoint.
type OpenAIGenerator struct {
	client *openAIClient
	model  string
}

// NewOpenAIGenerator creates a generator for an OpenAI-compatible endpoint.
func NewOpenAIGenerator(baseURL, apiKey, model string, timeout time.Duration) *OpenAIGenerator {
	return &OpenAIGenerator{client: newOpenAIClient(baseURL, apiKey, timeout), model: model}
}

func (g *OpenAIGenerator) ModelName() string { return g.model }

func (g *OpenAIGenerator) Warm(ctx context.Context) error { return g.client.warm() }

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := g.client.post(ctx, "/chat/completions", map[string]any{
		"model": g.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", err
	}
	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("openai: decode completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai: no completion returned")
	}
	return out.Choices[0].Message.Content, nil
}
