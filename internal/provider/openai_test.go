package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/config"
)

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL, "sk-test", "text-embedding-3-small", time.Second)
	assert.Equal(t, "text-embedding-3-small", e.ModelName())

	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}

func TestOpenAIGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.Write([]byte(`{"choices":[{"message":{"content":"generated text"}}]}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(srv.URL, "sk-test", "gpt-4o-mini", time.Second)
	answer, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "generated text", answer)
}

func TestOpenAIRetriesOnThrottling(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"data":[{"embedding":[1]}]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL, "sk-test", "emb", time.Second)
	vec, err := e.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, vec)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestOpenAIDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad request"}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL, "sk-test", "emb", time.Second)
	_, err := e.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestOpenAIGivesUpAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL, "sk-test", "emb", time.Second)
	_, err := e.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries exhausted")
}

func TestOpenAIWarmRequiresKey(t *testing.T) {
	e := NewOpenAIEmbedder("http://unused", "", "emb", time.Second)
	require.Error(t, e.Warm(context.Background()))

	g := NewOpenAIGenerator("http://unused", "sk-test", "gen", time.Second)
	require.NoError(t, g.Warm(context.Background()))
}

func TestFactorySelectsProvider(t *testing.T) {
	cfg := &config.Config{
		EmbeddingModel:  "emb",
		GenerationModel: "gen",
		Provider:        config.ProviderConfig{Type: "openai", BaseURL: "http://unused", APIKeyEnv: "TEST_KEY"},
	}
	f := NewFactory(cfg)

	emb, err := f.NewEmbedder()
	require.NoError(t, err)
	assert.IsType(t, &OpenAIEmbedder{}, emb)
	gen, err := f.NewGenerator()
	require.NoError(t, err)
	assert.IsType(t, &OpenAIGenerator{}, gen)

	cfg.Provider.Type = "gemini"
	emb, err = f.NewEmbedder()
	require.NoError(t, err)
	assert.IsType(t, &GeminiEmbedder{}, emb)
	gen, err = f.NewGenerator()
	require.NoError(t, err)
	assert.IsType(t, &GeminiGenerator{}, gen)
}
