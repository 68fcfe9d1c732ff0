// Package provider implements the embedding and generation model clients
// behind the domain interfaces.
package provider

import (
	"ragchat/internal/config"
	"ragchat/internal/domain"
)

// Factory builds model clients from configuration. It performs no network
// work itself; the returned clients initialize lazily.
type Factory struct {
	cfg *config.Config
}

// NewFactory creates a model factory for the given configuration.
func NewFactory(cfg *config.Config) *Factory {
	return &Factory{cfg: cfg}
}

// NewEmbedder constructs the configured embedding client.
func (f *Factory) NewEmbedder() (domain.Embedder, error) {
	p := f.cfg.Provider
	switch p.Type {
	case "openai":
		return NewOpenAIEmbedder(p.BaseURL, f.cfg.APIKey(), f.cfg.EmbeddingModel, p.Timeout()), nil
	default:
		return NewGeminiEmbedder(f.cfg.APIKey(), f.cfg.EmbeddingModel), nil
	}
}

// NewGenerator constructs the configured generation client.
func (f *Factory) NewGenerator() (domain.Generator, error) {
	p := f.cfg.Provider
	switch p.Type {
	case "openai":
		return NewOpenAIGenerator(p.BaseURL, f.cfg.APIKey(), f.cfg.GenerationModel, p.Timeout()), nil
	default:
		return NewGeminiGenerator(f.cfg.APIKey(), f.cfg.GenerationModel), nil
	}
}
