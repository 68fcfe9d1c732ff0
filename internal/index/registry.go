package index

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"ragchat/internal/domain"
)

// ModelFactory constructs provider clients from configuration.
type ModelFactory interface {
	NewEmbedder() (domain.Embedder, error)
	NewGenerator() (domain.Generator, error)
}

// ModelRegistry holds the process-wide embedding/generation bindings.
// Binding is memoized: the factory runs at most once per model, however
// many times initialization is requested. Warming (forcing the expensive
// provider initialization) is likewise memoized per model.
type ModelRegistry struct {
	factory ModelFactory
	log     *zap.Logger

	mu          sync.Mutex
	embedder    domain.Embedder
	generator   domain.Generator
	embedWarmed bool
	genWarmed   bool
}

// NewModelRegistry creates an empty registry backed by the factory.
func NewModelRegistry(factory ModelFactory, log *zap.Logger) *ModelRegistry {
	if log == nil {
		log = zap.NewNop()
	}
	return &ModelRegistry{factory: factory, log: log}
}

// Embedder returns the bound embedding client, binding it lazily.
func (r *ModelRegistry) Embedder() (domain.Embedder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.embedderLocked()
}

func (r *ModelRegistry) embedderLocked() (domain.Embedder, error) {
	if r.embedder == nil {
		emb, err := r.factory.NewEmbedder()
		if err != nil {
			return nil, err
		}
		r.embedder = emb
		r.log.Debug("embedding model registered", zap.String("model", emb.ModelName()))
	}
	return r.embedder, nil
}

// Generator returns the bound generation client, binding it lazily.
func (r *ModelRegistry) Generator() (domain.Generator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generatorLocked()
}

func (r *ModelRegistry) generatorLocked() (domain.Generator, error) {
	if r.generator == nil {
		gen, err := r.factory.NewGenerator()
		if err != nil {
			return nil, err
		}
		r.generator = gen
		r.log.Debug("generation model registered", zap.String("model", gen.ModelName()))
	}
	return r.generator, nil
}

// Configure registers both model bindings without forcing their expensive
// initialization. Idempotent.
func (r *ModelRegistry) Configure() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.embedderLocked(); err != nil {
		return err
	}
	_, err := r.generatorLocked()
	return err
}

// WarmEmbedder binds and eagerly initializes only the embedding model.
func (r *ModelRegistry) WarmEmbedder(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	emb, err := r.embedderLocked()
	if err != nil {
		return err
	}
	if r.embedWarmed {
		return nil
	}
	if err := warm(ctx, emb); err != nil {
		return err
	}
	r.embedWarmed = true
	return nil
}

// Warm binds and eagerly initializes both models.
func (r *ModelRegistry) Warm(ctx context.Context) error {
	if err := r.WarmEmbedder(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	gen, err := r.generatorLocked()
	if err != nil {
		return err
	}
	if r.genWarmed {
		return nil
	}
	if err := warm(ctx, gen); err != nil {
		return err
	}
	r.genWarmed = true
	return nil
}

func warm(ctx context.Context, v any) error {
	if w, ok := v.(domain.Warmable); ok {
		return w.Warm(ctx)
	}
	return nil
}
