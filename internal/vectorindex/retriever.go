package vectorindex

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ragchat/internal/domain"
)

// Retriever implements domain.Retriever over the in-process index. Model
// bindings are resolved through the supplied ModelSource at call time so
// lazy initialization is preserved.
type Retriever struct {
	models domain.ModelSource
	log    *zap.Logger
}

// NewRetriever creates the retrieval collaborator.
func NewRetriever(models domain.ModelSource, log *zap.Logger) *Retriever {
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{models: models, log: log}
}

// BuildIndex embeds chunks into a fresh index.
func (r *Retriever) BuildIndex(ctx context.Context, chunks []domain.Chunk) (domain.Index, error) {
	embedder, err := r.models.Embedder()
	if err != nil {
		return nil, err
	}
	ix, err := build(ctx, embedder, chunks)
	if err != nil {
		return nil, err
	}
	r.log.Info("built vector index",
		zap.Int("chunks", ix.Size()),
		zap.Int("dimension", ix.dimension),
		zap.String("model", ix.modelID))
	return ix, nil
}

// Persist writes the index artifacts under dir.
func (r *Retriever) Persist(index domain.Index, dir string) error {
	ix, ok := index.(*Index)
	if !ok {
		return fmt.Errorf("persist: foreign index handle %T", index)
	}
	return ix.persist(dir)
}

// LoadFromPersisted reconstructs an index from dir, rejecting caches
// built with a different embedding model than currently configured.
func (r *Retriever) LoadFromPersisted(ctx context.Context, dir string) (domain.Index, error) {
	embedder, err := r.models.Embedder()
	if err != nil {
		return nil, err
	}
	ix, err := load(dir, embedder.ModelName())
	if err != nil {
		return nil, err
	}
	r.log.Info("loaded vector index from cache",
		zap.String("dir", dir),
		zap.Int("chunks", ix.Size()))
	return ix, nil
}

// NewPipeline assembles a query pipeline over the index.
func (r *Retriever) NewPipeline(index domain.Index, topK int, mode domain.ResponseMode) (domain.QueryPipeline, error) {
	ix, ok := index.(*Index)
	if !ok {
		return nil, fmt.Errorf("pipeline: foreign index handle %T", index)
	}
	embedder, err := r.models.Embedder()
	if err != nil {
		return nil, err
	}
	generator, err := r.models.Generator()
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 4
	}
	return &Pipeline{
		index:     ix,
		embedder:  embedder,
		generator: generator,
		topK:      topK,
		mode:      mode,
		log:       r.log,
	}, nil
}
