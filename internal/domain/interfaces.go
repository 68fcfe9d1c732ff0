package domain

import "context"

// DocumentLoader reads the raw document corpus from a directory.
type DocumentLoader interface {
	LoadDocuments(ctx context.Context, dir string) ([]Document, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Split(documents []Document) ([]Chunk, error)
}

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	ModelName() string
}

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ModelName() string
}

// Warmable is implemented by providers whose expensive initialization
// can be forced ahead of first use.
type Warmable interface {
	Warm(ctx context.Context) error
}

// ModelSource supplies the process-wide embedding and generation bindings.
type ModelSource interface {
	Embedder() (Embedder, error)
	Generator() (Generator, error)
}

// Index is an opaque handle to a built or loaded vector index.
type Index interface {
	// Size reports the number of indexed chunks.
	Size() int
}

// PipelineResponse is the raw outcome of one retrieval/generation round trip.
type PipelineResponse struct {
	Answer   string
	Passages []Source
}

// QueryPipeline runs a question through retrieval and answer synthesis.
type QueryPipeline interface {
	Run(ctx context.Context, question string) (*PipelineResponse, error)
}

// Retriever is the retrieval/generation collaborator: it owns index
// construction, persistence, and query pipeline assembly.
type Retriever interface {
	BuildIndex(ctx context.Context, chunks []Chunk) (Index, error)
	Persist(index Index, dir string) error
	LoadFromPersisted(ctx context.Context, dir string) (Index, error)
	NewPipeline(index Index, topK int, mode ResponseMode) (QueryPipeline, error)
}
