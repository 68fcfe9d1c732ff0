// Package vectorindex is the retrieval/generation collaborator: it builds,
// persists, loads, and queries a brute-force cosine similarity index over
// chunk embeddings.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"ragchat/internal/domain"
)

// Index holds indexed chunks and their embedding vectors. Vectors are
// L2-normalized at insert so similarity reduces to a dot product.
type Index struct {
	modelID   string
	dimension int
	chunks    []domain.Chunk
	vectors   [][]float64
}

// Size reports the number of indexed chunks.
func (ix *Index) Size() int { return len(ix.chunks) }

// ModelID reports the embedding model the vectors were produced with.
func (ix *Index) ModelID() string { return ix.modelID }

// build embeds every chunk with the given embedder.
func build(ctx context.Context, embedder domain.Embedder, chunks []domain.Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return nil, errors.New("no chunks to index")
	}
	ix := &Index{
		modelID: embedder.ModelName(),
		chunks:  make([]domain.Chunk, 0, len(chunks)),
		vectors: make([][]float64, 0, len(chunks)),
	}
	for _, chunk := range chunks {
		vec, err := embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %s: %w", chunk.ChunkID, err)
		}
		if ix.dimension == 0 {
			ix.dimension = len(vec)
		}
		if len(vec) != ix.dimension {
			return nil, fmt.Errorf("embed chunk %s: dimension %d, want %d", chunk.ChunkID, len(vec), ix.dimension)
		}
		normalize(vec)
		ix.chunks = append(ix.chunks, chunk)
		ix.vectors = append(ix.vectors, vec)
	}
	return ix, nil
}

type scoredChunk struct {
	chunk domain.Chunk
	score float64
}

// search returns the topK most similar chunks to the query vector.
func (ix *Index) search(query []float64, topK int) []scoredChunk {
	if topK <= 0 || topK > len(ix.vectors) {
		topK = len(ix.vectors)
	}
	normalize(query)
	scored := make([]scoredChunk, len(ix.vectors))
	for i, vec := range ix.vectors {
		scored[i] = scoredChunk{chunk: ix.chunks[i], score: dot(vec, query)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	return scored[:topK]
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func normalize(v []float64) {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] /= norm
	}
}
