// Package testutil provides fake collaborators with call counters for
// exercising the index, engine, and app layers without real models.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"ragchat/internal/domain"
)

// FakeEmbedder returns deterministic vectors and counts calls.
type FakeEmbedder struct {
	Model   string
	Vectors map[string][]float64
	Err     error

	EmbedCalls int32
	WarmCalls  int32
}

func (e *FakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	atomic.AddInt32(&e.EmbedCalls, 1)
	if e.Err != nil {
		return nil, e.Err
	}
	if v, ok := e.Vectors[text]; ok {
		return v, nil
	}
	// Cheap deterministic fallback so any text embeds.
	sum := 0.0
	for _, r := range text {
		sum += float64(r)
	}
	return []float64{sum, float64(len(text)), 1}, nil
}

func (e *FakeEmbedder) ModelName() string {
	if e.Model == "" {
		return "fake-embedding"
	}
	return e.Model
}

func (e *FakeEmbedder) Warm(ctx context.Context) error {
	atomic.AddInt32(&e.WarmCalls, 1)
	return e.Err
}

// FakeGenerator echoes prompts and counts calls.
type FakeGenerator struct {
	Response string
	Err      error

	GenerateCalls int32
	WarmCalls     int32

	mu      sync.Mutex
	Prompts []string
}

func (g *FakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt32(&g.GenerateCalls, 1)
	g.mu.Lock()
	g.Prompts = append(g.Prompts, prompt)
	g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	if g.Response != "" {
		return g.Response, nil
	}
	return "generated answer", nil
}

func (g *FakeGenerator) ModelName() string { return "fake-generation" }

func (g *FakeGenerator) Warm(ctx context.Context) error {
	atomic.AddInt32(&g.WarmCalls, 1)
	return nil
}

// FakeFactory satisfies index.ModelFactory and counts constructions.
type FakeFactory struct {
	Embedder  *FakeEmbedder
	Generator *FakeGenerator
	Err       error

	EmbedderCalls  int32
	GeneratorCalls int32
}

func NewFakeFactory() *FakeFactory {
	return &FakeFactory{Embedder: &FakeEmbedder{}, Generator: &FakeGenerator{}}
}

func (f *FakeFactory) NewEmbedder() (domain.Embedder, error) {
	atomic.AddInt32(&f.EmbedderCalls, 1)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Embedder, nil
}

func (f *FakeFactory) NewGenerator() (domain.Generator, error) {
	atomic.AddInt32(&f.GeneratorCalls, 1)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Generator, nil
}

// FakeLoader serves a canned corpus.
type FakeLoader struct {
	Docs []domain.Document
	Err  error

	Calls int32
}

func (l *FakeLoader) LoadDocuments(ctx context.Context, dir string) ([]domain.Document, error) {
	atomic.AddInt32(&l.Calls, 1)
	if l.Err != nil {
		return nil, l.Err
	}
	if l.Docs == nil {
		return []domain.Document{{ID: "doc1", Path: "doc1.txt", Content: "Fake content."}}, nil
	}
	return l.Docs, nil
}

// FakeChunker returns canned chunks.
type FakeChunker struct {
	Chunks []domain.Chunk
	Err    error

	Calls int32
}

func (c *FakeChunker) Split(docs []domain.Document) ([]domain.Chunk, error) {
	atomic.AddInt32(&c.Calls, 1)
	if c.Err != nil {
		return nil, c.Err
	}
	if c.Chunks == nil {
		return []domain.Chunk{{DocumentID: "doc1", ChunkID: "doc1:0", Text: "Fake content."}}, nil
	}
	return c.Chunks, nil
}

// FakeIndex is a trivial index handle.
type FakeIndex struct {
	N int
}

func (ix *FakeIndex) Size() int { return ix.N }

// FakePipeline records questions and serves a canned response.
type FakePipeline struct {
	Answer   string
	Passages []domain.Source
	Err      error

	mu        sync.Mutex
	Questions []string
}

func (p *FakePipeline) Run(ctx context.Context, question string) (*domain.PipelineResponse, error) {
	p.mu.Lock()
	p.Questions = append(p.Questions, question)
	p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	answer := p.Answer
	if answer == "" {
		answer = "fake answer"
	}
	return &domain.PipelineResponse{Answer: answer, Passages: p.Passages}, nil
}

// Asked returns a copy of the questions the pipeline has seen.
func (p *FakePipeline) Asked() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Questions))
	copy(out, p.Questions)
	return out
}

// FakeRetriever counts collaborator calls and hands out fake handles.
type FakeRetriever struct {
	Pipeline *FakePipeline
	BuildErr error
	LoadErr  error

	BuildCalls    int32
	PersistCalls  int32
	LoadCalls     int32
	PipelineCalls int32

	mu             sync.Mutex
	LastPersistDir string
}

func NewFakeRetriever() *FakeRetriever {
	return &FakeRetriever{Pipeline: &FakePipeline{}}
}

func (r *FakeRetriever) BuildIndex(ctx context.Context, chunks []domain.Chunk) (domain.Index, error) {
	atomic.AddInt32(&r.BuildCalls, 1)
	if r.BuildErr != nil {
		return nil, r.BuildErr
	}
	return &FakeIndex{N: len(chunks)}, nil
}

func (r *FakeRetriever) Persist(index domain.Index, dir string) error {
	atomic.AddInt32(&r.PersistCalls, 1)
	r.mu.Lock()
	r.LastPersistDir = dir
	r.mu.Unlock()
	return nil
}

func (r *FakeRetriever) LoadFromPersisted(ctx context.Context, dir string) (domain.Index, error) {
	atomic.AddInt32(&r.LoadCalls, 1)
	if r.LoadErr != nil {
		return nil, r.LoadErr
	}
	return &FakeIndex{N: 1}, nil
}

func (r *FakeRetriever) NewPipeline(index domain.Index, topK int, mode domain.ResponseMode) (domain.QueryPipeline, error) {
	atomic.AddInt32(&r.PipelineCalls, 1)
	return r.Pipeline, nil
}

// WriteCacheSentinels drops the two required artifacts into dir so the
// cache validity predicate reports true.
func WriteCacheSentinels(dir string) error {
	for _, name := range []string{domain.DocStoreFile, domain.IndexStoreFile} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			return err
		}
	}
	return nil
}
