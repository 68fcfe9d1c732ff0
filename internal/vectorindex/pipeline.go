package vectorindex

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"ragchat/internal/domain"
)

const compactPromptTemplate = "Context information is below.\n" +
	"---------------------\n%s\n---------------------\n" +
	"Given the context information and not prior knowledge, answer the question.\n" +
	"Question: %s\nAnswer:"

const refineInitialTemplate = "Context information is below.\n" +
	"---------------------\n%s\n---------------------\n" +
	"Given the context information and not prior knowledge, answer the question.\n" +
	"Question: %s\nAnswer:"

const refinePromptTemplate = "The original question is: %s\n" +
	"We have an existing answer: %s\n" +
	"We have the opportunity to refine it with more context below.\n" +
	"---------------------\n%s\n---------------------\n" +
	"Given the new context, refine the answer. If the context is not useful, repeat the existing answer.\nRefined answer:"

// Pipeline runs questions through retrieval and answer synthesis against
// one index. Built once per engine; safe to reuse across queries.
type Pipeline struct {
	index     *Index
	embedder  domain.Embedder
	generator domain.Generator
	topK      int
	mode      domain.ResponseMode
	log       *zap.Logger
}

// Run embeds the question, retrieves the topK passages, and synthesizes
// an answer according to the configured response mode.
func (p *Pipeline) Run(ctx context.Context, question string) (*domain.PipelineResponse, error) {
	vec, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	hits := p.index.search(vec, p.topK)
	passages := make([]domain.Source, 0, len(hits))
	for _, hit := range hits {
		md := make(map[string]any, len(hit.chunk.Metadata)+2)
		for k, v := range hit.chunk.Metadata {
			md[k] = v
		}
		md["chunk_id"] = hit.chunk.ChunkID
		md["score"] = hit.score
		passages = append(passages, domain.Source{Text: hit.chunk.Text, Metadata: md})
	}

	var answer string
	switch p.mode {
	case domain.ResponseRefine:
		answer, err = p.refine(ctx, question, passages)
	default:
		answer, err = p.compact(ctx, question, passages)
	}
	if err != nil {
		return nil, err
	}
	return &domain.PipelineResponse{Answer: answer, Passages: passages}, nil
}

// compact stuffs all passages into one prompt.
func (p *Pipeline) compact(ctx context.Context, question string, passages []domain.Source) (string, error) {
	texts := make([]string, len(passages))
	for i, src := range passages {
		texts[i] = src.Text
	}
	prompt := fmt.Sprintf(compactPromptTemplate, strings.Join(texts, "\n\n"), question)
	answer, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return answer, nil
}

// refine feeds passages one at a time, refining the running answer.
func (p *Pipeline) refine(ctx context.Context, question string, passages []domain.Source) (string, error) {
	if len(passages) == 0 {
		return p.compact(ctx, question, nil)
	}
	answer, err := p.generator.Generate(ctx, fmt.Sprintf(refineInitialTemplate, passages[0].Text, question))
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	for _, src := range passages[1:] {
		answer, err = p.generator.Generate(ctx, fmt.Sprintf(refinePromptTemplate, question, answer, src.Text))
		if err != nil {
			return "", fmt.Errorf("refine answer: %w", err)
		}
	}
	return answer, nil
}
