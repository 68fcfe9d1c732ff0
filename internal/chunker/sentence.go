// Package chunker splits documents into retrieval chunks on sentence
// boundaries.
package chunker

import (
	"regexp"
	"strconv"
	"strings"

	"ragchat/internal/domain"
)

// SentenceSplitter packs whole sentences into chunks of at most chunkSize
// characters, carrying chunkOverlap characters of trailing sentences into
// the next chunk.
type SentenceSplitter struct {
	chunkSize    int
	chunkOverlap int
	splitter     *regexp.Regexp
}

// NewSentenceSplitter creates a splitter with the given character budget
// and overlap. Invalid values fall back to safe defaults.
func NewSentenceSplitter(chunkSize, chunkOverlap int) *SentenceSplitter {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	return &SentenceSplitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		splitter:     regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?]+)`),
	}
}

// Split chunks every document in order and carries document metadata onto
// each produced chunk.
func (c *SentenceSplitter) Split(documents []domain.Document) ([]domain.Chunk, error) {
	var all []domain.Chunk
	for _, doc := range documents {
		chunks := c.splitDocument(doc)
		all = append(all, chunks...)
	}
	return all, nil
}

func (c *SentenceSplitter) splitDocument(doc domain.Document) []domain.Chunk {
	sentences := c.sentences(doc.Content)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []domain.Chunk
	var current []string
	currentLen := 0
	idx := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		text := strings.Join(current, " ")
		chunks = append(chunks, domain.Chunk{
			DocumentID: doc.ID,
			ChunkID:    doc.ID + ":" + strconv.Itoa(idx),
			Text:       text,
			Index:      idx,
			Metadata:   cloneMetadata(doc.Metadata),
		})
		idx++

		// Seed the next chunk with trailing sentences up to the overlap budget.
		var carry []string
		carryLen := 0
		for i := len(current) - 1; i >= 0 && carryLen < c.chunkOverlap; i-- {
			carry = append([]string{current[i]}, carry...)
			carryLen += len(current[i]) + 1
		}
		current = carry
		currentLen = carryLen
	}

	for _, sent := range sentences {
		if currentLen > 0 && currentLen+len(sent)+1 > c.chunkSize {
			flush()
		}
		current = append(current, sent)
		currentLen += len(sent) + 1
		// A single sentence longer than the budget becomes its own chunk.
		if currentLen > c.chunkSize && len(current) == 1 {
			overlap := c.chunkOverlap
			c.chunkOverlap = 0
			flush()
			c.chunkOverlap = overlap
		}
	}
	// Avoid emitting a trailing chunk that is pure overlap carry.
	if currentLen > 0 && hasNewContent(chunks, current) {
		text := strings.Join(current, " ")
		chunks = append(chunks, domain.Chunk{
			DocumentID: doc.ID,
			ChunkID:    doc.ID + ":" + strconv.Itoa(idx),
			Text:       text,
			Index:      idx,
			Metadata:   cloneMetadata(doc.Metadata),
		})
	}
	return chunks
}

func (c *SentenceSplitter) sentences(content string) []string {
	found := c.splitter.FindAllString(content, -1)
	if len(found) == 0 {
		trimmed := strings.TrimSpace(content)
		if trimmed == "" {
			return nil
		}
		found = []string{trimmed}
	}
	out := found[:0]
	for _, s := range found {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func hasNewContent(chunks []domain.Chunk, current []string) bool {
	if len(chunks) == 0 {
		return true
	}
	last := chunks[len(chunks)-1].Text
	return !strings.HasSuffix(last, strings.Join(current, " "))
}

func cloneMetadata(md map[string]any) map[string]any {
	out := make(map[string]any, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
