package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
)

func TestSplitPacksWholeSentences(t *testing.T) {
	c := NewSentenceSplitter(20, 0)
	doc := domain.Document{ID: "doc", Content: "Aaa aaa. Bbb bbb. Ccc ccc. Ddd ddd."}

	chunks, err := c.Split([]domain.Document{doc})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Aaa aaa. Bbb bbb.", chunks[0].Text)
	assert.Equal(t, "Ccc ccc. Ddd ddd.", chunks[1].Text)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Text), 20)
	}
}

func TestSplitCarriesOverlapIntoNextChunk(t *testing.T) {
	c := NewSentenceSplitter(20, 9)
	doc := domain.Document{ID: "doc", Content: "Aaa aaa. Bbb bbb. Ccc ccc. Ddd ddd."}

	chunks, err := c.Split([]domain.Document{doc})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Aaa aaa. Bbb bbb.", chunks[0].Text)
	assert.Equal(t, "Bbb bbb. Ccc ccc.", chunks[1].Text)
	assert.Equal(t, "Ccc ccc. Ddd ddd.", chunks[2].Text)
}

func TestSplitAssignsSequentialChunkIDs(t *testing.T) {
	c := NewSentenceSplitter(20, 0)
	doc := domain.Document{ID: "notes", Content: "Aaa aaa. Bbb bbb. Ccc ccc. Ddd ddd."}

	chunks, err := c.Split([]domain.Document{doc})
	require.NoError(t, err)
	for i, ch := range chunks {
		assert.Equal(t, "notes", ch.DocumentID)
		assert.Equal(t, i, ch.Index)
	}
	assert.Equal(t, "notes:0", chunks[0].ChunkID)
	assert.Equal(t, "notes:1", chunks[1].ChunkID)
}

func TestSplitOversizedSentenceBecomesOwnChunk(t *testing.T) {
	c := NewSentenceSplitter(5, 2)
	doc := domain.Document{ID: "doc", Content: "This sentence is far too long for the budget!"}

	chunks, err := c.Split([]domain.Document{doc})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "This sentence is far too long for the budget!", chunks[0].Text)
}

func TestSplitContentWithoutTerminators(t *testing.T) {
	c := NewSentenceSplitter(512, 50)
	doc := domain.Document{ID: "doc", Content: "just a fragment without punctuation"}

	chunks, err := c.Split([]domain.Document{doc})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "just a fragment without punctuation", chunks[0].Text)
}

func TestSplitEmptyDocumentYieldsNoChunks(t *testing.T) {
	c := NewSentenceSplitter(512, 50)
	chunks, err := c.Split([]domain.Document{
		{ID: "empty", Content: ""},
		{ID: "blank", Content: "   \n  "},
	})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitClonesDocumentMetadata(t *testing.T) {
	c := NewSentenceSplitter(512, 50)
	doc := domain.Document{
		ID:       "doc",
		Content:  "One sentence only.",
		Metadata: map[string]any{"file_name": "doc.txt"},
	}

	chunks, err := c.Split([]domain.Document{doc})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "doc.txt", chunks[0].Metadata["file_name"])

	chunks[0].Metadata["file_name"] = "changed"
	assert.Equal(t, "doc.txt", doc.Metadata["file_name"])
}

func TestNewSentenceSplitterClampsInvalidValues(t *testing.T) {
	c := NewSentenceSplitter(-1, 9999)
	assert.Equal(t, 512, c.chunkSize)
	assert.Equal(t, 0, c.chunkOverlap)
}
