package engine_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/config"
	"ragchat/internal/domain"
	"ragchat/internal/engine"
	"ragchat/internal/index"
	"ragchat/internal/testutil"
)

type engineFixture struct {
	cfg       *config.Config
	retriever *testutil.FakeRetriever
	engine    *engine.Engine
}

func newEngineFixture(t *testing.T, maxHistory int) *engineFixture {
	t.Helper()
	cfg := &config.Config{
		DataDir:        t.TempDir(),
		IndexCacheDir:  filepath.Join(t.TempDir(), "cache"),
		SimilarityTopK: 4,
		ResponseMode:   domain.ResponseCompact,
		MaxHistory:     maxHistory,
		ChatTemplate:   config.DefaultChatTemplate,
	}
	retriever := testutil.NewFakeRetriever()
	registry := index.NewModelRegistry(testutil.NewFakeFactory(), nil)
	store := index.NewStore(cfg, registry, &testutil.FakeLoader{}, &testutil.FakeChunker{}, retriever, nil)

	eng, err := engine.New(context.Background(), cfg, store, nil)
	require.NoError(t, err)
	return &engineFixture{cfg: cfg, retriever: retriever, engine: eng}
}

func TestQueryRecordsHistory(t *testing.T) {
	f := newEngineFixture(t, 10)
	f.retriever.Pipeline.Answer = "stacks are LIFO"
	f.retriever.Pipeline.Passages = []domain.Source{
		{Text: "a stack is...", Metadata: map[string]any{"file_name": "stacks.md"}},
	}

	result := f.engine.Query(context.Background(), "What is a stack?", true)
	require.False(t, result.Failed())
	assert.Equal(t, "What is a stack?", result.Question)
	assert.Equal(t, "stacks are LIFO", result.Answer)
	require.Len(t, result.Sources, 1)

	history := f.engine.History()
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, "What is a stack?", history[0].Content)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
	assert.Equal(t, "stacks are LIFO", history[1].Content)
	assert.NotNil(t, history[1].Metadata["sources"])
}

func TestQueryWithoutRecordingLeavesHistoryEmpty(t *testing.T) {
	f := newEngineFixture(t, 10)
	result := f.engine.Query(context.Background(), "anything", false)
	require.False(t, result.Failed())
	assert.Empty(t, f.engine.History())
}

func TestQueryFailureProducesErrorResult(t *testing.T) {
	f := newEngineFixture(t, 10)
	f.retriever.Pipeline.Err = assert.AnError

	result := f.engine.Query(context.Background(), "broken", true)
	require.True(t, result.Failed())
	assert.Equal(t, "broken", result.Question)
	assert.Contains(t, result.Answer, "Error: ")
	assert.NotNil(t, result.Sources)
	assert.Empty(t, result.Sources)
	// Failures never pollute the conversation.
	assert.Empty(t, f.engine.History())
}

func TestChatWithoutHistoryIsPlainQuery(t *testing.T) {
	f := newEngineFixture(t, 10)

	result := f.engine.Chat(context.Background(), "What is a queue?")
	require.False(t, result.Failed())
	assert.Equal(t, "What is a queue?", result.Question)

	asked := f.retriever.Pipeline.Asked()
	require.Len(t, asked, 1)
	assert.Equal(t, "What is a queue?", asked[0])

	history := f.engine.History()
	require.Len(t, history, 2)
	assert.Equal(t, "What is a queue?", history[0].Content)
}

func TestChatWithHistoryAugmentsPrompt(t *testing.T) {
	f := newEngineFixture(t, 10)
	f.retriever.Pipeline.Answer = "first answer"
	_ = f.engine.Chat(context.Background(), "What is a queue?")

	f.retriever.Pipeline.Answer = "second answer"
	result := f.engine.Chat(context.Background(), "And a deque?")
	require.False(t, result.Failed())
	assert.Equal(t, "And a deque?", result.Question)

	asked := f.retriever.Pipeline.Asked()
	require.Len(t, asked, 2)
	augmented := asked[1]
	assert.Contains(t, augmented, "User: What is a queue?")
	assert.Contains(t, augmented, "Assistant: first answer")
	assert.Contains(t, augmented, "And a deque?")
	assert.NotEqual(t, "And a deque?", augmented)

	// Only the original message and answer enter history; the synthetic
	// prompt never does.
	history := f.engine.History()
	require.Len(t, history, 4)
	assert.Equal(t, "And a deque?", history[2].Content)
	assert.Equal(t, "second answer", history[3].Content)
	for _, msg := range history {
		assert.NotContains(t, msg.Content, "conversation history")
	}
}

func TestChatFailureLeavesHistoryUntouched(t *testing.T) {
	f := newEngineFixture(t, 10)
	_ = f.engine.Chat(context.Background(), "seed message")
	require.Len(t, f.engine.History(), 2)

	f.retriever.Pipeline.Err = assert.AnError
	result := f.engine.Chat(context.Background(), "doomed message")
	require.True(t, result.Failed())
	assert.Equal(t, "doomed message", result.Question)
	assert.Len(t, f.engine.History(), 2)
}

func TestResetConversation(t *testing.T) {
	f := newEngineFixture(t, 10)
	_ = f.engine.Chat(context.Background(), "before reset")
	require.NotEmpty(t, f.engine.History())

	f.engine.ResetConversation()
	assert.Empty(t, f.engine.History())

	// The next chat starts a fresh conversation with no augmentation.
	_ = f.engine.Chat(context.Background(), "after reset")
	asked := f.retriever.Pipeline.Asked()
	assert.Equal(t, "after reset", asked[len(asked)-1])
}

func TestChatHistoryStaysBounded(t *testing.T) {
	f := newEngineFixture(t, 4)
	for i := 0; i < 6; i++ {
		_ = f.engine.Chat(context.Background(), fmt.Sprintf("message %d", i))
	}
	history := f.engine.History()
	assert.Len(t, history, 4)
	assert.Equal(t, "message 4", history[0].Content)
}
