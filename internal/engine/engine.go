// Package engine turns natural-language input into retrieval-grounded
// answers, optionally aware of conversation history.
package engine

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"ragchat/internal/config"
	"ragchat/internal/conversation"
	"ragchat/internal/domain"
	"ragchat/internal/index"
)

// Engine composes the loaded index with the generation model into a query
// pipeline and owns the conversation state of one session.
type Engine struct {
	cfg      *config.Config
	log      *zap.Logger
	pipeline domain.QueryPipeline
	conv     *conversation.Store
}

// New loads the index through the store (triggering the at-most-once
// load/build) and assembles the query pipeline.
func New(ctx context.Context, cfg *config.Config, store *index.Store, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ix, err := store.LoadIndex(ctx)
	if err != nil {
		return nil, err
	}
	pipeline, err := store.NewPipeline(ix)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:      cfg,
		log:      log,
		pipeline: pipeline,
		conv:     conversation.New(cfg.MaxHistory),
	}, nil
}

// Query runs question through the pipeline and assembles a QueryResult.
// When recordInHistory is set, the question and answer are appended to
// the conversation (with sources attached to the assistant message).
// Pipeline failures never escape: they come back as an error-carrying
// result with empty sources, and nothing is appended to history.
func (e *Engine) Query(ctx context.Context, question string, recordInHistory bool) *domain.QueryResult {
	start := time.Now()
	resp, err := e.pipeline.Run(ctx, question)
	if err != nil {
		e.log.Error("query pipeline failed", zap.Error(err))
		return &domain.QueryResult{
			Question:       question,
			Answer:         "Error: " + err.Error(),
			Sources:        []domain.Source{},
			ProcessingTime: time.Since(start).Seconds(),
			Error:          err.Error(),
		}
	}
	result := &domain.QueryResult{
		Question:       question,
		Answer:         resp.Answer,
		Sources:        resp.Passages,
		ProcessingTime: time.Since(start).Seconds(),
	}
	if recordInHistory {
		e.conv.AddUser(question, nil)
		e.conv.AddAssistant(resp.Answer, map[string]any{"sources": resp.Passages})
	}
	return result
}

// Chat answers a message with conversation context. With prior history it
// queries through an augmented prompt (transcript + message + the
// configured instructional framing) that is never itself stored; only the
// original message and the answer enter history. Without history it
// degenerates to a plain recorded Query.
func (e *Engine) Chat(ctx context.Context, message string) *domain.QueryResult {
	if e.conv.Len() == 0 {
		return e.Query(ctx, message, true)
	}
	augmented := e.augmentedPrompt(message)
	result := e.Query(ctx, augmented, false)
	// Report the user's actual message, not the synthetic prompt.
	result.Question = message
	if !result.Failed() {
		e.conv.AddUser(message, nil)
		e.conv.AddAssistant(result.Answer, nil)
	}
	return result
}

func (e *Engine) augmentedPrompt(message string) string {
	prompt := strings.ReplaceAll(e.cfg.ChatTemplate, "{{history}}", e.conv.RenderTranscript())
	return strings.ReplaceAll(prompt, "{{message}}", message)
}

// History returns the visible conversation transcript, oldest first.
func (e *Engine) History() []domain.Message { return e.conv.History() }

// ResetConversation clears the conversation history.
func (e *Engine) ResetConversation() {
	e.conv.Clear()
	e.log.Info("conversation history reset")
}
