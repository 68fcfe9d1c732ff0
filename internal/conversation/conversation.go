// Package conversation holds the bounded, ordered message history of a
// single chat session.
package conversation

import (
	"strings"

	"ragchat/internal/domain"
)

// DefaultMaxHistory bounds history length when no limit is configured.
const DefaultMaxHistory = 10

// Store is a capacity-bounded FIFO of conversation messages, oldest first.
// It is owned by exactly one engine instance and is not safe for
// concurrent use.
type Store struct {
	maxHistory int
	messages   []domain.Message
}

// New creates a store keeping at most maxHistory messages.
func New(maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Store{maxHistory: maxHistory}
}

// Append adds a message at the tail, evicting from the head when the
// bound is exceeded.
func (s *Store) Append(msg domain.Message) {
	s.messages = append(s.messages, msg)
	if len(s.messages) > s.maxHistory {
		trimmed := make([]domain.Message, s.maxHistory)
		copy(trimmed, s.messages[len(s.messages)-s.maxHistory:])
		s.messages = trimmed
	}
}

// AddUser appends a user message.
func (s *Store) AddUser(content string, metadata map[string]any) {
	s.Append(domain.NewMessage(domain.RoleUser, content, metadata))
}

// AddAssistant appends an assistant message.
func (s *Store) AddAssistant(content string, metadata map[string]any) {
	s.Append(domain.NewMessage(domain.RoleAssistant, content, metadata))
}

// History returns the retained messages, oldest first. The returned
// slice is a copy; callers cannot mutate the store through it.
func (s *Store) History() []domain.Message {
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len reports the number of retained messages.
func (s *Store) Len() int { return len(s.messages) }

// RenderTranscript formats history as one "User:"/"Assistant:" line per
// message in chronological order, for inclusion in a generation prompt.
func (s *Store) RenderTranscript() string {
	lines := make([]string, 0, len(s.messages))
	for _, msg := range s.messages {
		prefix := "Assistant: "
		if msg.Role == domain.RoleUser {
			prefix = "User: "
		}
		lines = append(lines, prefix+msg.Content)
	}
	return strings.Join(lines, "\n")
}

// Clear empties the history.
func (s *Store) Clear() {
	s.messages = nil
}
