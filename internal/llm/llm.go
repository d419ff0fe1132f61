// Package llm generates assistant replies with a local or remote language
// model, keeping per-session conversation history.
package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"palaver/internal/config"
)

// Message is one turn of conversation history.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Completer produces one assistant reply for a history. Implementations may
// be slow and may fail; the conversation treats failures as a skipped turn.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, history []Message) (string, error)
}

// Conversation is a Completer plus history. Failed exchanges are not added
// to the history, so one bad round trip cannot poison the context window.
type Conversation struct {
	completer Completer
	system    string

	mu      sync.Mutex
	history []Message
}

// NewConversation starts an empty conversation with the given system prompt.
func NewConversation(completer Completer, systemPrompt string) *Conversation {
	return &Conversation{
		completer: completer,
		system:    strings.TrimSpace(systemPrompt),
	}
}

// GenerateText sends the user's text and returns the assistant's reply.
// On success both turns are committed to history.
func (c *Conversation) GenerateText(ctx context.Context, text string) (string, error) {
	c.mu.Lock()
	history := make([]Message, len(c.history), len(c.history)+1)
	copy(history, c.history)
	c.mu.Unlock()
	history = append(history, Message{Role: "user", Content: text})

	reply, err := c.completer.Complete(ctx, c.system, history)
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("completion: empty reply")
	}

	c.mu.Lock()
	c.history = append(c.history, Message{Role: "user", Content: text}, Message{Role: "assistant", Content: reply})
	c.mu.Unlock()
	return reply, nil
}

// Reset clears the history back to just the system prompt.
func (c *Conversation) Reset() {
	c.mu.Lock()
	c.history = nil
	c.mu.Unlock()
}

// HistoryLen reports the number of committed turns.
func (c *Conversation) HistoryLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}

// NewCompleter builds the configured backend.
func NewCompleter(cfg *config.Config) (Completer, error) {
	return newAnyLLMCompleter(cfg)
}
