package llm

import (
	"context"
	"errors"
	"testing"
)

type fakeCompleter struct {
	reply   string
	err     error
	gotSys  string
	gotHist []Message
}

func (f *fakeCompleter) Complete(_ context.Context, system string, history []Message) (string, error) {
	f.gotSys = system
	f.gotHist = append([]Message(nil), history...)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func TestGenerateTextCommitsHistory(t *testing.T) {
	f := &fakeCompleter{reply: "Rough."}
	c := NewConversation(f, "be brief")

	reply, err := c.GenerateText(context.Background(), "I'm tired.")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if reply != "Rough." {
		t.Fatalf("reply %q", reply)
	}
	if f.gotSys != "be brief" {
		t.Fatalf("system prompt not forwarded: %q", f.gotSys)
	}
	if len(f.gotHist) != 1 || f.gotHist[0].Content != "I'm tired." || f.gotHist[0].Role != "user" {
		t.Fatalf("history sent to backend: %+v", f.gotHist)
	}
	if c.HistoryLen() != 2 {
		t.Fatalf("committed turns: %d", c.HistoryLen())
	}

	// Second turn sees both prior turns plus the new user message.
	if _, err := c.GenerateText(context.Background(), "I got in!"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(f.gotHist) != 3 {
		t.Fatalf("second turn history length: %d", len(f.gotHist))
	}
}

func TestGenerateTextFailureLeavesHistoryClean(t *testing.T) {
	f := &fakeCompleter{err: errors.New("ollama down")}
	c := NewConversation(f, "be brief")

	if _, err := c.GenerateText(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error")
	}
	if c.HistoryLen() != 0 {
		t.Fatalf("failed exchange must not be committed, got %d turns", c.HistoryLen())
	}
}

func TestGenerateTextEmptyReplyIsError(t *testing.T) {
	f := &fakeCompleter{reply: "   "}
	c := NewConversation(f, "")
	if _, err := c.GenerateText(context.Background(), "hello"); err == nil {
		t.Fatalf("blank reply must be an error")
	}
	if c.HistoryLen() != 0 {
		t.Fatalf("blank exchange must not be committed")
	}
}

func TestReset(t *testing.T) {
	f := &fakeCompleter{reply: "Nice."}
	c := NewConversation(f, "")
	if _, err := c.GenerateText(context.Background(), "hi"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	c.Reset()
	if c.HistoryLen() != 0 {
		t.Fatalf("reset must clear history")
	}
}
