package answer

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/domain/question"
)

type mockChat struct {
	result   domain.ChatResult
	err      error
	messages []domain.ChatMessage
}

func (m *mockChat) Complete(_ context.Context, messages []domain.ChatMessage) (domain.ChatResult, error) {
	m.messages = messages
	return m.result, m.err
}

func mustQuestion(t *testing.T, raw string) question.Question {
	t.Helper()
	q, err := question.New(raw)
	if err != nil {
		t.Fatalf("question.New: %v", err)
	}
	return q
}

func TestSynthesize_BuildsPromptAndAnswer(t *testing.T) {
	chat := &mockChat{result: domain.ChatResult{Content: "Oxylabs provides proxies for web scraping."}}
	svc := New(chat, "", zap.NewNop())

	chunks := []chunk.Chunk{
		chunk.New("data/a.txt", "Oxylabs provides proxies for web scraping.", 0),
		chunk.New("data/b.txt", "Residential proxies rotate IPs.", 0),
	}
	ans, err := svc.Synthesize(context.Background(), mustQuestion(t, "  What does Oxylabs provide? "), chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ans.Text() != "Oxylabs provides proxies for web scraping." {
		t.Errorf("unexpected answer %q", ans.Text())
	}
	if !reflect.DeepEqual(ans.Sources(), []string{"data/a.txt", "data/b.txt"}) {
		t.Errorf("unexpected sources %v", ans.Sources())
	}

	if len(chat.messages) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(chat.messages))
	}
	wantSystem := "You are an assistant for question-answering tasks about Oxylabs developer documentation. " +
		"Use the following pieces of retrieved context to answer the question. " +
		"If you don't know the answer, say that you don't know. " +
		"Use five sentences maximum and keep the answer concise.\n\n" +
		"Oxylabs provides proxies for web scraping.\n\nResidential proxies rotate IPs."
	if chat.messages[0].Role != domain.RoleSystem || chat.messages[0].Content != wantSystem {
		t.Errorf("unexpected system message:\n%q", chat.messages[0].Content)
	}
	if chat.messages[1].Role != domain.RoleUser || chat.messages[1].Content != "  What does Oxylabs provide? " {
		t.Errorf("expected the verbatim question, got %q", chat.messages[1].Content)
	}
}

func TestSynthesize_CustomSubject(t *testing.T) {
	svc := New(&mockChat{}, "Acme API", zap.NewNop())
	prompt := svc.SystemPrompt(nil)
	want := "You are an assistant for question-answering tasks about Acme API. " +
		"Use the following pieces of retrieved context to answer the question. " +
		"If you don't know the answer, say that you don't know. " +
		"Use five sentences maximum and keep the answer concise.\n\n"
	if prompt != want {
		t.Errorf("unexpected prompt:\n%q", prompt)
	}
}

func TestSynthesize_ChatError(t *testing.T) {
	chat := &mockChat{err: domain.ErrChatProviderError}
	svc := New(chat, "", zap.NewNop())

	_, err := svc.Synthesize(context.Background(), mustQuestion(t, "hello there"), nil)
	if !errors.Is(err, domain.ErrChatProviderError) {
		t.Fatalf("expected ErrChatProviderError, got %v", err)
	}
}
