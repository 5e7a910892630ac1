package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	domanswer "github.com/kailas-cloud/docqa/internal/domain/answer"
	"github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/domain/question"
)

// DefaultSubject is the documentation set named in the system prompt.
const DefaultSubject = "Oxylabs developer documentation"

const contextSeparator = "\n\n"

// Service turns retrieved chunks into an answer with a chat model.
type Service struct {
	chat    ChatCompleter
	subject string
	logger  *zap.Logger
}

// New creates an answer service. An empty subject falls back to DefaultSubject.
func New(chat ChatCompleter, subject string, logger *zap.Logger) *Service {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Service{chat: chat, subject: subject, logger: logger}
}

// Synthesize asks the chat model to answer q using only chunks as context.
func (s *Service) Synthesize(
	ctx context.Context, q question.Question, chunks []chunk.Chunk,
) (domanswer.Answer, error) {
	messages := []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: s.SystemPrompt(chunks)},
		{Role: domain.RoleUser, Content: q.Text()},
	}

	res, err := s.chat.Complete(ctx, messages)
	if err != nil {
		return domanswer.Answer{}, fmt.Errorf("chat completion: %w", err)
	}

	s.logger.Debug("Answer synthesized",
		zap.Int("context_chunks", len(chunks)),
		zap.Int("prompt_tokens", res.PromptTokens),
		zap.Int("completion_tokens", res.CompletionTokens),
	)

	return domanswer.New(res.Content, chunks), nil
}

// SystemPrompt renders the system message with the chunk texts as context.
func (s *Service) SystemPrompt(chunks []chunk.Chunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text()
	}

	var b strings.Builder
	b.WriteString("You are an assistant for question-answering tasks about ")
	b.WriteString(s.subject)
	b.WriteString(". Use the following pieces of retrieved context to answer the question. ")
	b.WriteString("If you don't know the answer, say that you don't know. ")
	b.WriteString("Use five sentences maximum and keep the answer concise.\n\n")
	b.WriteString(strings.Join(texts, contextSeparator))
	return b.String()
}
