package answer

import (
	"context"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// ChatCompleter generates a chat completion.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (domain.ChatResult, error)
}
