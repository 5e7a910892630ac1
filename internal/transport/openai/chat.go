package openai

import (
	"context"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

// zeroTemperature is the smallest value go-openai will serialize; a literal 0
// is dropped by omitempty and the API would fall back to its default of 1.
const zeroTemperature = math.SmallestNonzeroFloat32

// Chat is a chat-completion provider using the OpenAI-compatible API.
// Completions are deterministic (temperature 0) and capped at maxTokens.
type Chat struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewChat creates an OpenAI-compatible chat-completion provider.
func NewChat(cfg *Config, maxTokens int) *Chat {
	return &Chat{
		client:    newClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
		model:     cfg.Model,
		maxTokens: maxTokens,
		logger:    cfg.Logger,
	}
}

// Complete implements domain.ChatCompleter.
func (c *Chat) Complete(ctx context.Context, messages []domain.ChatMessage) (domain.ChatResult, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: zeroTemperature,
		MaxTokens:   c.maxTokens,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues(c.model, "error").Inc()
		c.logger.Debug("Chat completion failed", zap.Duration("duration", duration), zap.Error(err))
		return domain.ChatResult{}, parseAPIError("chat", err, domain.ErrChatProviderError)
	}
	if len(resp.Choices) == 0 {
		metrics.ChatRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return domain.ChatResult{}, fmt.Errorf("empty chat completion response: %w", domain.ErrChatProviderError)
	}

	metrics.ChatRequestsTotal.WithLabelValues(c.model, "success").Inc()
	metrics.ChatRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())
	metrics.ChatTokensTotal.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.ChatTokensTotal.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))

	return domain.ChatResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func toOpenAIMessages(messages []domain.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
