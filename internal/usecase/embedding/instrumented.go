package embedding

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// InstrumentedEmbedder wraps an Embedder with request logging and a running
// token total. Transport metrics are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	logger   *zap.Logger
	calls    atomic.Int64
	tokens   atomic.Int64
}

// NewInstrumentedEmbedder wraps inner. provider and model only label log lines.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		logger:   logger.With(zap.String("provider", provider), zap.String("model", model)),
	}
}

// Embed delegates to the inner embedder. Failed calls are logged at error
// level with the text length in runes; the text itself is never logged.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	elapsed := time.Since(start)
	p.calls.Add(1)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.Duration("duration", elapsed),
			zap.Int("text_runes", len([]rune(text))),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.tokens.Add(int64(result.TotalTokens))
	p.logger.Debug("Embedding request completed",
		zap.Duration("duration", elapsed),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

// Calls returns how many Embed calls were made, failed ones included.
func (p *InstrumentedEmbedder) Calls() int64 { return p.calls.Load() }

// Tokens returns the provider tokens consumed so far. Cache hits count zero.
func (p *InstrumentedEmbedder) Tokens() int64 { return p.tokens.Load() }

// HealthCheck forwards to the inner embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	hc, ok := p.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%s health check: %w", p.provider, err)
	}
	return nil
}
