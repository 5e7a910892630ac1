// Package embcache keeps embedding vectors in Redis/Valkey so that restarts
// with a rebuilt store and repeated questions skip the provider.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/db"
	"github.com/kailas-cloud/docqa/internal/domain"
)

const keyPrefix = "docqa:emb_cache:"

// kv is the slice of db.KVStore the cache needs.
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder is a domain.Embedder decorator backed by a key-value store.
// Keys are scoped by model, so switching models never serves vectors from
// another embedding space.
type CachedEmbedder struct {
	inner   domain.Embedder
	kv      kv
	model   string
	ttl     time.Duration
	lookups *prometheus.CounterVec
	logger  *zap.Logger
}

// New creates a caching decorator. lookups is a counter vec with the label
// "result" ("hit"/"miss") and may be nil.
func New(
	inner domain.Embedder,
	store kv,
	model string,
	ttl time.Duration,
	lookups *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	return &CachedEmbedder{
		inner:   inner,
		kv:      store,
		model:   model,
		ttl:     ttl,
		lookups: lookups,
		logger:  logger,
	}
}

// Embed serves text from the cache or asks the inner embedder and stores the
// result. A hit reports zero tokens. Store failures and unreadable entries
// count as misses and never fail the call.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)

	if vec, ok := c.lookup(ctx, key); ok {
		c.count("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	c.count("miss")

	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	if len(res.Embedding) > 0 {
		if err := c.kv.SetWithTTL(ctx, key, encodeEntry(res.Embedding), c.ttl); err != nil {
			c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
		}
	}
	return res, nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
// The cache itself is probed separately through the store's Ping.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	hc, ok := c.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return fmt.Errorf("cached embedder: %w", err)
	}
	return nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return keyPrefix + c.model + ":" + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.kv.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return nil, false
	case err != nil:
		c.logger.Warn("Failed to read cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	vec, err := decodeEntry(data)
	if err != nil {
		c.logger.Warn("Ignoring unreadable cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) count(result string) {
	if c.lookups != nil {
		c.lookups.WithLabelValues(result).Inc()
	}
}
