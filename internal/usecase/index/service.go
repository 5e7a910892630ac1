package index

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/config"
	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/metrics"
	"github.com/kailas-cloud/docqa/internal/repository/vectorstore"
)

// Build modes reported in logs and metrics.
const (
	ModeCreated = "created"
	ModeLoaded  = "loaded"
	ModeRebuilt = "rebuilt"
)

// Params describes where the store lives and how it was produced.
type Params struct {
	Dir            string
	StalePolicy    string // config.StalePolicyWarn or config.StalePolicyRebuild
	EmbeddingModel string
	ChunkSize      int
	ChunkOverlap   int
}

// Result is the outcome of Build.
type Result struct {
	Store *vectorstore.Store
	Mode  string
	Stale bool // the loaded store was built from a different corpus
}

// Service builds or reopens the persisted vector store.
type Service struct {
	embed  Embedder
	params Params
	logger *zap.Logger
}

// New creates an index service.
func New(embed Embedder, params Params, logger *zap.Logger) *Service {
	return &Service{embed: embed, params: params, logger: logger}
}

// Build reopens the store when its directory exists, making no embedding
// calls. Otherwise it embeds every chunk, one call per chunk in order, and
// persists a new store. checksum identifies the corpus the chunks came from.
func (s *Service) Build(ctx context.Context, chunks []chunk.Chunk, checksum string) (Result, error) {
	if !vectorstore.Exists(s.params.Dir) {
		store, err := s.create(ctx, chunks, checksum)
		if err != nil {
			return Result{}, err
		}
		s.logger.Info("Created and persisted new vector store",
			zap.String("dir", s.params.Dir), zap.Int("entries", store.Len()))
		return s.done(Result{Store: store, Mode: ModeCreated}), nil
	}

	store, err := vectorstore.Open(s.params.Dir)
	if err != nil {
		return Result{}, fmt.Errorf("open vector store: %w", err)
	}

	stale := s.checkManifest(store.Manifest(), checksum)
	if stale && s.params.StalePolicy == config.StalePolicyRebuild {
		s.logger.Warn("Vector store is stale, rebuilding", zap.String("dir", s.params.Dir))
		if err := vectorstore.Remove(s.params.Dir); err != nil {
			return Result{}, err
		}
		store, err = s.create(ctx, chunks, checksum)
		if err != nil {
			return Result{}, err
		}
		s.logger.Info("Rebuilt vector store",
			zap.String("dir", s.params.Dir), zap.Int("entries", store.Len()))
		return s.done(Result{Store: store, Mode: ModeRebuilt}), nil
	}

	if stale {
		s.logger.Warn("Vector store was built from a different corpus; serving it unchanged",
			zap.String("dir", s.params.Dir),
			zap.String("hint", "delete the directory or set vector_store.stale_policy=rebuild"),
		)
	}
	s.logger.Info("Loaded existing vector store",
		zap.String("dir", s.params.Dir), zap.Int("entries", store.Len()))
	return s.done(Result{Store: store, Mode: ModeLoaded, Stale: stale}), nil
}

func (s *Service) create(ctx context.Context, chunks []chunk.Chunk, checksum string) (*vectorstore.Store, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text()
	}

	batch, err := domain.EmbedEach(ctx, s.embed, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	entries := make([]vectorstore.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = vectorstore.Entry{
			Source:     c.Source(),
			Text:       c.Text(),
			StartIndex: c.StartIndex(),
			Vector:     batch.Embeddings[i],
		}
	}

	store, err := vectorstore.Create(s.params.Dir, entries, vectorstore.Manifest{
		EmbeddingModel: s.params.EmbeddingModel,
		ChunkSize:      s.params.ChunkSize,
		ChunkOverlap:   s.params.ChunkOverlap,
		CorpusChecksum: checksum,
	})
	if err != nil {
		return nil, fmt.Errorf("create vector store: %w", err)
	}

	s.logger.Debug("Embedded chunks",
		zap.Int("chunks", len(chunks)), zap.Int("total_tokens", batch.TotalTokens))
	return store, nil
}

// checkManifest logs build-parameter drift and reports whether the store
// was built from a different corpus.
func (s *Service) checkManifest(m vectorstore.Manifest, checksum string) bool {
	if m.CorpusChecksum == "" {
		s.logger.Warn("Vector store has no manifest checksum; staleness cannot be detected",
			zap.String("dir", s.params.Dir))
		return false
	}
	if m.EmbeddingModel != "" && m.EmbeddingModel != s.params.EmbeddingModel {
		s.logger.Warn("Vector store was built with a different embedding model",
			zap.String("store_model", m.EmbeddingModel),
			zap.String("configured_model", s.params.EmbeddingModel),
		)
	}
	if m.ChunkSize != s.params.ChunkSize || m.ChunkOverlap != s.params.ChunkOverlap {
		s.logger.Warn("Vector store was built with different chunking settings",
			zap.Int("store_chunk_size", m.ChunkSize),
			zap.Int("store_chunk_overlap", m.ChunkOverlap),
		)
	}
	return m.CorpusChecksum != checksum
}

func (s *Service) done(r Result) Result {
	metrics.IndexChunks.Set(float64(r.Store.Len()))
	metrics.IndexBuildsTotal.WithLabelValues(r.Mode).Inc()
	return r
}
