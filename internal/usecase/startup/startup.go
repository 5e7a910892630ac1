// Package startup runs the one-time initialization phase: load the corpus,
// split it into chunks and build or reopen the vector index.
package startup

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/config"
	"github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/repository/corpus"
	"github.com/kailas-cloud/docqa/internal/repository/vectorstore"
	"github.com/kailas-cloud/docqa/internal/usecase/index"
)

// Index is the immutable result of Initialize, shared read-only by all requests.
type Index struct {
	store     *vectorstore.Store
	documents int
	chunks    int
	mode      string
}

// Len returns the number of indexed entries.
func (i *Index) Len() int { return i.store.Len() }

// Nearest delegates to the underlying vector store.
func (i *Index) Nearest(query []float32, n int) ([]vectorstore.Candidate, error) {
	return i.store.Nearest(query, n) //nolint:wrapcheck // thin delegate
}

// Documents returns the number of corpus documents loaded at startup.
func (i *Index) Documents() int { return i.documents }

// Chunks returns the number of chunks produced from the corpus at startup.
// It differs from Len when an existing store was reused.
func (i *Index) Chunks() int { return i.chunks }

// Mode reports how the store was obtained (created, loaded or rebuilt).
func (i *Index) Mode() string { return i.mode }

// Initialize loads documents, splits them and builds the index. Embedding
// calls happen only when the store directory does not exist yet (or is
// rebuilt under the rebuild stale policy).
func Initialize(ctx context.Context, cfg config.Config, embed index.Embedder, logger *zap.Logger) (*Index, error) {
	docs, err := corpus.NewLoader(cfg.Corpus.DataDir, cfg.Corpus.Extension, logger).Load()
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	splitter, err := chunk.NewMarkdownSplitter(cfg.Chunking.ChunkSize, cfg.ChunkOverlap())
	if err != nil {
		return nil, fmt.Errorf("create splitter: %w", err)
	}
	chunks := splitter.SplitDocuments(docs)
	logger.Info("Split documents into chunks",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
		zap.Int("chunk_size", cfg.Chunking.ChunkSize),
		zap.Int("chunk_overlap", cfg.ChunkOverlap()),
	)

	builder := index.New(embed, index.Params{
		Dir:            cfg.VectorStore.Dir,
		StalePolicy:    cfg.VectorStore.StalePolicy,
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
		ChunkSize:      cfg.Chunking.ChunkSize,
		ChunkOverlap:   cfg.ChunkOverlap(),
	}, logger)

	res, err := builder.Build(ctx, chunks, corpus.Checksum(docs))
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	return &Index{
		store:     res.Store,
		documents: len(docs),
		chunks:    len(chunks),
		mode:      res.Mode,
	}, nil
}
