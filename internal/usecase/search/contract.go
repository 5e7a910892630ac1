package search

import (
	"context"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/repository/vectorstore"
)

// Index is the read contract of the vector store.
type Index interface {
	Nearest(query []float32, n int) ([]vectorstore.Candidate, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
